package service

import (
	"context"
	"sync"
	"time"

	"cropplanner/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecommendationLogStore persists recommendations
type RecommendationLogStore interface {
	LogRecommendation(ctx context.Context, entry *model.RecommendationLog) error
	ListRecommendations(ctx context.Context, userID int64, limit int) ([]model.RecommendationLog, error)
}

// RecommendationService runs the engine and records what it recommended
type RecommendationService struct {
	engine *Engine
	logs   RecommendationLogStore
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(engine *Engine, logs RecommendationLogStore, logger *zap.Logger) *RecommendationService {
	return &RecommendationService{
		engine: engine,
		logs:   logs,
		logger: logger,
	}
}

// Engine exposes the underlying engine for lookups
func (s *RecommendationService) Engine() *Engine {
	return s.engine
}

// Recommend ranks crops for the sample. The result is logged in the
// background; a failed write never fails the request.
func (s *RecommendationService) Recommend(userID *int64, sample model.SoilSample) *model.RecommendationResponse {
	startTime := time.Now()

	recs := s.engine.Recommend(sample)
	took := time.Since(startTime).Milliseconds()

	crops := make(model.JSONArray, len(recs))
	for i, r := range recs {
		crops[i] = r.Crop
	}
	entry := &model.RecommendationLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Features:  sample.Vector(),
		TopCrops:  crops,
		CreatedAt: startTime.UTC().Truncate(time.Millisecond),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.logs.LogRecommendation(logCtx, entry); err != nil {
			s.logger.Warn("failed to log recommendation", zap.String("id", entry.ID), zap.Error(err))
		}
	}()

	s.logger.Debug("recommendation served",
		zap.Strings("crops", crops),
		zap.Int64("took_ms", took),
	)

	return &model.RecommendationResponse{
		Sample:          sample,
		Recommendations: recs,
		Took:            took,
	}
}

// History returns the user's recent recommendations, newest first
func (s *RecommendationService) History(ctx context.Context, userID int64, limit int) ([]model.HistoryEntry, error) {
	logs, err := s.logs.ListRecommendations(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]model.HistoryEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, model.HistoryEntry{
			ID:        l.ID,
			Sample:    l.Sample(),
			TopCrops:  []string(l.TopCrops),
			CreatedAt: l.CreatedAt,
		})
	}
	return entries, nil
}

// Wait blocks until pending background log writes finish
func (s *RecommendationService) Wait() {
	s.wg.Wait()
}
