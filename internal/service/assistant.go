package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cropplanner/internal/model"
	"cropplanner/internal/utils"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Assistant errors
var (
	ErrAssistantDisabled    = errors.New("assistant is not enabled (missing API key)")
	ErrAssistantUnavailable = errors.New("assistant could not get a response")
	ErrEmptyImage           = errors.New("image is empty")
	ErrImageTooLarge        = errors.New("image is too large")
	ErrUnsupportedImage     = errors.New("only PNG and JPEG images are supported")
)

const (
	// FallbackReply is returned when the model fails to answer
	FallbackReply = "Sorry, I couldn't get a response."
	// StubDiagnosisMessage is returned when no vision model is configured
	StubDiagnosisMessage = "Image received. You can integrate a model here to diagnose plant/soil health."
)

const diagnosisPrompt = `You are an agronomist. Look at this photo of a plant or soil sample and assess its health.
Respond with a single JSON object and nothing else, using exactly these keys:
{"condition": "short name of the problem, or healthy", "advice": "one or two practical sentences", "confidence": number between 0 and 1}`

// ChatService answers farming questions
type ChatService struct {
	gen    Generator
	logger *zap.Logger
}

// NewChatService creates a chat service. A nil generator disables chat.
func NewChatService(gen Generator, logger *zap.Logger) *ChatService {
	return &ChatService{gen: gen, logger: logger}
}

// IsEnabled returns whether a model is configured
func (s *ChatService) IsEnabled() bool {
	return s.gen != nil
}

// Chat sends the message with the prior history. On upstream failure the
// response carries FallbackReply together with ErrAssistantUnavailable, and
// the history is returned unchanged so the question can be retried.
func (s *ChatService) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	if s.gen == nil {
		return nil, ErrAssistantDisabled
	}

	message := strings.TrimSpace(req.Message)
	history := make([]model.ChatMessage, 0, len(req.History)+2)
	history = append(history, req.History...)

	reply, err := s.gen.Chat(ctx, req.History, message)
	if err != nil {
		s.logger.Warn("chat request failed", zap.Error(err))
		return &model.ChatResponse{Reply: FallbackReply, History: history}, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}

	history = append(history,
		model.ChatMessage{Role: model.RoleUser, Content: message},
		model.ChatMessage{Role: model.RoleAssistant, Content: reply},
	)
	return &model.ChatResponse{Reply: reply, History: history}, nil
}

// DiagnosisService inspects plant and soil photos
type DiagnosisService struct {
	gen      Generator
	maxBytes int64
	logger   *zap.Logger
}

// NewDiagnosisService creates a diagnosis service. A nil generator answers
// with StubDiagnosisMessage.
func NewDiagnosisService(gen Generator, maxBytes int64, logger *zap.Logger) *DiagnosisService {
	return &DiagnosisService{gen: gen, maxBytes: maxBytes, logger: logger}
}

// MaxBytes is the largest accepted upload
func (s *DiagnosisService) MaxBytes() int64 {
	return s.maxBytes
}

type diagnosisReply struct {
	Condition  string   `json:"condition"`
	Advice     string   `json:"advice"`
	Confidence *float64 `json:"confidence"`
}

// Diagnose checks the upload is a PNG or JPEG within the size limit and
// asks the vision model for a verdict
func (s *DiagnosisService) Diagnose(ctx context.Context, image []byte) (*model.Diagnosis, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if s.maxBytes > 0 && int64(len(image)) > s.maxBytes {
		return nil, ErrImageTooLarge
	}

	mtype := mimetype.Detect(image)
	var format string
	switch {
	case mtype.Is("image/png"):
		format = "png"
	case mtype.Is("image/jpeg"):
		format = "jpeg"
	default:
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedImage, mtype.String())
	}

	d := &model.Diagnosis{
		ContentType: mtype.String(),
		Size:        len(image),
	}

	if s.gen == nil {
		d.Message = StubDiagnosisMessage
		d.Source = model.DiagnosisSourceStub
		return d, nil
	}

	reply, err := s.gen.DescribeImage(ctx, diagnosisPrompt, format, image)
	if err != nil {
		s.logger.Warn("diagnosis request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}

	d.Source = model.DiagnosisSourceGemini
	var parsed diagnosisReply
	if err := utils.ParseAIJSON(reply, &parsed); err != nil {
		s.logger.Debug("diagnosis reply was not JSON", zap.Error(err))
		d.Message = reply
		return d, nil
	}

	d.Condition = parsed.Condition
	d.Advice = parsed.Advice
	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 1 {
		d.Confidence = parsed.Confidence
	}
	return d, nil
}
