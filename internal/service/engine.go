package service

import (
	"errors"
	"sort"

	"cropplanner/internal/agronomy"
	"cropplanner/internal/classifier"
	"cropplanner/internal/model"
)

// TopCrops is how many crops a recommendation returns
const TopCrops = 3

// ErrNoModel is returned when an engine is built without a crop model
var ErrNoModel = errors.New("engine requires a loaded crop model")

// Engine turns a soil sample into ranked crops and derives fertilizer and
// season advice for each. It holds only read-only state and is safe for
// concurrent use.
type Engine struct {
	*Advisor
	model *classifier.Model
}

// NewEngine creates an engine over a loaded model and reference tables
func NewEngine(m *classifier.Model, tables *agronomy.Tables) (*Engine, error) {
	if m == nil || m.Classifier == nil || m.Labels == nil {
		return nil, ErrNoModel
	}
	return &Engine{
		Advisor: NewAdvisor(tables),
		model:   m,
	}, nil
}

// Classify returns the TopCrops most likely crops, highest confidence first.
// Equal confidences keep the model's label order. Inputs are not range
// checked.
func (e *Engine) Classify(sample model.SoilSample) []model.CropScore {
	probs := e.model.Classifier.PredictProba(sample.Features())

	scores := make([]model.CropScore, len(probs))
	for i, p := range probs {
		scores[i] = model.CropScore{
			Crop:       e.model.Labels.InverseTransform(i),
			Confidence: p,
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})

	if len(scores) > TopCrops {
		scores = scores[:TopCrops]
	}
	return scores
}

// Recommend classifies the sample and attaches advice to each ranked crop
func (e *Engine) Recommend(sample model.SoilSample) []model.CropRecommendation {
	scores := e.Classify(sample)

	recs := make([]model.CropRecommendation, 0, len(scores))
	for _, s := range scores {
		recs = append(recs, model.CropRecommendation{
			Crop:        s.Crop,
			Confidence:  s.Rounded(),
			Percent:     s.Percent(),
			Fertilizers: e.Deficiencies(s.Crop, sample.Nitrogen, sample.Phosphorus, sample.Potassium),
			Season:      e.Season(s.Crop),
		})
	}
	return recs
}
