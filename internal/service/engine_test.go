package service

import (
	"math"
	"path/filepath"
	"sort"
	"testing"

	"cropplanner/internal/agronomy"
	"cropplanner/internal/classifier"
	"cropplanner/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedProba returns the same distribution for every input
type fixedProba []float64

func (f fixedProba) PredictProba([]float64) []float64 { return append([]float64(nil), f...) }
func (f fixedProba) NumClasses() int                  { return len(f) }

func newFixedEngine(t *testing.T, probs []float64, labels ...string) *Engine {
	t.Helper()
	m, err := classifier.NewModel(fixedProba(probs), &classifier.LabelEncoder{Classes: labels})
	require.NoError(t, err)
	e, err := NewEngine(m, agronomy.Default())
	require.NoError(t, err)
	return e
}

func newForestEngine(t *testing.T) *Engine {
	t.Helper()
	m, err := classifier.Load(filepath.Join("testdata", "crop_model.json"), filepath.Join("testdata", "label_encoder.json"))
	require.NoError(t, err)
	e, err := NewEngine(m, agronomy.Default())
	require.NoError(t, err)
	return e
}

func TestNewEngine_RequiresModel(t *testing.T) {
	_, err := NewEngine(nil, agronomy.Default())
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = NewEngine(&classifier.Model{Labels: &classifier.LabelEncoder{Classes: []string{"Wheat"}}}, agronomy.Default())
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestEngine_Classify_TopThreeDescending(t *testing.T) {
	e := newFixedEngine(t, []float64{0.05, 0.4, 0.1, 0.3, 0.15}, "Banana", "Cowpea", "Groundnut", "Maize", "Wheat")

	got := e.Classify(model.SoilSample{})
	assert.Equal(t, []model.CropScore{
		{Crop: "Cowpea", Confidence: 0.4},
		{Crop: "Maize", Confidence: 0.3},
		{Crop: "Wheat", Confidence: 0.15},
	}, got)
}

func TestEngine_Classify_TiesKeepLabelOrder(t *testing.T) {
	e := newFixedEngine(t, []float64{0.1, 0.3, 0.3, 0.3}, "Banana", "Cowpea", "Groundnut", "Maize")

	got := e.Classify(model.SoilSample{})
	require.Len(t, got, 3)
	assert.Equal(t, "Cowpea", got[0].Crop)
	assert.Equal(t, "Groundnut", got[1].Crop)
	assert.Equal(t, "Maize", got[2].Crop)
}

func TestEngine_Classify_SmallLabelSpace(t *testing.T) {
	e := newFixedEngine(t, []float64{0.25, 0.75}, "Rice", "Jute")

	got := e.Classify(model.SoilSample{})
	require.Len(t, got, 2)
	assert.Equal(t, "Jute", got[0].Crop)
	assert.Equal(t, "Rice", got[1].Crop)
}

func TestEngine_Classify_Forest(t *testing.T) {
	e := newForestEngine(t)

	samples := []model.SoilSample{
		{Nitrogen: 50, Phosphorus: 50, Potassium: 50, Temperature: 25, Humidity: 80, PH: 6.5},
		{Nitrogen: 100, Phosphorus: 30, Potassium: 40, Temperature: 15, Humidity: 50, PH: 7},
		{Nitrogen: 0, Phosphorus: 5, Potassium: 5, Temperature: -10, Humidity: 10, PH: 0},
		{Nitrogen: 140, Phosphorus: 145, Potassium: 205, Temperature: 50, Humidity: 100, PH: 14},
	}

	for _, s := range samples {
		got := e.Classify(s)
		require.Len(t, got, 3)

		all := e.model.Classifier.PredictProba(s.Features())
		sort.Sort(sort.Reverse(sort.Float64Slice(all)))
		for i, score := range got {
			assert.GreaterOrEqual(t, score.Confidence, 0.0)
			assert.LessOrEqual(t, score.Confidence, 1.0)
			assert.Equal(t, all[i], score.Confidence, "rank %d must be the %d-th largest probability", i, i)
		}

		assert.Equal(t, got, e.Classify(s), "classification is deterministic")
	}

	first := e.Classify(samples[0])
	assert.Equal(t, []string{"Banana", "Cowpea", "Maize"}, []string{first[0].Crop, first[1].Crop, first[2].Crop})
}

func TestEngine_Classify_OutOfRangeInputs(t *testing.T) {
	e := newForestEngine(t)

	for _, s := range []model.SoilSample{
		{Nitrogen: -500, Phosphorus: 9999, Potassium: -1, Temperature: 80, Humidity: 300, PH: 20},
		{Nitrogen: math.NaN(), Phosphorus: math.Inf(1), Potassium: math.Inf(-1)},
	} {
		assert.NotPanics(t, func() {
			assert.Len(t, e.Classify(s), 3)
		})
	}
}

func TestEngine_Lookups(t *testing.T) {
	e := newForestEngine(t)

	assert.Equal(t, []string{"Urea"}, e.Deficiencies("Wheat", 50, 50, 50))
	assert.Equal(t, []string{}, e.Deficiencies("Wheat", 150, 100, 100))
	assert.Equal(t, []string{}, e.Deficiencies("Kale", 0, 0, 0))

	assert.Equal(t, model.Season{Sowing: "Jun-Jul", Harvesting: "Sep-Oct"}, e.Season("Maize"))
	assert.Equal(t, model.Season{Sowing: "Unknown", Harvesting: "Unknown"}, e.Season("Kale"))

	assert.Equal(t, []string{"Cowpea", "Groundnut", "Maize"}, e.Companions("Banana"))
	assert.Equal(t, []string{}, e.Companions("Kale"))
}

func TestEngine_Recommend(t *testing.T) {
	e := newFixedEngine(t, []float64{0.123456, 0.5, 0.376544}, "Banana", "Wheat", "Kale")
	sample := model.SoilSample{Nitrogen: 50, Phosphorus: 50, Potassium: 70, Temperature: 20, Humidity: 60, PH: 6.8}

	got := e.Recommend(sample)
	require.Len(t, got, 3)

	assert.Equal(t, model.CropRecommendation{
		Crop:        "Wheat",
		Confidence:  0.5,
		Percent:     50,
		Fertilizers: []string{"Urea"},
		Season:      model.Season{Sowing: "Oct-Dec", Harvesting: "Mar-Apr"},
	}, got[0])

	assert.Equal(t, "Kale", got[1].Crop)
	assert.Equal(t, 0.38, got[1].Confidence)
	assert.Equal(t, 37.65, got[1].Percent)
	assert.Equal(t, []string{}, got[1].Fertilizers)
	assert.Equal(t, model.Season{Sowing: "Unknown", Harvesting: "Unknown"}, got[1].Season)

	assert.Equal(t, "Banana", got[2].Crop)
	assert.Equal(t, 0.12, got[2].Confidence)
	assert.Equal(t, 12.35, got[2].Percent)
	assert.Equal(t, []string{"Urea", "DAP"}, got[2].Fertilizers)
}
