package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pgvector/pgvector-go"
)

// SoilSample is the six-value input describing a plot
type SoilSample struct {
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
}

// Features returns the classifier input in training column order:
// N, P, K, temperature, humidity, pH.
func (s SoilSample) Features() []float64 {
	return []float64{s.Nitrogen, s.Phosphorus, s.Potassium, s.Temperature, s.Humidity, s.PH}
}

// Vector returns the features as a pgvector value for storage
func (s SoilSample) Vector() pgvector.Vector {
	f := s.Features()
	v := make([]float32, len(f))
	for i, x := range f {
		v[i] = float32(x)
	}
	return pgvector.NewVector(v)
}

// SoilSampleFromVector rebuilds a sample from a stored vector
func SoilSampleFromVector(v pgvector.Vector) SoilSample {
	f := v.Slice()
	at := func(i int) float64 {
		if i < len(f) {
			return float64(f[i])
		}
		return 0
	}
	return SoilSample{
		Nitrogen:    at(0),
		Phosphorus:  at(1),
		Potassium:   at(2),
		Temperature: at(3),
		Humidity:    at(4),
		PH:          at(5),
	}
}

// CropScore is a crop and the model's confidence in it, at full precision
type CropScore struct {
	Crop       string  `json:"crop"`
	Confidence float64 `json:"confidence"`
}

// Rounded returns the confidence rounded to 2 decimals for display
func (c CropScore) Rounded() float64 {
	return round2(c.Confidence)
}

// Percent returns the confidence as a percentage rounded to 2 decimals
func (c CropScore) Percent() float64 {
	return round2(c.Confidence * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Season is a sowing/harvesting window pair
type Season struct {
	Sowing     string `json:"sowing"`
	Harvesting string `json:"harvesting"`
}

// CropRecommendation is one ranked crop with its derived advice
type CropRecommendation struct {
	Crop        string   `json:"crop"`
	Confidence  float64  `json:"confidence"` // rounded to 2 decimals
	Percent     float64  `json:"percent"`
	Fertilizers []string `json:"fertilizers"`
	Season      Season   `json:"season"`
}

// RecommendationRequest is the input-collection boundary: it enforces the
// slider ranges the engine itself does not check.
type RecommendationRequest struct {
	Nitrogen    *float64 `json:"nitrogen" binding:"required,min=0,max=140"`
	Phosphorus  *float64 `json:"phosphorus" binding:"required,min=5,max=145"`
	Potassium   *float64 `json:"potassium" binding:"required,min=5,max=205"`
	Temperature *float64 `json:"temperature" binding:"required,min=-10,max=50"`
	Humidity    *float64 `json:"humidity" binding:"required,min=10,max=100"`
	PH          *float64 `json:"ph" binding:"required,min=0,max=14"`
}

// Sample converts a validated request to a SoilSample
func (r *RecommendationRequest) Sample() SoilSample {
	return SoilSample{
		Nitrogen:    *r.Nitrogen,
		Phosphorus:  *r.Phosphorus,
		Potassium:   *r.Potassium,
		Temperature: *r.Temperature,
		Humidity:    *r.Humidity,
		PH:          *r.PH,
	}
}

// RecommendationResponse is returned by POST /api/v1/recommendations
type RecommendationResponse struct {
	Sample          SoilSample           `json:"sample"`
	Recommendations []CropRecommendation `json:"recommendations"`
	Took            int64                `json:"took_ms"`
}

// NutrientLevels is an N/P/K level
type NutrientLevels struct {
	N float64 `json:"n"`
	P float64 `json:"p"`
	K float64 `json:"k"`
}

// FertilizerResponse is returned by the per-crop fertilizer lookup. Ideal is
// omitted for crops without reference levels.
type FertilizerResponse struct {
	Crop        string          `json:"crop"`
	Fertilizers []string        `json:"fertilizers"`
	Ideal       *NutrientLevels `json:"ideal,omitempty"`
}

// CropListResponse lists the crops with reference data
type CropListResponse struct {
	Crops []string `json:"crops"`
}

// SeasonResponse is returned by the per-crop season lookup
type SeasonResponse struct {
	Crop string `json:"crop"`
	Season
}

// CompanionResponse is returned by the companion lookup
type CompanionResponse struct {
	Crop       string   `json:"crop"`
	Companions []string `json:"companions"`
}

// RecommendationLog is a stored recommendation
type RecommendationLog struct {
	ID        string          `json:"id" db:"id"`
	UserID    *int64          `json:"user_id,omitempty" db:"user_id"`
	Features  pgvector.Vector `json:"-" db:"features"`
	TopCrops  JSONArray       `json:"top_crops" db:"top_crops"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Sample returns the logged input
func (l RecommendationLog) Sample() SoilSample {
	return SoilSampleFromVector(l.Features)
}

// HistoryEntry is a RecommendationLog as shown to the user
type HistoryEntry struct {
	ID        string     `json:"id"`
	Sample    SoilSample `json:"sample"`
	TopCrops  []string   `json:"top_crops"`
	CreatedAt time.Time  `json:"created_at"`
}

// JSONArray stores a string list as a JSON column
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return "[]", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONArray", value)
	}
}
