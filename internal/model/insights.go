package model

import "time"

// Weather is the current weather for a city
type Weather struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
	Rainfall    float64 `json:"rainfall"`    // mm in the last hour
	Description string  `json:"description"`
}

// PricePoint is one dated price observation
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries is a crop's prices sorted by date
type PriceSeries struct {
	Crop   string       `json:"crop"`
	Points []PricePoint `json:"points"`
}

// LatestPrice is the most recent observation for a crop
type LatestPrice struct {
	Crop  string    `json:"crop"`
	Price float64   `json:"price"`
	Date  time.Time `json:"date"`
}

// MarketTrends is returned by GET /api/v1/market/trends
type MarketTrends struct {
	Title        string        `json:"title"`
	DateColumn   string        `json:"date_column"`
	CropColumn   string        `json:"crop_column"`
	PriceColumn  string        `json:"price_column"`
	Series       []PriceSeries `json:"series"`
	LatestPrices []LatestPrice `json:"latest_prices"`
}

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest carries the new question plus the prior conversation
type ChatRequest struct {
	Message string        `json:"message" binding:"required"`
	History []ChatMessage `json:"history" binding:"omitempty,dive"`
}

// ChatResponse returns the reply and the updated history
type ChatResponse struct {
	Reply   string        `json:"reply"`
	History []ChatMessage `json:"history"`
}

// Diagnosis sources
const (
	DiagnosisSourceGemini = "gemini"
	DiagnosisSourceStub   = "stub"
)

// Diagnosis is the result of a plant/soil image upload
type Diagnosis struct {
	ContentType string   `json:"content_type"`
	Size        int      `json:"size"`
	Condition   string   `json:"condition,omitempty"`
	Advice      string   `json:"advice,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Message     string   `json:"message,omitempty"`
	Source      string   `json:"source"`
}
