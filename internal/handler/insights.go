package handler

import (
	"errors"
	"net/http"
	"strings"

	"cropplanner/internal/i18n"
	"cropplanner/internal/service"

	"github.com/gin-gonic/gin"
	gobreaker "github.com/sony/gobreaker/v2"
)

// InsightsHandler serves weather and market data
type InsightsHandler struct {
	weather *service.WeatherClient
	market  *service.MarketService
	tr      *i18n.Translator
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(weather *service.WeatherClient, market *service.MarketService, tr *i18n.Translator) *InsightsHandler {
	return &InsightsHandler{
		weather: weather,
		market:  market,
		tr:      tr,
	}
}

// Weather handles GET /api/v1/weather?city=
func (h *InsightsHandler) Weather(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter city is required"})
		return
	}

	weather, err := h.weather.Current(c.Request.Context(), city)
	if err != nil {
		var apiErr *service.WeatherAPIError
		switch {
		case errors.Is(err, service.ErrWeatherDisabled),
			errors.Is(err, gobreaker.ErrOpenState),
			errors.Is(err, gobreaker.ErrTooManyRequests):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": apiErr.Message})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, weather)
}

// MarketTrends handles GET /api/v1/market/trends?crops=a,b
func (h *InsightsHandler) MarketTrends(c *gin.Context) {
	var crops []string
	for _, raw := range c.QueryArray("crops") {
		crops = append(crops, strings.Split(raw, ",")...)
	}

	trends, err := h.market.Trends(crops)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoMarketData):
			c.JSON(http.StatusNotFound, gin.H{"error": localize(c, h.tr, service.ErrNoMarketData.Error())})
		case errors.Is(err, service.ErrMarketDataUnavailable), errors.Is(err, service.ErrMissingColumn):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load market data: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, trends)
}
