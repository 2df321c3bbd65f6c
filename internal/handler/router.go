package handler

import (
	"cropplanner/internal/i18n"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the API routes need
type Handlers struct {
	Health         *HealthHandler
	Auth           *AuthHandler
	Recommendation *RecommendationHandler
	Insights       *InsightsHandler
	Assistant      *AssistantHandler
	Language       *LanguageHandler
}

// RegisterRoutes mounts the public and authenticated API on router.
// Responses under /api/v1 are localized with tr.
func RegisterRoutes(router *gin.Engine, h Handlers, tokens TokenParser, tr *i18n.Translator) {
	router.GET("/health", h.Health.Health)
	router.GET("/version", h.Health.Version)

	apiV1 := router.Group("/api/v1", Localize(tr))
	{
		apiV1.GET("/languages", h.Language.Languages)

		auth := apiV1.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)

		protected := apiV1.Group("", RequireAuth(tokens))

		// Recommendation endpoints
		protected.POST("/recommendations", h.Recommendation.Recommend)
		protected.GET("/recommendations/history", h.Recommendation.History)

		// Crop lookups
		protected.GET("/crops", h.Recommendation.Crops)
		protected.GET("/crops/:crop/season", h.Recommendation.Season)
		protected.GET("/crops/:crop/fertilizers", h.Recommendation.Fertilizers)
		protected.GET("/crops/:crop/companions", h.Recommendation.Companions)

		// Weather and market data
		protected.GET("/weather", h.Insights.Weather)
		protected.GET("/market/trends", h.Insights.MarketTrends)

		// Assistant
		protected.POST("/assistant/chat", h.Assistant.Chat)
		protected.POST("/assistant/diagnose", h.Assistant.Diagnose)
	}
}
