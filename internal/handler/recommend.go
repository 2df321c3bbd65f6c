package handler

import (
	"net/http"
	"strconv"

	"cropplanner/internal/model"
	"cropplanner/internal/service"
	"cropplanner/internal/utils"

	"github.com/gin-gonic/gin"
)

// RecommendationHandler handles recommendation and crop lookup requests
type RecommendationHandler struct {
	recService   *service.RecommendationService
	defaultLimit int
	maxLimit     int
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recService *service.RecommendationService, defaultLimit, maxLimit int) *RecommendationHandler {
	return &RecommendationHandler{
		recService:   recService,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Recommend handles POST /api/v1/recommendations
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req model.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	var userID *int64
	if id, ok := currentUserID(c); ok {
		userID = &id
	}

	c.JSON(http.StatusOK, h.recService.Recommend(userID, req.Sample()))
}

// History handles GET /api/v1/recommendations/history
func (h *RecommendationHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	entries, err := h.recService.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// Crops handles GET /api/v1/crops
func (h *RecommendationHandler) Crops(c *gin.Context) {
	c.JSON(http.StatusOK, model.CropListResponse{Crops: h.recService.Engine().Crops()})
}

// Season handles GET /api/v1/crops/:crop/season
func (h *RecommendationHandler) Season(c *gin.Context) {
	crop, ok := cropParam(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, model.SeasonResponse{
		Crop:   crop,
		Season: h.recService.Engine().Season(crop),
	})
}

// Fertilizers handles GET /api/v1/crops/:crop/fertilizers?n=&p=&k=
func (h *RecommendationHandler) Fertilizers(c *gin.Context) {
	crop, ok := cropParam(c)
	if !ok {
		return
	}

	var levels [3]float64
	for i, key := range []string{"n", "p", "k"} {
		v, err := strconv.ParseFloat(c.Query(key), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameters n, p and k must be numbers"})
			return
		}
		levels[i] = v
	}

	c.JSON(http.StatusOK, h.recService.Engine().Fertilizers(crop, levels[0], levels[1], levels[2]))
}

// Companions handles GET /api/v1/crops/:crop/companions
func (h *RecommendationHandler) Companions(c *gin.Context) {
	crop, ok := cropParam(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, model.CompanionResponse{
		Crop:       crop,
		Companions: h.recService.Engine().Companions(crop),
	})
}

func cropParam(c *gin.Context) (string, bool) {
	crop := utils.NormalizeCropName(c.Param("crop"))
	if crop == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Crop name is required"})
		return "", false
	}
	return crop, true
}
