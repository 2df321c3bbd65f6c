package handler

import (
	"errors"
	"io"
	"net/http"

	"cropplanner/internal/i18n"
	"cropplanner/internal/model"
	"cropplanner/internal/service"

	"github.com/gin-gonic/gin"
)

// AssistantHandler handles the farming chat and image diagnosis
type AssistantHandler struct {
	chat      *service.ChatService
	diagnosis *service.DiagnosisService
	tr        *i18n.Translator
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(chat *service.ChatService, diagnosis *service.DiagnosisService, tr *i18n.Translator) *AssistantHandler {
	return &AssistantHandler{
		chat:      chat,
		diagnosis: diagnosis,
		tr:        tr,
	}
}

// Chat handles POST /api/v1/assistant/chat
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.chat.Chat(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssistantDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case resp != nil:
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   err.Error(),
				"reply":   localize(c, h.tr, resp.Reply),
				"history": resp.History,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Diagnose handles POST /api/v1/assistant/diagnose (multipart field "image")
func (h *AssistantHandler) Diagnose(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Multipart field image is required"})
		return
	}
	if limit := h.diagnosis.MaxBytes(); limit > 0 && header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": service.ErrImageTooLarge.Error()})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload: " + err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload: " + err.Error()})
		return
	}

	diagnosis, err := h.diagnosis.Diagnose(c.Request.Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrImageTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUnsupportedImage):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	if diagnosis.Source == model.DiagnosisSourceStub {
		diagnosis.Message = localize(c, h.tr, diagnosis.Message)
	}
	c.JSON(http.StatusOK, diagnosis)
}
