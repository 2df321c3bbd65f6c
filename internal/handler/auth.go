package handler

import (
	"errors"
	"net/http"

	"cropplanner/internal/i18n"
	"cropplanner/internal/model"
	"cropplanner/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	authService *service.AuthService
	tr          *i18n.Translator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, tr *i18n.Translator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tr:          tr,
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields),
			errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": localize(c, h.tr, err.Error())})
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": localize(c, h.tr, err.Error())})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed: " + err.Error()})
		}
		return
	}

	resp.Message = localize(c, h.tr, resp.Message)
	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": localize(c, h.tr, err.Error())})
		case errors.Is(err, service.ErrIncorrectPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": localize(c, h.tr, err.Error())})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed: " + err.Error()})
		}
		return
	}

	resp.Message = h.tr.Sprintf(c.Request.Context(), requestLanguage(c), service.WelcomeBackFormat, resp.User.Name)
	c.JSON(http.StatusOK, resp)
}
