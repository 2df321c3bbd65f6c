package handler

import (
	"net/http"

	"cropplanner/internal/i18n"

	"github.com/gin-gonic/gin"
)

const languageKey = "lang"

// Localize picks the response language from ?lang= or Accept-Language
func Localize(tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := tr.Negotiate(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Set(languageKey, lang)
		c.Header("Content-Language", lang)
		c.Next()
	}
}

func requestLanguage(c *gin.Context) string {
	if lang := c.GetString(languageKey); lang != "" {
		return lang
	}
	return i18n.English
}

func localize(c *gin.Context, tr *i18n.Translator, text string) string {
	return tr.Translate(c.Request.Context(), text, requestLanguage(c))
}

// LanguageHandler reports the supported languages
type LanguageHandler struct {
	tr *i18n.Translator
}

// NewLanguageHandler creates a new language handler
func NewLanguageHandler(tr *i18n.Translator) *LanguageHandler {
	return &LanguageHandler{tr: tr}
}

// Languages handles GET /api/v1/languages
func (h *LanguageHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": h.tr.Languages(),
		"current":   requestLanguage(c),
	})
}
