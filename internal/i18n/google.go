package i18n

import (
	"context"
	"errors"
	"fmt"

	"cropplanner/internal/config"

	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

var errNoTranslation = errors.New("no translation returned")

// GoogleTranslator calls the Cloud Translation v2 API
type GoogleTranslator struct {
	svc *translate.Service
}

// NewGoogleTranslator creates a client authenticated with the configured API key
func NewGoogleTranslator(ctx context.Context, cfg *config.TranslateConfig, opts ...option.ClientOption) (*GoogleTranslator, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation client: %w", err)
	}
	return &GoogleTranslator{svc: svc}, nil
}

// Translate translates English text into target
func (g *GoogleTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	resp, err := g.svc.Translations.List([]string{text}, target).
		Source(English).
		Format("text").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to translate: %w", err)
	}
	if len(resp.Translations) == 0 || resp.Translations[0] == nil {
		return "", errNoTranslation
	}
	return resp.Translations[0].TranslatedText, nil
}
