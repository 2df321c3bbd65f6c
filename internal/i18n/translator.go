// Package i18n localizes user-facing messages. Hindi and Marathi come from
// a built-in catalog; other languages go to a translation backend when one
// is configured. Any failure returns the English text.
package i18n

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// English is the source language of every message
const English = "en"

// maxCached bounds the backend translation cache
const maxCached = 1024

//go:embed messages.yaml
var builtinCatalog []byte

// languageNames lets clients pick a language by name as well as by code
var languageNames = map[string]string{
	"english": "en",
	"hindi":   "hi",
	"marathi": "mr",
}

// Backend translates English text into the target language
type Backend interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

type cacheKey struct {
	lang string
	text string
}

// Translator localizes messages. It is safe for concurrent use.
type Translator struct {
	catalog map[string]map[string]string
	backend Backend
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[cacheKey]string
}

// New creates a translator over the built-in catalog. backend may be nil.
func New(backend Backend, timeout time.Duration, logger *zap.Logger) (*Translator, error) {
	catalog, err := ParseCatalog(builtinCatalog)
	if err != nil {
		return nil, err
	}
	return &Translator{
		catalog: catalog,
		backend: backend,
		timeout: timeout,
		logger:  logger,
		cache:   make(map[cacheKey]string),
	}, nil
}

// ParseCatalog decodes a YAML catalog of language -> English text -> translation
func ParseCatalog(data []byte) (map[string]map[string]string, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse message catalog: %w", err)
	}
	catalog := make(map[string]map[string]string, len(raw))
	for lang, msgs := range raw {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("message catalog: bad language %q: %w", lang, err)
		}
		catalog[baseOf(tag)] = msgs
	}
	return catalog, nil
}

// Languages lists the languages served without a backend, English first
func (t *Translator) Languages() []string {
	out := make([]string, 0, len(t.catalog))
	for lang := range t.catalog {
		if lang != English {
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return append([]string{English}, out...)
}

// Supports reports whether lang can be served
func (t *Translator) Supports(lang string) bool {
	if lang == "" || lang == "und" {
		return false
	}
	if lang == English || t.catalog[lang] != nil {
		return true
	}
	return t.backend != nil
}

// Negotiate picks the response language from an explicit choice (a code
// such as "hi" or a name such as "Marathi") or else from an Accept-Language
// header. It falls back to English.
func (t *Translator) Negotiate(choice, acceptLanguage string) string {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if code, ok := languageNames[choice]; ok {
		return code
	}
	if tag, err := language.Parse(choice); err == nil {
		if lang := baseOf(tag); t.Supports(lang) {
			return lang
		}
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return English
	}
	for _, tag := range tags {
		if lang := baseOf(tag); t.Supports(lang) {
			return lang
		}
	}
	return English
}

// Translate returns text in lang. English, empty text and any lookup or
// backend failure return text unchanged.
func (t *Translator) Translate(ctx context.Context, text, lang string) string {
	if lang == English || lang == "" || strings.TrimSpace(text) == "" {
		return text
	}
	if msg, ok := t.catalog[lang][text]; ok {
		return msg
	}
	if t.backend == nil {
		return text
	}

	key := cacheKey{lang: lang, text: text}
	t.mu.RLock()
	cached, ok := t.cache[key]
	t.mu.RUnlock()
	if ok {
		return cached
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	out, err := t.backend.Translate(ctx, text, lang)
	if err != nil || strings.TrimSpace(out) == "" {
		t.logger.Debug("translation failed, using English",
			zap.String("lang", lang),
			zap.Error(err),
		)
		return text
	}

	t.mu.Lock()
	if len(t.cache) < maxCached {
		t.cache[key] = out
	}
	t.mu.Unlock()
	return out
}

// Sprintf formats a catalog message in lang. Formats missing from the
// catalog are formatted in English and then translated as a whole.
func (t *Translator) Sprintf(ctx context.Context, lang, format string, args ...any) string {
	if f, ok := t.catalog[lang][format]; ok {
		return fmt.Sprintf(f, args...)
	}
	return t.Translate(ctx, fmt.Sprintf(format, args...), lang)
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
