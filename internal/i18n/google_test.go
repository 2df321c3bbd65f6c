package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cropplanner/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newGoogleTranslator(t *testing.T, handler http.HandlerFunc) *GoogleTranslator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGoogleTranslator(context.Background(), &config.TranslateConfig{APIKey: "test-key", Enabled: true},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return g
}

func TestGoogleTranslator_Translate(t *testing.T) {
	g := newGoogleTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "User not found", q.Get("q"))
		assert.Equal(t, "ta", q.Get("target"))
		assert.Equal(t, "en", q.Get("source"))
		assert.Equal(t, "text", q.Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"translations":[{"translatedText":"பயனர் கிடைக்கவில்லை"}]}}`))
	})

	got, err := g.Translate(context.Background(), "User not found", "ta")
	require.NoError(t, err)
	assert.Equal(t, "பயனர் கிடைக்கவில்லை", got)
}

func TestGoogleTranslator_Errors(t *testing.T) {
	g := newGoogleTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	})
	_, err := g.Translate(context.Background(), "User not found", "ta")
	assert.Error(t, err)

	g = newGoogleTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"translations":[]}}`))
	})
	_, err = g.Translate(context.Background(), "User not found", "ta")
	assert.ErrorIs(t, err, errNoTranslation)
}

func TestGoogleTranslator_FailureFallsBackToEnglish(t *testing.T) {
	g := newGoogleTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	tr := newTranslator(t, g)

	assert.Equal(t, "User not found", tr.Translate(context.Background(), "User not found", "ta"))
}
