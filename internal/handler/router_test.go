package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cropplanner/internal/agronomy"
	"cropplanner/internal/classifier"
	"cropplanner/internal/config"
	"cropplanner/internal/i18n"
	"cropplanner/internal/model"
	"cropplanner/internal/repository"
	"cropplanner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type echoGenerator struct{}

func (echoGenerator) Chat(ctx context.Context, history []model.ChatMessage, message string) (string, error) {
	if message == "fail" {
		return "", errors.New("quota exceeded")
	}
	return "You asked: " + message, nil
}

func (echoGenerator) DescribeImage(ctx context.Context, prompt, format string, image []byte) (string, error) {
	return `{"condition":"healthy","advice":"Keep watering.","confidence":0.9}`, nil
}

type testServer struct {
	router *gin.Engine
	recs   *service.RecommendationService
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	store, err := repository.NewStore(repository.DriverSQLite, "file::memory:?_time_format=sqlite", 1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m, err := classifier.Load(
		filepath.Join("testdata", "crop_model.json"),
		filepath.Join("testdata", "label_encoder.json"),
	)
	require.NoError(t, err)
	engine, err := service.NewEngine(m, agronomy.Default())
	require.NoError(t, err)
	recs := service.NewRecommendationService(engine, store, logger)
	t.Cleanup(recs.Wait)

	auth := service.NewAuthService(store, service.NoopMailer{}, config.AuthConfig{
		JWTSecret:  "handler-test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, logger)

	owm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Atlantis" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"city not found"}`))
			return
		}
		w.Write([]byte(`{"name":"Pune","main":{"temp":27,"humidity":60},"weather":[{"description":"haze"}]}`))
	}))
	t.Cleanup(owm.Close)
	weather := service.NewWeatherClient(&config.WeatherConfig{APIKey: "k", BaseURL: owm.URL, Timeout: 5, Enabled: true}, logger)

	csvPath := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Arrival_Date,Commodity,Modal_Price\n01/02/2026,Wheat,2300\n02/02/2026,Wheat,2350\n"), 0o644))
	market := service.NewMarketService(config.MarketConfig{CSVPath: csvPath}, logger)

	tr, err := i18n.New(nil, 0, logger)
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router, Handlers{
		Health:         NewHealthHandler(store, "test"),
		Auth:           NewAuthHandler(auth, tr),
		Recommendation: NewRecommendationHandler(recs, 20, 100),
		Insights:       NewInsightsHandler(weather, market, tr),
		Assistant: NewAssistantHandler(
			service.NewChatService(echoGenerator{}, logger),
			service.NewDiagnosisService(nil, 1<<20, logger),
			tr,
		),
		Language: NewLanguageHandler(tr),
	}, auth, tr)

	reg, err := auth.Register(context.Background(), "Asha", "asha@example.com", "s3cret")
	require.NoError(t, err)
	token, _, err := auth.IssueToken(reg.User.ID)
	require.NoError(t, err)

	return &testServer{router: router, recs: recs, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/version", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", decode[map[string]string](t, w)["version"])
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/crops/wheat/season", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/crops/wheat/season", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/crops/wheat/season", nil)
	req.Header.Set("Authorization", "Basic "+s.token)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		body map[string]string
		want int
	}{
		{"register", "/api/v1/auth/register", map[string]string{"name": "Ravi", "email": "ravi@example.com", "password": "pw"}, http.StatusCreated},
		{"register duplicate", "/api/v1/auth/register", map[string]string{"name": "Asha", "email": "asha@example.com", "password": "pw"}, http.StatusConflict},
		{"register bad email", "/api/v1/auth/register", map[string]string{"name": "X", "email": "nope", "password": "pw"}, http.StatusBadRequest},
		{"register missing password", "/api/v1/auth/register", map[string]string{"name": "X", "email": "x@example.com"}, http.StatusBadRequest},
		{"register long password", "/api/v1/auth/register", map[string]string{"name": "a", "email": "a@b.co", "password": strings.Repeat("p", 80)}, http.StatusBadRequest},
		{"login", "/api/v1/auth/login", map[string]string{"email": "asha@example.com", "password": "s3cret"}, http.StatusOK},
		{"login unknown", "/api/v1/auth/login", map[string]string{"email": "who@example.com", "password": "s3cret"}, http.StatusNotFound},
		{"login wrong password", "/api/v1/auth/login", map[string]string{"email": "asha@example.com", "password": "bad"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.path, tt.body, false)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestLoginReturnsUsableToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "asha@example.com", "password": "s3cret"}, false)
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[model.LoginResponse](t, w)
	assert.NotEmpty(t, login.Token)
	assert.NotContains(t, w.Body.String(), "password")

	s.token = login.Token
	w = s.do(t, http.MethodGet, "/api/v1/crops/maize/companions", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecommendAndHistory(t *testing.T) {
	s := newTestServer(t)

	body := map[string]float64{"nitrogen": 50, "phosphorus": 50, "potassium": 50, "temperature": 25, "humidity": 80, "ph": 6.5}
	w := s.do(t, http.MethodPost, "/api/v1/recommendations", body, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[model.RecommendationResponse](t, w)
	require.Len(t, resp.Recommendations, 3)
	assert.Equal(t, "Banana", resp.Recommendations[0].Crop)
	assert.Equal(t, []string{"Urea", "DAP", "MOP"}, resp.Recommendations[0].Fertilizers)
	assert.Equal(t, "Feb-Mar", resp.Recommendations[0].Season.Sowing)

	s.recs.Wait()

	w = s.do(t, http.MethodGet, "/api/v1/recommendations/history?limit=5", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		History []model.HistoryEntry `json:"history"`
	}](t, w)
	require.Len(t, history.History, 1)
	assert.Equal(t, 50.0, history.History[0].Sample.Nitrogen)
	assert.Equal(t, "Banana", history.History[0].TopCrops[0])

	w = s.do(t, http.MethodGet, "/api/v1/recommendations/history?limit=abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendValidatesRanges(t *testing.T) {
	s := newTestServer(t)

	valid := map[string]float64{"nitrogen": 0, "phosphorus": 5, "potassium": 5, "temperature": -10, "humidity": 10, "ph": 0}
	w := s.do(t, http.MethodPost, "/api/v1/recommendations", valid, true)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	tests := []struct {
		field string
		value float64
	}{
		{"nitrogen", 141},
		{"phosphorus", 4},
		{"potassium", 206},
		{"temperature", 51},
		{"humidity", 9},
		{"ph", 14.5},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			body := map[string]float64{}
			for k, v := range valid {
				body[k] = v
			}
			body[tt.field] = tt.value
			w := s.do(t, http.MethodPost, "/api/v1/recommendations", body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	missing := map[string]float64{"nitrogen": 50}
	w = s.do(t, http.MethodPost, "/api/v1/recommendations", missing, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCropLookups(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/crops/%20corn%20/season", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	season := decode[model.SeasonResponse](t, w)
	assert.Equal(t, "Maize", season.Crop)
	assert.Equal(t, "Jun-Jul", season.Sowing)
	assert.Equal(t, "Sep-Oct", season.Harvesting)

	w = s.do(t, http.MethodGet, "/api/v1/crops/kale/season", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	season = decode[model.SeasonResponse](t, w)
	assert.Equal(t, agronomy.Unknown, season.Sowing)

	w = s.do(t, http.MethodGet, "/api/v1/crops/WHEAT/fertilizers?n=50&p=50&k=50", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	ferts := decode[model.FertilizerResponse](t, w)
	assert.Equal(t, []string{"Urea"}, ferts.Fertilizers)
	require.NotNil(t, ferts.Ideal)
	assert.Equal(t, 100.0, ferts.Ideal.N)

	w = s.do(t, http.MethodGet, "/api/v1/crops/kale/fertilizers?n=0&p=0&k=0", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[model.FertilizerResponse](t, w).Fertilizers)
	assert.Contains(t, w.Body.String(), `"fertilizers":[]`)

	w = s.do(t, http.MethodGet, "/api/v1/crops/wheat/fertilizers?n=50&p=50", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/crops/maize/companions", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Beans", "Sunflower", "Soybean"}, decode[model.CompanionResponse](t, w).Companions)

	w = s.do(t, http.MethodGet, "/api/v1/crops", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Banana", "Cowpea", "Groundnut", "Maize", "Wheat"}, decode[model.CropListResponse](t, w).Crops)
}

func TestWeatherEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/weather", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/weather?city=Pune", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	weather := decode[model.Weather](t, w)
	assert.Equal(t, "Pune", weather.City)
	assert.Zero(t, weather.Rainfall)

	w = s.do(t, http.MethodGet, "/api/v1/weather?city=Atlantis", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "city not found")
}

func TestMarketTrendsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/market/trends?crops=wheat,cowpea", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	trends := decode[model.MarketTrends](t, w)
	require.Len(t, trends.LatestPrices, 1)
	assert.Equal(t, 2350.0, trends.LatestPrices[0].Price)

	w = s.do(t, http.MethodGet, "/api/v1/market/trends?crops=cowpea", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssistantChat(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/assistant/chat", map[string]any{"message": "Best crop for clay soil?"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[model.ChatResponse](t, w)
	assert.Equal(t, "You asked: Best crop for clay soil?", resp.Reply)
	assert.Len(t, resp.History, 2)

	prior := []map[string]string{{"role": "user", "content": "Hello"}, {"role": "assistant", "content": "Hi!"}}
	w = s.do(t, http.MethodPost, "/api/v1/assistant/chat", map[string]any{"message": "fail", "history": prior}, true)
	require.Equal(t, http.StatusBadGateway, w.Code)
	failed := decode[model.ChatResponse](t, w)
	assert.Equal(t, service.FallbackReply, failed.Reply)
	assert.Len(t, failed.History, 2)

	bad := map[string]any{"message": "hi", "history": []map[string]string{{"role": "system", "content": "x"}}}
	w = s.do(t, http.MethodPost, "/api/v1/assistant/chat", bad, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAssistantDiagnose(t *testing.T) {
	s := newTestServer(t)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	post := func(field, filename string, data []byte) *httptest.ResponseRecorder {
		return s.upload(t, "/api/v1/assistant/diagnose", field, filename, data)
	}

	w := post("image", "leaf.png", img.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := decode[model.Diagnosis](t, w)
	assert.Equal(t, service.StubDiagnosisMessage, d.Message)
	assert.Equal(t, "image/png", d.ContentType)

	w = s.upload(t, "/api/v1/assistant/diagnose?lang=mr", "image", "leaf.png", img.Bytes())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "प्रतिमा प्राप्त झाली. वनस्पती/मातीच्या आरोग्याचे निदान करण्यासाठी तुम्ही येथे मॉडेल जोडू शकता.", decode[model.Diagnosis](t, w).Message)

	w = post("photo", "leaf.png", img.Bytes())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post("image", "notes.txt", []byte(strings.Repeat("plain text ", 10)))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func (s *testServer) upload(t *testing.T, path, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartImage(t, field, filename, data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestLocalizedResponses(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login?lang=hi", map[string]string{"email": "asha@example.com", "password": "s3cret"}, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", w.Header().Get("Content-Language"))
	assert.Equal(t, "फिर से स्वागत है, Asha!", decode[model.LoginResponse](t, w).Message)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"asha@example.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "mr-IN,mr;q=0.9,en;q=0.5")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "चुकीचा पासवर्ड", decode[map[string]string](t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/v1/auth/register?lang=Marathi", map[string]string{"name": "Ravi", "email": "ravi@example.com", "password": "pw"}, false)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "नोंदणी यशस्वी! परंतु ईमेल पाठवता आला नाही.", decode[model.RegisterResponse](t, w).Message)

	w = s.do(t, http.MethodGet, "/api/v1/market/trends?crops=cowpea&lang=hi", nil, true)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "चयनित फसलों के लिए कोई डेटा नहीं मिला", decode[map[string]string](t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/v1/assistant/chat?lang=hi", map[string]any{"message": "fail"}, true)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "क्षमा करें, मुझे कोई उत्तर नहीं मिल सका।", decode[model.ChatResponse](t, w).Reply)

	w = s.do(t, http.MethodGet, "/api/v1/market/trends?crops=cowpea&lang=fr", nil, true)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "en", w.Header().Get("Content-Language"))
	assert.Equal(t, service.ErrNoMarketData.Error(), decode[map[string]string](t, w)["error"])
}

func TestLanguagesEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/languages?lang=mr", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Languages []string `json:"languages"`
		Current   string   `json:"current"`
	}](t, w)
	assert.Equal(t, []string{"en", "hi", "mr"}, resp.Languages)
	assert.Equal(t, "mr", resp.Current)
}
