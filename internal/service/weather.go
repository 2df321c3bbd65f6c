package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cropplanner/internal/config"
	"cropplanner/internal/model"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrWeatherDisabled is returned when no OpenWeather API key is configured
var ErrWeatherDisabled = errors.New("weather lookups are not enabled (missing API key)")

// WeatherAPIError is a non-200 answer from OpenWeather
type WeatherAPIError struct {
	StatusCode int
	Message    string
}

func (e *WeatherAPIError) Error() string {
	return e.Message
}

// WeatherClient fetches current conditions from OpenWeather
type WeatherClient struct {
	config     *config.WeatherConfig
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[*model.Weather]
	logger     *zap.Logger
}

// NewWeatherClient creates a client. The breaker opens after 5 consecutive
// failures; answers like "city not found" and canceled requests are not
// failures.
func NewWeatherClient(cfg *config.WeatherConfig, logger *zap.Logger) *WeatherClient {
	c := &WeatherClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}

	c.cb = gobreaker.NewCircuitBreaker[*model.Weather](gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// client disconnects are not upstream failures
			if errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *WeatherAPIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// IsEnabled returns whether an API key is configured
func (c *WeatherClient) IsEnabled() bool {
	return c.config.Enabled
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Message string `json:"message"`
}

// Current returns the current weather for city
func (c *WeatherClient) Current(ctx context.Context, city string) (*model.Weather, error) {
	if !c.config.Enabled {
		return nil, ErrWeatherDisabled
	}

	city = strings.TrimSpace(city)
	if city == "" {
		return nil, &WeatherAPIError{StatusCode: http.StatusBadRequest, Message: "city is required"}
	}

	return c.cb.Execute(func() (*model.Weather, error) {
		return c.fetch(ctx, city)
	})
}

func (c *WeatherClient) fetch(ctx context.Context, city string) (*model.Weather, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.config.APIKey)
	q.Set("units", "metric")
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/data/2.5/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var data openWeatherResponse
	decodeErr := json.Unmarshal(body, &data)

	if resp.StatusCode != http.StatusOK {
		msg := "Failed to fetch weather"
		if decodeErr == nil && data.Message != "" {
			msg = data.Message
		}
		c.logger.Debug("weather lookup failed", zap.String("city", city), zap.Int("status", resp.StatusCode))
		return nil, &WeatherAPIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", decodeErr)
	}

	w := &model.Weather{
		City:        data.Name,
		Temperature: data.Main.Temp,
		Humidity:    data.Main.Humidity,
		Rainfall:    data.Rain.OneHour,
	}
	if w.City == "" {
		w.City = city
	}
	if len(data.Weather) > 0 {
		w.Description = data.Weather[0].Description
	}
	return w, nil
}
