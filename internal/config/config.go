package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Model     ModelConfig
	Auth      AuthConfig
	Email     EmailConfig
	Weather   WeatherConfig
	Gemini    GeminiConfig
	Translate TranslateConfig
	Market    MarketConfig
	Upload    UploadConfig
	Logging   LoggingConfig
}

// DatabaseConfig holds account database configuration.
// Driver is "sqlite" (default) or "postgres".
type DatabaseConfig struct {
	Driver             string
	DSN                string
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
	StaticDir      string
}

// ModelConfig points at the trained artifacts and reference data
type ModelConfig struct {
	ModelPath     string
	LabelsPath    string
	ReferencePath string // optional YAML override for the reference tables
}

// AuthConfig holds login token settings
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// EmailConfig holds SendGrid configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	Enabled        bool
}

// WeatherConfig holds OpenWeather configuration
type WeatherConfig struct {
	APIKey  string
	BaseURL string
	Timeout int
	Enabled bool
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey          string
	ChatModel       string
	VisionModel     string
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	Timeout         int
	Enabled         bool
}

// TranslateConfig holds Google Cloud Translation configuration. Hindi and
// Marathi messages are built in; the API serves every other language.
type TranslateConfig struct {
	APIKey  string
	Timeout int
	Enabled bool
}

// MarketConfig holds market price data settings
type MarketConfig struct {
	CSVPath      string
	DefaultCrops []string
}

// UploadConfig limits diagnosis uploads
type UploadConfig struct {
	MaxBytes int64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", "sqlite"),
			DSN:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "crop_planner"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
			StaticDir:      getEnv("STATIC_DIR", "./web"),
		},
		Model: ModelConfig{
			ModelPath:     getEnv("MODEL_PATH", "models/crop_model.json"),
			LabelsPath:    getEnv("LABELS_PATH", "models/label_encoder.json"),
			ReferencePath: getEnv("REFERENCE_TABLES_PATH", ""),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   time.Duration(getEnvAsInt("JWT_TTL_MINUTES", 24*60)) * time.Minute,
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("EMAIL_FROM", ""),
			FromName:       getEnv("EMAIL_FROM_NAME", "Smart Crop Planner"),
			Enabled:        getEnv("SENDGRID_API_KEY", "") != "" && getEnv("EMAIL_FROM", "") != "",
		},
		Weather: WeatherConfig{
			APIKey:  getEnv("OPENWEATHER_API_KEY", ""),
			BaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
			Timeout: getEnvAsInt("OPENWEATHER_TIMEOUT", 10),
			Enabled: getEnv("OPENWEATHER_API_KEY", "") != "",
		},
		Gemini: GeminiConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			ChatModel:       getEnv("GEMINI_CHAT_MODEL", "gemini-1.5-flash"),
			VisionModel:     getEnv("GEMINI_VISION_MODEL", "gemini-1.5-flash"),
			ChatTemperature: getEnvAsFloat("GEMINI_CHAT_TEMPERATURE", 0.7),
			ChatTopP:        getEnvAsFloat("GEMINI_CHAT_TOP_P", 0.95),
			ChatMaxTokens:   getEnvAsInt("GEMINI_CHAT_MAX_TOKENS", 2048),
			Timeout:         getEnvAsInt("GEMINI_TIMEOUT", 30),
			Enabled:         getEnv("GEMINI_API_KEY", "") != "",
		},
		Translate: TranslateConfig{
			APIKey:  getEnv("GOOGLE_TRANSLATE_API_KEY", ""),
			Timeout: getEnvAsInt("TRANSLATE_TIMEOUT", 5),
			Enabled: getEnv("GOOGLE_TRANSLATE_API_KEY", "") != "",
		},
		Market: MarketConfig{
			CSVPath:      getEnv("MARKET_CSV_PATH", "commodity_price.csv"),
			DefaultCrops: getEnvAsList("MARKET_DEFAULT_CROPS", []string{"Wheat", "Maize", "Banana"}),
		},
		Upload: UploadConfig{
			MaxBytes: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// GetDatabaseDSN returns the connection string for the configured driver
func (c *Config) GetDatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}

	if c.Database.Driver == "sqlite" {
		return "file:users.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
