package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cropplanner/internal/agronomy"
	"cropplanner/internal/classifier"
	"cropplanner/internal/config"
	"cropplanner/internal/handler"
	"cropplanner/internal/i18n"
	"cropplanner/internal/logging"
	"cropplanner/internal/repository"
	"cropplanner/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Smart Crop Planner",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Load model artifacts and reference tables
	cropModel, err := classifier.Load(cfg.Model.ModelPath, cfg.Model.LabelsPath)
	if err != nil {
		logger.Fatal("Failed to load crop model", zap.Error(err))
	}
	logger.Info("Crop model loaded",
		zap.String("model", cfg.Model.ModelPath),
		zap.Strings("classes", cropModel.Labels.Classes),
	)

	tables := agronomy.Default()
	if cfg.Model.ReferencePath != "" {
		tables, err = agronomy.LoadFile(cfg.Model.ReferencePath)
		if err != nil {
			logger.Fatal("Failed to load reference tables", zap.Error(err))
		}
		logger.Info("Reference tables loaded", zap.String("path", cfg.Model.ReferencePath))
	}

	// Initialize database connection
	store, err := repository.NewStore(
		cfg.Database.Driver,
		cfg.GetDatabaseDSN(),
		cfg.Database.MaxConnections,
		cfg.Database.MaxIdleConnections,
	)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	// Optional external integrations
	var mailer service.Mailer = service.NoopMailer{}
	if cfg.Email.Enabled {
		mailer = service.NewSendGridMailer(cfg.Email)
		logger.Info("SendGrid email enabled", zap.String("from", cfg.Email.FromEmail))
	} else {
		logger.Warn("Email is disabled - set SENDGRID_API_KEY to send registration emails")
	}

	weather := service.NewWeatherClient(&cfg.Weather, logger)
	if !weather.IsEnabled() {
		logger.Warn("Weather is disabled - set OPENWEATHER_API_KEY to enable lookups")
	}

	var generator service.Generator
	if cfg.Gemini.Enabled {
		gemini, err := service.NewGeminiClient(context.Background(), &cfg.Gemini)
		if err != nil {
			logger.Fatal("Failed to create Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		generator = gemini
		logger.Info("Gemini client initialized",
			zap.String("chat_model", cfg.Gemini.ChatModel),
			zap.String("vision_model", cfg.Gemini.VisionModel),
			zap.Float64("chat_temperature", cfg.Gemini.ChatTemperature),
			zap.Int("chat_max_tokens", cfg.Gemini.ChatMaxTokens),
		)
	}

	var backend i18n.Backend
	if cfg.Translate.Enabled {
		google, err := i18n.NewGoogleTranslator(context.Background(), &cfg.Translate)
		if err != nil {
			logger.Fatal("Failed to create translation client", zap.Error(err))
		}
		backend = google
		logger.Info("Google Translate enabled")
	}
	translator, err := i18n.New(backend, time.Duration(cfg.Translate.Timeout)*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to load message catalog", zap.Error(err))
	}
	logger.Info("Languages available", zap.Strings("builtin", translator.Languages()))

	// Initialize services
	engine, err := service.NewEngine(cropModel, tables)
	if err != nil {
		logger.Fatal("Failed to create recommendation engine", zap.Error(err))
	}
	logger.Info("Reference tables ready", zap.Strings("crops", engine.Crops()))
	recService := service.NewRecommendationService(engine, store, logger)
	authService := service.NewAuthService(store, mailer, cfg.Auth, logger)
	marketService := service.NewMarketService(cfg.Market, logger)
	chatService := service.NewChatService(generator, logger)
	if !chatService.IsEnabled() {
		logger.Warn("Gemini is disabled - set GEMINI_API_KEY; chat is unavailable and diagnosis returns a placeholder")
	}
	diagnosisService := service.NewDiagnosisService(generator, cfg.Upload.MaxBytes, logger)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(logger))
	router.MaxMultipartMemory = cfg.Upload.MaxBytes

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	handler.RegisterRoutes(router, handler.Handlers{
		Health:         handler.NewHealthHandler(store, Version),
		Auth:           handler.NewAuthHandler(authService, translator),
		Recommendation: handler.NewRecommendationHandler(recService, defaultHistoryLimit, maxHistoryLimit),
		Insights:       handler.NewInsightsHandler(weather, marketService, translator),
		Assistant:      handler.NewAssistantHandler(chatService, diagnosisService, translator),
		Language:       handler.NewLanguageHandler(translator),
	}, authService, translator)

	// Serve static files (frontend)
	setupStaticFiles(router, cfg.Server.StaticDir, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	recService.Wait()
	logger.Info("Server stopped")
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
