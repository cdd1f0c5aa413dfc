package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"storyforge-server/internal/config"
	"storyforge-server/internal/generation"
	"storyforge-server/internal/handler"
	"storyforge-server/internal/illustration"
	"storyforge-server/internal/logger"
	"storyforge-server/internal/middleware"
	"storyforge-server/internal/story"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- 1. Загрузка конфигурации ---
	cfg := config.Load()

	// --- 2. Инициализация логгера ---
	appLogger, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutputPath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Logger initialized", zap.String("level", cfg.LogLevel))
	appLogger.Info("Starting StoryForge Server...", zap.String("env", cfg.AppEnv))

	// --- 3. Инициализация AI клиента ---
	aiClient, err := generation.NewAIClient(cfg.AI, appLogger.Named("AIClient"))
	if err != nil {
		appLogger.Fatal("Failed to initialize AI client", zap.Error(err))
	}

	// --- 4. Инициализация сервисов ---
	storyService := story.NewService(aiClient, cfg.AI.Model, appLogger.Named("StoryService"))

	illustrationService, err := illustration.NewService(appLogger.Named("IllustrationService"), cfg.Image)
	if err != nil {
		appLogger.Fatal("Failed to initialize illustration service", zap.Error(err))
	}
	appLogger.Info("Services initialized")

	// --- 5. Настройка HTTP сервера (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.AppEnv == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(appLogger))
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(middleware.PerClientRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, appLogger))

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	apiHandler := handler.NewHandler(storyService, illustrationService, cfg.Image.SavePath, appLogger.Named("Handler"))
	apiHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- 6. Запуск сервера ---
	go func() {
		appLogger.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// --- 7. Ожидание сигнала завершения ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down StoryForge Server...")

	// --- 8. Graceful Shutdown ---
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("StoryForge Server shut down gracefully")
}
