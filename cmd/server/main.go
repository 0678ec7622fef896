package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsapp-bridge/config"
	"whatsapp-bridge/db"
	"whatsapp-bridge/handlers"
	"whatsapp-bridge/internal/history"
	"whatsapp-bridge/internal/ratelimit"
	"whatsapp-bridge/internal/utils"
	"whatsapp-bridge/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger := utils.MustNewLogger(cfg.Logging).Sugar()
	defer logger.Sync()

	ctx := context.Background()

	var store history.Store
	switch cfg.History.Backend {
	case config.HistoryBackendRedis:
		client, err := db.NewRedisClient(ctx, cfg.History.RedisAddr)
		if err != nil {
			logger.Fatalw("redis: failed to connect", "error", err)
		}
		defer client.Close()
		store = history.NewRedisStore(client, cfg.History.TTL, cfg.History.MaxTurns)
	default:
		store = history.NewMemoryStore(cfg.History.MaxTurns)
	}

	llm, err := services.NewLLMService(cfg, logger)
	if err != nil {
		logger.Fatalw("llm: failed to initialise client", "error", err)
	}

	sender := services.NewWhatsAppService(cfg, logger)
	media := services.NewMediaService(cfg, logger)
	trimmer := services.NewTokenizer(cfg.LLM.Model, cfg.LLM.TokenLimit, cfg.LLM.MaxTokens)
	assistant := services.NewAssistantService(llm, sender, media, store, trimmer, logger)

	limiter := ratelimit.NewPerSender(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)

	router := setupRouter(cfg, assistant, limiter, logger)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("server listening", "addr", server.Addr, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server crashed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}

	logger.Infow("server stopped cleanly")
}

func setupRouter(cfg *config.Config, assistant handlers.Assistant, limiter *ratelimit.PerSender, logger *zap.SugaredLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	handlers.NewWebhookHandler(cfg, assistant, limiter, logger).RegisterRoutes(router)

	return router
}
