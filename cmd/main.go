package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventbem/chat-service/internal/auth"
	"github.com/eventbem/chat-service/internal/config"
	"github.com/eventbem/chat-service/internal/handler"
	"github.com/eventbem/chat-service/internal/hub"
	"github.com/eventbem/chat-service/internal/presence"
	"github.com/eventbem/chat-service/internal/service"
	"github.com/eventbem/chat-service/internal/store"
	"github.com/eventbem/chat-service/pkg/database"
	"github.com/eventbem/chat-service/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log.Init(cfg.Log)
	logger := log.L()
	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chat service")

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret must be configured")
	}

	// Connect to the relational store
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	// Presence tracker (cluster-wide user-online keys)
	instanceID := uuid.New().String()
	tracker, err := presence.NewRedisTracker(cfg.Redis, instanceID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer tracker.Close()
	logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tracker.StartHeartbeat(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start presence heartbeat")
	}
	defer tracker.StopHeartbeat()

	// Room registry and chat service
	registry := hub.NewRegistry()
	validator := newValidator(cfg.Auth)
	chatSvc := service.NewChatService(registry, st, validator, tracker, cfg.Chat.HistoryLimit)

	// HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(log.GinMiddleware(logger), gin.Recovery())

	wsHandler := handler.NewWSHandler(chatSvc, cfg.WebSocket)
	wsHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  registry.RoomCount(),
		})
	})

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("chat service stopped")
}

// newValidator builds the token validator sharing the account service's
// signing secret. The one-hour duration only matters for locally issued
// tokens (development tooling); validation trusts the token's own expiry.
func newValidator(cfg config.AuthConfig) auth.Validator {
	return auth.NewManager(cfg.JWTSecret, cfg.Issuer, time.Hour)
}
