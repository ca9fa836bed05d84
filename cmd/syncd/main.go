// Command syncd runs the offline-first restaurant sync facade: a local
// replica over SQLite, a REST client for the authoritative service, durable
// offline queues with connectivity-triggered replay, and an HTTP API for
// rendering clients.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tkaralis/go-restaurant-sync/internal/config"
	httpapi "github.com/tkaralis/go-restaurant-sync/internal/http"
	"github.com/tkaralis/go-restaurant-sync/internal/observability"
	"github.com/tkaralis/go-restaurant-sync/internal/remote"
	"github.com/tkaralis/go-restaurant-sync/internal/repo"
	"github.com/tkaralis/go-restaurant-sync/internal/services"
	"github.com/tkaralis/go-restaurant-sync/internal/sysutil"
)

func main() {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), "dev")

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	store := repo.NewStore(cfg.DBPath, cfg.OTEL.Enabled)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()
	// Surface replica problems at startup, but keep going: the coordinator
	// degrades to network-only when the store is unavailable.
	if _, err := store.DB(); err != nil {
		logger.Warn().Err(err).Str("path", cfg.DBPath).Msg("local replica unavailable")
	}

	client := remote.NewClient(cfg.RemoteBaseURL, nil, cfg.RemoteTimeout, logger)
	prober := services.NewProber(client.Ping, cfg.Replay.ProbeInterval, logger)
	go prober.Run(ctx)

	queue := services.NewOfflineQueue(store, logger)
	svc := services.NewSyncService(store, client, queue, prober.IsOnline, logger)

	trigger := services.NewReplayTrigger(svc, prober, cfg.Replay.Interval, logger)
	trigger.Start(ctx)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, svc, store, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Let in-flight background refreshes settle before the store closes.
	svc.WaitRefresh()
}
