package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/arimusic/playledger/internal/adapter/api"
	"github.com/arimusic/playledger/internal/adapter/api/middleware"
	"github.com/arimusic/playledger/internal/adapter/metrics"
	"github.com/arimusic/playledger/internal/adapter/repository/postgres"
	redisrepo "github.com/arimusic/playledger/internal/adapter/repository/redis"
	"github.com/arimusic/playledger/internal/adapter/repository/wal"
	"github.com/arimusic/playledger/internal/domain"
	"github.com/arimusic/playledger/internal/pkg/config"
	"github.com/arimusic/playledger/internal/pkg/logger"
	"github.com/arimusic/playledger/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewPipelineMetrics()

	// --- Metrics Server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux,
	}

	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("could not connect to redis, will proceed in WAL-only mode", "error", err)
	}

	// --- Repositories ---
	walRepo, err := wal.NewWALRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, log)
	if err != nil {
		log.Error("failed to initialize WAL repository", "error", err)
		os.Exit(1)
	}
	defer walRepo.Close()

	apiKeyRepo := postgres.NewAPIKeyRepository(db, log, cfg.APIKeyCacheTTL, m)
	buffer := redisrepo.NewPlayLogBuffer(redisClient, log, walRepo)

	// Start Redis health check and WAL replay loop
	go buffer.StartHealthCheck(ctx, 5*time.Second)

	// --- Use Case and Router ---
	keyer, err := domain.NewBatchKeyer(cfg.BatchWindow)
	if err != nil {
		log.Error("invalid batch window configuration", "error", err)
		os.Exit(1)
	}
	ingestUseCase := usecase.NewIngestStreamUseCase(buffer, keyer, log)

	ingestRouter := api.NewIngestRouter(cfg, log, apiKeyRepo, ingestUseCase, m)
	ingestServer := &http.Server{
		Addr:         cfg.IngestServerAddr,
		Handler:      middleware.Logging(log)(ingestRouter),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting ingest server", "addr", ingestServer.Addr)
		if err := ingestServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ingest server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}
	if err := ingestServer.Shutdown(shutdownCtx); err != nil {
		log.Error("ingest server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
