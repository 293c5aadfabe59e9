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

	"github.com/arimusic/playledger/internal/adapter/ipfs"
	"github.com/arimusic/playledger/internal/adapter/metrics"
	"github.com/arimusic/playledger/internal/adapter/repository/postgres"
	redisrepo "github.com/arimusic/playledger/internal/adapter/repository/redis"
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
	log.Info("starting sealer worker")

	m := metrics.NewPipelineMetrics()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Wire the pipeline. The sealer runs without a WAL: the drain path
	// requires Redis anyway.
	buffer := redisrepo.NewPlayLogBuffer(redisClient, log, nil)
	index := postgres.NewBatchIndex(db, log)
	store := ipfs.NewClient(cfg.IPFSAPIURL, cfg.IPFSAPIKey, cfg.IPFSAPISecret, cfg.IPFSTimeout, cfg.IPFSRateLimit, log)

	keyer, err := domain.NewBatchKeyer(cfg.BatchWindow)
	if err != nil {
		log.Error("invalid batch window configuration", "error", err)
		os.Exit(1)
	}

	sealUseCase := usecase.NewSealBatchUseCase(buffer, store, index, nil, log,
		cfg.GzipPayloads, cfg.SealMaxRetries, cfg.SealRetryBackoff)

	ticker := time.NewTicker(cfg.SealInterval)
	defer ticker.Stop()

	log.Info("sealer worker started", "interval", cfg.SealInterval, "window", cfg.BatchWindow)

Loop:
	for {
		select {
		case <-ticker.C:
			key := keyer.SealableKey(time.Now().UTC())

			depth, err := buffer.Len(ctx, key)
			if err == nil {
				m.BufferDepth.Set(float64(depth))
			}

			ptr, err := sealUseCase.Seal(ctx, key)
			if err != nil {
				log.Error("error sealing batch", "error", err, "key", key)
				continue
			}
			if ptr != nil {
				m.BatchesSealed.Inc()
				m.BatchRecords.Observe(float64(depth))
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down sealer loop")
			break Loop
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}

	log.Info("sealer worker shut down gracefully")
}
