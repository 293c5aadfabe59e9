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

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arimusic/playledger/internal/adapter/api"
	"github.com/arimusic/playledger/internal/adapter/api/middleware"
	"github.com/arimusic/playledger/internal/adapter/ipfs"
	"github.com/arimusic/playledger/internal/adapter/ledger"
	"github.com/arimusic/playledger/internal/adapter/metrics"
	"github.com/arimusic/playledger/internal/adapter/repository/postgres"
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
	log.Info("starting history API server", "strategy", cfg.QueryStrategy)

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

	store := ipfs.NewClient(cfg.IPFSAPIURL, cfg.IPFSAPIKey, cfg.IPFSAPISecret, cfg.IPFSTimeout, cfg.IPFSRateLimit, log)

	var provider domain.PointerProvider
	switch cfg.QueryStrategy {
	case "ledger":
		ethClient, err := ethclient.DialContext(ctx, cfg.LedgerRPCURL)
		if err != nil {
			log.Error("failed to connect to ledger RPC", "error", err)
			os.Exit(1)
		}
		defer ethClient.Close()

		scanner, err := ledger.NewScanner(ethClient, cfg.LedgerContractAddress, log)
		if err != nil {
			log.Error("failed to create ledger scanner", "error", err)
			os.Exit(1)
		}
		provider = usecase.NewLedgerPointerProvider(scanner)
	case "index":
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
		provider = usecase.NewIndexPointerProvider(postgres.NewBatchIndex(db, log))
	default:
		log.Error("unknown query strategy", "strategy", cfg.QueryStrategy)
		os.Exit(1)
	}

	historyUseCase := usecase.NewHistoryUseCase(provider, store, log)

	historyRouter := api.NewHistoryRouter(log, historyUseCase, cfg.QueryStrategy, m)
	apiServer := &http.Server{
		Addr:         cfg.APIServerAddr,
		Handler:      middleware.Logging(log)(historyRouter),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting history API server", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("history API server failed", "error", err)
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
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("history API server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
