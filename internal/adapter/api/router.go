package api

import (
	"log/slog"
	"net/http"

	"github.com/arimusic/playledger/internal/adapter/api/handler"
	"github.com/arimusic/playledger/internal/adapter/api/middleware"
	"github.com/arimusic/playledger/internal/adapter/metrics"
	"github.com/arimusic/playledger/internal/domain"
	"github.com/arimusic/playledger/internal/pkg/config"
	"github.com/arimusic/playledger/internal/usecase"
)

// NewIngestRouter creates and configures the HTTP router for the ingest service.
func NewIngestRouter(
	cfg *config.Config,
	logger *slog.Logger,
	apiKeyRepo domain.APIKeyRepository,
	ingestUseCase *usecase.IngestStreamUseCase,
	m *metrics.PipelineMetrics,
) http.Handler {
	mux := http.NewServeMux()

	ingestHandler := handler.NewIngestHandler(ingestUseCase, logger, m, cfg.MaxEventSize)
	authMiddleware := middleware.Auth(apiKeyRepo, logger)

	mux.Handle("POST /events", authMiddleware(ingestHandler))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// NewHistoryRouter creates and configures the HTTP router for the query service.
func NewHistoryRouter(
	logger *slog.Logger,
	historyUseCase *usecase.HistoryUseCase,
	strategy string,
	m *metrics.PipelineMetrics,
) http.Handler {
	mux := http.NewServeMux()

	historyHandler := handler.NewHistoryHandler(historyUseCase, strategy, logger, m)

	mux.Handle("GET /tracks/{trackId}/history", historyHandler)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}
