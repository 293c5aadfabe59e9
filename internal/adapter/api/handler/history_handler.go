package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/arimusic/playledger/internal/adapter/metrics"
	"github.com/arimusic/playledger/internal/domain"
	"github.com/arimusic/playledger/internal/usecase"
)

// HistoryHandler serves reconstructed play histories.
type HistoryHandler struct {
	useCase  *usecase.HistoryUseCase
	strategy string
	logger   *slog.Logger
	metrics  *metrics.PipelineMetrics
}

// NewHistoryHandler creates a new HistoryHandler. The strategy name is only
// used for logging and metrics labels; the use case already carries the
// chosen pointer provider.
func NewHistoryHandler(uc *usecase.HistoryUseCase, strategy string, logger *slog.Logger, m *metrics.PipelineMetrics) *HistoryHandler {
	return &HistoryHandler{
		useCase:  uc,
		strategy: strategy,
		logger:   logger,
		metrics:  m,
	}
}

// ServeHTTP handles GET /tracks/{trackId}/history.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	trackID, err := strconv.Atoi(r.PathValue("trackId"))
	if err != nil {
		http.Error(w, "Invalid track id", http.StatusBadRequest)
		return
	}

	logs, err := h.useCase.FindByTrack(r.Context(), trackID)
	if err != nil {
		h.count("error")

		var parseErr *domain.PayloadParseError
		switch {
		case errors.As(err, &parseErr):
			h.logger.Error("history reconstruction hit a corrupt batch", "error", err, "cid", parseErr.CID, "track_id", trackID)
			http.Error(w, "Stored batch is unreadable", http.StatusInternalServerError)
		case errors.Is(err, domain.ErrLedgerQueryFailed), errors.Is(err, domain.ErrFetchFailed):
			h.logger.Error("history reconstruction failed upstream", "error", err, "track_id", trackID)
			http.Error(w, "Upstream store unavailable", http.StatusBadGateway)
		default:
			h.logger.Error("history reconstruction failed", "error", err, "track_id", trackID)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	h.count("ok")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"trackId":  trackID,
		"playLogs": logs,
	}); err != nil {
		h.logger.Error("failed to encode history response", "error", err)
	}
}

func (h *HistoryHandler) count(status string) {
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(h.strategy, status).Inc()
	}
}
