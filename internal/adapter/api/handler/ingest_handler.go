package handler

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/arimusic/playledger/internal/adapter/metrics"
	"github.com/arimusic/playledger/internal/domain"
	"github.com/arimusic/playledger/internal/usecase"
)

// IngestHandler handles HTTP delivery of streaming play events.
type IngestHandler struct {
	useCase      *usecase.IngestStreamUseCase
	logger       *slog.Logger
	metrics      *metrics.PipelineMetrics
	maxEventSize int64
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(uc *usecase.IngestStreamUseCase, logger *slog.Logger, m *metrics.PipelineMetrics, maxEventSize int64) *IngestHandler {
	return &IngestHandler{
		useCase:      uc,
		logger:       logger,
		metrics:      m,
		maxEventSize: maxEventSize,
	}
}

// ServeHTTP processes incoming streaming-event deliveries. A single event
// arrives as application/json; batched deliveries arrive as
// application/x-ndjson, one event per line.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxEventSize)

	var err error
	switch r.Header.Get("Content-Type") {
	case "application/json":
		err = h.handleSingleJSON(r.Context(), r.Body)
	case "application/x-ndjson":
		err = h.handleNDJSON(r.Context(), r.Body)
	default:
		h.count("error_media_type")
		http.Error(w, "Unsupported Content-Type", http.StatusUnsupportedMediaType)
		return
	}

	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, domain.ErrBufferUnavailable):
			// Surfaced so the delivery layer redelivers; nothing is dropped here.
			h.count("error_buffer")
			http.Error(w, "Buffer unavailable", http.StatusServiceUnavailable)
		default:
			h.logger.Error("failed to process ingest request", "error", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *IngestHandler) handleSingleJSON(ctx context.Context, body io.Reader) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	var event domain.StreamingEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.count("error_parse")
		return err
	}

	if err := h.useCase.Ingest(ctx, &event); err != nil {
		if !errors.Is(err, domain.ErrBufferUnavailable) {
			h.count("error_validate")
		}
		return err
	}

	h.count("accepted")
	return nil
}

func (h *IngestHandler) handleNDJSON(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event domain.StreamingEvent
		if err := json.Unmarshal(line, &event); err != nil {
			h.count("error_parse")
			h.logger.Warn("failed to unmarshal ndjson line", "error", err, "line", string(line))
			continue
		}

		if err := h.useCase.Ingest(ctx, &event); err != nil {
			if errors.Is(err, domain.ErrBufferUnavailable) {
				// Fail the whole delivery so the transport retries the batch.
				return err
			}
			h.count("error_validate")
			h.logger.Error("failed to ingest event from ndjson stream", "error", err)
			continue
		}
		h.count("accepted")
	}

	return scanner.Err()
}

func (h *IngestHandler) count(status string) {
	if h.metrics != nil {
		h.metrics.EventsTotal.WithLabelValues(status).Inc()
	}
}
