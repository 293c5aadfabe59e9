package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arimusic/playledger/internal/domain"
)

// IngestStreamUseCase handles the business logic for ingesting one streaming
// play event: validate, map to the canonical record, append to the buffer
// under the active window key.
type IngestStreamUseCase struct {
	buffer domain.PlayLogBuffer
	keyer  domain.BatchKeyer
	logger *slog.Logger
	now    func() time.Time
}

// NewIngestStreamUseCase creates a new IngestStreamUseCase.
func NewIngestStreamUseCase(buffer domain.PlayLogBuffer, keyer domain.BatchKeyer, logger *slog.Logger) *IngestStreamUseCase {
	return &IngestStreamUseCase{
		buffer: buffer,
		keyer:  keyer,
		logger: logger,
		now:    time.Now,
	}
}

// Ingest appends one event to the buffer. The buffer mutation is the only
// state change; duplicate deliveries are appended as-is, deduplication is
// not this component's job.
func (uc *IngestStreamUseCase) Ingest(ctx context.Context, event *domain.StreamingEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid streaming event: %w", err)
	}

	log := event.ToPlayLog()
	key := uc.keyer.CurrentKey(uc.now().UTC())

	if err := uc.buffer.Append(ctx, key, log); err != nil {
		uc.logger.Error("failed to buffer play log", "error", err, "key", key, "track_id", log.TrackID)
		return err
	}

	uc.logger.Debug("buffered play log", "key", key, "track_id", log.TrackID, "member_id", log.MemberID)
	return nil
}
