package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/arimusic/playledger/internal/domain"
)

const (
	defaultSealRetries      = 3
	defaultSealRetryBackoff = 1 * time.Second
)

// SealBatchUseCase freezes a buffer window into an immutable batch: drain
// the key, encode the payload, upload it to the content store, persist the
// returned CID in the index, and optionally anchor it in the ledger.
type SealBatchUseCase struct {
	buffer       domain.PlayLogBuffer
	store        domain.ContentStore
	index        domain.BatchIndex
	anchor       domain.BatchAnchor
	logger       *slog.Logger
	compress     bool
	maxRetries   int
	retryBackoff time.Duration
}

// NewSealBatchUseCase creates a new sealer. The anchor may be nil, which
// disables ledger anchoring.
func NewSealBatchUseCase(buffer domain.PlayLogBuffer, store domain.ContentStore, index domain.BatchIndex,
	anchor domain.BatchAnchor, logger *slog.Logger, compress bool, maxRetries int, retryBackoff time.Duration) *SealBatchUseCase {
	if maxRetries <= 0 {
		maxRetries = defaultSealRetries
	}
	if retryBackoff <= 0 {
		retryBackoff = defaultSealRetryBackoff
	}
	return &SealBatchUseCase{
		buffer:       buffer,
		store:        store,
		index:        index,
		anchor:       anchor,
		logger:       logger,
		compress:     compress,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}
}

// Seal drains one window key and seals its contents. An empty drain is a
// no-op: no zero-record batch ever reaches the store or the index.
//
// Upload retries reuse the drained snapshot, not the buffer — the buffer was
// already cleared by the drain. If every attempt fails the snapshot is
// appended back so the records are not lost.
func (uc *SealBatchUseCase) Seal(ctx context.Context, key string) (*domain.BatchPointer, error) {
	logs, err := uc.buffer.Drain(ctx, key)
	if err != nil {
		uc.logger.Error("failed to drain buffer", "error", err, "key", key)
		return nil, err
	}
	if len(logs) == 0 {
		uc.logger.Debug("nothing to seal", "key", key)
		return nil, nil
	}

	payload, err := domain.EncodeBatch(domain.BatchPayload{PlayLogs: logs}, uc.compress)
	if err != nil {
		uc.rebuffer(ctx, key, logs)
		return nil, err
	}

	cid, err := uc.putWithRetry(ctx, payload)
	if err != nil {
		uc.logger.Error("upload failed after retries, re-buffering drained records", "error", err, "key", key, "records", len(logs))
		uc.rebuffer(ctx, key, logs)
		return nil, err
	}

	ptr, err := uc.index.Insert(ctx, cid)
	if err != nil {
		// The payload exists but has no pointer row. Recoverable: a ledger
		// replay can rediscover the CID, so this is logged rather than fatal.
		uc.logger.Warn("sealed batch is orphaned: uploaded but not indexed", "error", err, "cid", cid, "records", len(logs))
		ptr = domain.BatchPointer{CID: cid}
	}

	if uc.anchor != nil {
		if err := uc.anchor.Anchor(ctx, cid); err != nil {
			uc.logger.Warn("failed to anchor sealed batch in ledger", "error", err, "cid", cid)
		}
	}

	uc.logger.Info("sealed batch", "key", key, "cid", cid, "records", len(logs), "bytes", len(payload))
	return &ptr, nil
}

func (uc *SealBatchUseCase) putWithRetry(ctx context.Context, payload []byte) (string, error) {
	var lastErr error
	for i := 0; i < uc.maxRetries; i++ {
		cid, err := uc.store.Put(ctx, payload)
		if err == nil {
			return cid, nil
		}
		lastErr = err
		uc.logger.Warn("content store upload failed, retrying...", "attempt", i+1, "error", err)
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (uc *SealBatchUseCase) rebuffer(ctx context.Context, key string, logs []domain.PlayLog) {
	for _, log := range logs {
		if err := uc.buffer.Append(ctx, key, log); err != nil {
			uc.logger.Error("failed to re-buffer drained record", "error", err, "key", key, "track_id", log.TrackID)
		}
	}
}
