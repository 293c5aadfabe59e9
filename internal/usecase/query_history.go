package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arimusic/playledger/internal/domain"
)

// HistoryUseCase reconstructs a track's full play history from sealed
// batches. The pointer provider decides the retrieval strategy: the CID
// index or a ledger replay. Reads are side-effect-free and safe to run
// concurrently with ingestion and sealing; records still in the buffer are
// invisible to both strategies.
type HistoryUseCase struct {
	provider domain.PointerProvider
	store    domain.ContentStore
	logger   *slog.Logger
}

// NewHistoryUseCase creates a new HistoryUseCase.
func NewHistoryUseCase(provider domain.PointerProvider, store domain.ContentStore, logger *slog.Logger) *HistoryUseCase {
	return &HistoryUseCase{
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// FindByTrack fetches every known batch, flattens the records, and filters
// by track. Any single fetch or parse failure fails the whole query: a
// missing batch would make the result set incomplete while looking
// authoritative. An empty pointer source yields an empty slice, not an error.
//
// When the provider's order is authoritative (ledger replay) the flattened
// order is preserved; otherwise the result gets a stable ascending sort by
// timestamp, ties keeping flattening order.
func (uc *HistoryUseCase) FindByTrack(ctx context.Context, trackID int) ([]domain.PlayLog, error) {
	cids, err := uc.provider.ListPointers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing batch pointers: %w", err)
	}

	result := make([]domain.PlayLog, 0)
	for _, cid := range cids {
		data, err := uc.store.Get(ctx, cid)
		if err != nil {
			uc.logger.Error("failed to fetch batch payload", "error", err, "cid", cid)
			return nil, fmt.Errorf("fetching batch %s: %w", cid, err)
		}

		batch, err := domain.DecodeBatch(data)
		if err != nil {
			uc.logger.Error("failed to parse batch payload", "error", err, "cid", cid)
			return nil, &domain.PayloadParseError{CID: cid, Err: err}
		}

		for _, log := range batch.PlayLogs {
			if log.TrackID == trackID {
				result = append(result, log)
			}
		}
	}

	if !uc.provider.Ordered() {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Timestamp.Before(result[j].Timestamp)
		})
	}

	uc.logger.Debug("reconstructed track history", "track_id", trackID, "batches", len(cids), "records", len(result))
	return result, nil
}
