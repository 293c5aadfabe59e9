package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/arimusic/playledger/internal/domain"
)

// BatchIndex implements domain.BatchIndex on PostgreSQL.
//
// Schema:
//
//	CREATE TABLE aggregated_batches (
//	    aggregated_batch_id BIGSERIAL PRIMARY KEY,
//	    cid                 VARCHAR(100) NOT NULL,
//	    sealed_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
// The table is append-only: insert and read-all are the only operations.
type BatchIndex struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBatchIndex creates a new PostgreSQL batch index.
func NewBatchIndex(db *sql.DB, logger *slog.Logger) *BatchIndex {
	return &BatchIndex{db: db, logger: logger.With("component", "batch_index")}
}

// Insert records a newly sealed batch's CID and returns the full pointer.
func (r *BatchIndex) Insert(ctx context.Context, cid string) (domain.BatchPointer, error) {
	var id int64
	query := `INSERT INTO aggregated_batches (cid) VALUES ($1) RETURNING aggregated_batch_id`
	if err := r.db.QueryRowContext(ctx, query, cid).Scan(&id); err != nil {
		return domain.BatchPointer{}, fmt.Errorf("failed to insert batch pointer: %w", err)
	}
	return domain.BatchPointer{ID: id, CID: cid}, nil
}

// ListAll returns every batch pointer ever recorded. Row order carries no
// sequencing guarantee; callers re-sort record-level results.
func (r *BatchIndex) ListAll(ctx context.Context) ([]domain.BatchPointer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT aggregated_batch_id, cid FROM aggregated_batches`)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch pointers: %w", err)
	}
	defer rows.Close()

	var pointers []domain.BatchPointer
	for rows.Next() {
		var ptr domain.BatchPointer
		if err := rows.Scan(&ptr.ID, &ptr.CID); err != nil {
			return nil, fmt.Errorf("failed to scan batch pointer row: %w", err)
		}
		pointers = append(pointers, ptr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating batch pointer rows: %w", err)
	}
	return pointers, nil
}
