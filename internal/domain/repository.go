package domain

import (
	"context"
	"math/big"
)

// PlayLogBuffer is the keyed, append-only temporary store holding records
// pending sealing. It is the only mutable shared resource in the pipeline.
type PlayLogBuffer interface {
	// Append adds one record under the given window key, preserving append
	// order within the key.
	Append(ctx context.Context, key string, log PlayLog) error

	// Drain atomically reads and clears a key. No record may be both
	// returned and left for a subsequent drain.
	Drain(ctx context.Context, key string) ([]PlayLog, error)

	// Len reports the number of records currently buffered under a key.
	Len(ctx context.Context, key string) (int64, error)
}

// BatchIndex is the append-only relational store of batch pointers.
type BatchIndex interface {
	Insert(ctx context.Context, cid string) (BatchPointer, error)
	ListAll(ctx context.Context) ([]BatchPointer, error)
}

// ContentStore uploads opaque payloads to a content-addressable store and
// fetches them back. CIDs are opaque strings here; identical bytes always
// yield the identical CID.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, cid string) ([]byte, error)
}

// LedgerScanner replays CID-bearing events from the append-only ledger over
// a closed block range. A nil toBlock resolves the latest block once at call
// time. Output preserves ledger order and is never deduplicated.
type LedgerScanner interface {
	Scan(ctx context.Context, fromBlock, toBlock *big.Int) ([]LedgerPointer, error)
}

// BatchAnchor records a sealed batch's CID in the ledger. Transaction
// mechanics live behind this interface; a nil anchor disables anchoring.
type BatchAnchor interface {
	Anchor(ctx context.Context, cid string) error
}

// PointerProvider abstracts "a source of CIDs for history reconstruction".
// The CID index and the ledger both implement it and may diverge; there is
// no reconciliation between them.
type PointerProvider interface {
	// ListPointers returns every known batch CID.
	ListPointers(ctx context.Context) ([]string, error)

	// Ordered reports whether the provider's output order is authoritative
	// sequencing. Unordered results get a stable timestamp sort downstream.
	Ordered() bool
}

// WALRepository is the file-backed failover written to while the buffer
// store is unreachable, then replayed into the buffer on recovery.
type WALRepository interface {
	Write(ctx context.Context, entry BufferedLog) error
	Replay(ctx context.Context, handler func(entry BufferedLog) error) error
	Truncate(ctx context.Context) error
}

// APIKeyRepository validates API keys on the ingest surface.
type APIKeyRepository interface {
	IsValid(ctx context.Context, key string) (bool, error)
}
