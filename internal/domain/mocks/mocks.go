package mocks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/arimusic/playledger/internal/domain"
)

// MockPlayLogBuffer is an in-memory implementation of domain.PlayLogBuffer
// for testing.
type MockPlayLogBuffer struct {
	mu        sync.Mutex
	Buffered  map[string][]domain.PlayLog
	AppendErr error
	DrainErr  error
}

func (m *MockPlayLogBuffer) Append(ctx context.Context, key string, log domain.PlayLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	if m.Buffered == nil {
		m.Buffered = make(map[string][]domain.PlayLog)
	}
	m.Buffered[key] = append(m.Buffered[key], log)
	return nil
}

func (m *MockPlayLogBuffer) Drain(ctx context.Context, key string) ([]domain.PlayLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DrainErr != nil {
		return nil, m.DrainErr
	}
	logs := m.Buffered[key]
	delete(m.Buffered, key)
	return logs, nil
}

func (m *MockPlayLogBuffer) Len(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Buffered[key])), nil
}

// MockBatchIndex is an in-memory implementation of domain.BatchIndex.
type MockBatchIndex struct {
	mu        sync.Mutex
	Pointers  []domain.BatchPointer
	InsertErr error
	ListErr   error
}

func (m *MockBatchIndex) Insert(ctx context.Context, cid string) (domain.BatchPointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return domain.BatchPointer{}, m.InsertErr
	}
	ptr := domain.BatchPointer{ID: int64(len(m.Pointers) + 1), CID: cid}
	m.Pointers = append(m.Pointers, ptr)
	return ptr, nil
}

func (m *MockBatchIndex) ListAll(ctx context.Context) ([]domain.BatchPointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]domain.BatchPointer, len(m.Pointers))
	copy(out, m.Pointers)
	return out, nil
}

// MockContentStore is a content-addressed in-memory store. CIDs are derived
// from a digest of the payload, so identical bytes yield identical CIDs just
// like the real store.
type MockContentStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErr  error
	GetErr  error
	// GetErrFor fails fetches of one specific CID, for partial-failure tests.
	GetErrFor map[string]error
	PutCalls  int
}

func (m *MockContentStore) Put(ctx context.Context, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.PutErr != nil {
		return "", m.PutErr
	}
	sum := sha256.Sum256(data)
	cid := "Qm" + hex.EncodeToString(sum[:])[:44]
	if m.Objects == nil {
		m.Objects = make(map[string][]byte)
	}
	m.Objects[cid] = append([]byte(nil), data...)
	return cid, nil
}

func (m *MockContentStore) Get(ctx context.Context, cid string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if err, ok := m.GetErrFor[cid]; ok {
		return nil, err
	}
	data, ok := m.Objects[cid]
	if !ok {
		return nil, domain.ErrFetchFailed
	}
	return data, nil
}

// MockLedgerScanner replays a fixed sequence of pointers.
type MockLedgerScanner struct {
	Pointers []domain.LedgerPointer
	ScanErr  error
}

func (m *MockLedgerScanner) Scan(ctx context.Context, fromBlock, toBlock *big.Int) ([]domain.LedgerPointer, error) {
	if m.ScanErr != nil {
		return nil, m.ScanErr
	}
	return m.Pointers, nil
}

// MockPointerProvider returns a fixed CID list with a configurable ordering
// guarantee.
type MockPointerProvider struct {
	CIDs      []string
	IsOrdered bool
	ListErr   error
}

func (m *MockPointerProvider) ListPointers(ctx context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.CIDs, nil
}

func (m *MockPointerProvider) Ordered() bool { return m.IsOrdered }

// MockBatchAnchor records anchored CIDs.
type MockBatchAnchor struct {
	mu        sync.Mutex
	Anchored  []string
	AnchorErr error
}

func (m *MockBatchAnchor) Anchor(ctx context.Context, cid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AnchorErr != nil {
		return m.AnchorErr
	}
	m.Anchored = append(m.Anchored, cid)
	return nil
}

// MockAPIKeyRepository validates against a fixed key set.
type MockAPIKeyRepository struct {
	ValidKeys map[string]bool
	Err       error
}

func (m *MockAPIKeyRepository) IsValid(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.ValidKeys[key], nil
}

// MockWALRepository is an in-memory stand-in for the file WAL.
type MockWALRepository struct {
	mu        sync.Mutex
	Entries   []domain.BufferedLog
	WriteErr  error
	ReplayErr error
}

func (m *MockWALRepository) Write(ctx context.Context, entry domain.BufferedLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockWALRepository) Replay(ctx context.Context, handler func(entry domain.BufferedLog) error) error {
	m.mu.Lock()
	entries := make([]domain.BufferedLog, len(m.Entries))
	copy(entries, m.Entries)
	m.mu.Unlock()
	if m.ReplayErr != nil {
		return m.ReplayErr
	}
	for _, e := range entries {
		if err := handler(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockWALRepository) Truncate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = nil
	return nil
}
