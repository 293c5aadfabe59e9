package usecase

import (
	"context"
	"fmt"

	"github.com/arimusic/playledger/internal/domain"
)

// IndexPointerProvider sources CIDs from the relational batch index. Row
// order carries no sequencing guarantee, so results are re-sorted downstream.
type IndexPointerProvider struct {
	index domain.BatchIndex
}

func NewIndexPointerProvider(index domain.BatchIndex) *IndexPointerProvider {
	return &IndexPointerProvider{index: index}
}

func (p *IndexPointerProvider) ListPointers(ctx context.Context) ([]string, error) {
	pointers, err := p.index.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning batch index: %w", err)
	}
	cids := make([]string, 0, len(pointers))
	for _, ptr := range pointers {
		cids = append(cids, ptr.CID)
	}
	return cids, nil
}

func (p *IndexPointerProvider) Ordered() bool { return false }

// LedgerPointerProvider sources CIDs by replaying anchor events over the
// full block range. Ledger order is authoritative sequencing and duplicates
// are kept: a CID may legitimately be anchored more than once.
type LedgerPointerProvider struct {
	scanner domain.LedgerScanner
}

func NewLedgerPointerProvider(scanner domain.LedgerScanner) *LedgerPointerProvider {
	return &LedgerPointerProvider{scanner: scanner}
}

func (p *LedgerPointerProvider) ListPointers(ctx context.Context) ([]string, error) {
	pointers, err := p.scanner.Scan(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	cids := make([]string, 0, len(pointers))
	for _, ptr := range pointers {
		cids = append(cids, ptr.CID)
	}
	return cids, nil
}

func (p *LedgerPointerProvider) Ordered() bool { return true }
