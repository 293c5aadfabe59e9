package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/arimusic/playledger/internal/domain"
)

const testContract = "0x1111111111111111111111111111111111111111"

type fakeFilterer struct {
	logs        []types.Log
	filterErr   error
	blockNumber uint64
	blockErr    error
	lastQuery   ethereum.FilterQuery
}

func (f *fakeFilterer) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.lastQuery = q
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	return f.logs, nil
}

func (f *fakeFilterer) BlockNumber(ctx context.Context) (uint64, error) {
	if f.blockErr != nil {
		return 0, f.blockErr
	}
	return f.blockNumber, nil
}

func packCID(t *testing.T, cid string) []byte {
	t.Helper()
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		t.Fatalf("building string type: %v", err)
	}
	data, err := abi.Arguments{{Type: stringType}}.Pack(cid)
	if err != nil {
		t.Fatalf("packing cid: %v", err)
	}
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewScanner(t *testing.T) {
	t.Run("Invalid Address", func(t *testing.T) {
		if _, err := NewScanner(&fakeFilterer{}, "not-an-address", testLogger()); err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("Valid Address", func(t *testing.T) {
		if _, err := NewScanner(&fakeFilterer{}, testContract, testLogger()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestScannerScan(t *testing.T) {
	t.Run("Decodes Events In Ledger Order", func(t *testing.T) {
		client := &fakeFilterer{
			blockNumber: 120,
			logs: []types.Log{
				{Data: packCID(t, "QmFirst"), BlockNumber: 100, Index: 3},
				{Data: packCID(t, "QmSecond"), BlockNumber: 100, Index: 7},
				{Data: packCID(t, "QmFirst"), BlockNumber: 115, Index: 0},
			},
		}
		scanner, err := NewScanner(client, testContract, testLogger())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		pointers, err := scanner.Scan(context.Background(), nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []domain.LedgerPointer{
			{CID: "QmFirst", BlockNumber: 100, LogIndex: 3},
			{CID: "QmSecond", BlockNumber: 100, LogIndex: 7},
			{CID: "QmFirst", BlockNumber: 115, LogIndex: 0},
		}
		if len(pointers) != len(want) {
			t.Fatalf("expected %d pointers, got %d", len(want), len(pointers))
		}
		for i := range want {
			if pointers[i] != want[i] {
				t.Errorf("pointer %d: expected %+v, got %+v", i, want[i], pointers[i])
			}
		}
	})

	t.Run("Nil Bounds Resolve To Genesis And Latest", func(t *testing.T) {
		client := &fakeFilterer{blockNumber: 4096}
		scanner, _ := NewScanner(client, testContract, testLogger())

		if _, err := scanner.Scan(context.Background(), nil, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.lastQuery.FromBlock.Sign() != 0 {
			t.Errorf("expected fromBlock 0, got %s", client.lastQuery.FromBlock)
		}
		if client.lastQuery.ToBlock.Uint64() != 4096 {
			t.Errorf("expected toBlock 4096, got %s", client.lastQuery.ToBlock)
		}
	})

	t.Run("Explicit Bounds Are Passed Through", func(t *testing.T) {
		client := &fakeFilterer{}
		scanner, _ := NewScanner(client, testContract, testLogger())

		from, to := big.NewInt(50), big.NewInt(90)
		if _, err := scanner.Scan(context.Background(), from, to); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.lastQuery.FromBlock.Cmp(from) != 0 || client.lastQuery.ToBlock.Cmp(to) != 0 {
			t.Errorf("expected bounds [50, 90], got [%s, %s]",
				client.lastQuery.FromBlock, client.lastQuery.ToBlock)
		}
	})

	t.Run("Filter Is Scoped To Contract And Topic", func(t *testing.T) {
		client := &fakeFilterer{}
		scanner, _ := NewScanner(client, testContract, testLogger())

		if _, err := scanner.Scan(context.Background(), big.NewInt(0), big.NewInt(10)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		q := client.lastQuery
		if len(q.Addresses) != 1 || q.Addresses[0] != scanner.contract {
			t.Errorf("expected the anchor contract address, got %v", q.Addresses)
		}
		if len(q.Topics) != 1 || len(q.Topics[0]) != 1 || q.Topics[0][0] != scanner.topic {
			t.Errorf("expected the BatchSealed topic, got %v", q.Topics)
		}
	})

	t.Run("RPC Failure", func(t *testing.T) {
		client := &fakeFilterer{filterErr: errors.New("connection refused")}
		scanner, _ := NewScanner(client, testContract, testLogger())

		if _, err := scanner.Scan(context.Background(), big.NewInt(0), big.NewInt(10)); !errors.Is(err, domain.ErrLedgerQueryFailed) {
			t.Fatalf("expected ErrLedgerQueryFailed, got %v", err)
		}
	})

	t.Run("Block Number Failure", func(t *testing.T) {
		client := &fakeFilterer{blockErr: errors.New("connection refused")}
		scanner, _ := NewScanner(client, testContract, testLogger())

		if _, err := scanner.Scan(context.Background(), nil, nil); !errors.Is(err, domain.ErrLedgerQueryFailed) {
			t.Fatalf("expected ErrLedgerQueryFailed, got %v", err)
		}
	})

	t.Run("Undecodable Event Data", func(t *testing.T) {
		client := &fakeFilterer{logs: []types.Log{{Data: []byte{0xde, 0xad}, BlockNumber: 5}}}
		scanner, _ := NewScanner(client, testContract, testLogger())

		if _, err := scanner.Scan(context.Background(), big.NewInt(0), big.NewInt(10)); !errors.Is(err, domain.ErrLedgerQueryFailed) {
			t.Fatalf("expected ErrLedgerQueryFailed, got %v", err)
		}
	})
}
