package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arimusic/playledger/internal/domain"
)

// batchSealedSignature is the anchor event emitted per sealed batch. The CID
// is the single non-indexed argument.
const batchSealedSignature = "BatchSealed(string)"

// LogFilterer is the slice of the eth client the scanner needs.
// *ethclient.Client satisfies it.
type LogFilterer interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Scanner implements domain.LedgerScanner over an Ethereum-compatible RPC
// endpoint. A scan is a bounded eth_getLogs filter on the anchor contract
// address and the BatchSealed topic; output preserves the ledger's total
// order (block height, then intra-block log index) and is never deduplicated.
type Scanner struct {
	client   LogFilterer
	contract common.Address
	topic    common.Hash
	cidArgs  abi.Arguments
	logger   *slog.Logger
}

// NewScanner creates a ledger scanner for the given anchor contract.
func NewScanner(client LogFilterer, contractAddress string, logger *slog.Logger) (*Scanner, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid ledger contract address %q", contractAddress)
	}

	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		return nil, fmt.Errorf("building event argument type: %w", err)
	}

	return &Scanner{
		client:   client,
		contract: common.HexToAddress(contractAddress),
		topic:    crypto.Keccak256Hash([]byte(batchSealedSignature)),
		cidArgs:  abi.Arguments{{Name: "cid", Type: stringType}},
		logger:   logger.With("component", "ledger_scanner"),
	}, nil
}

// Scan replays anchor events over [fromBlock, toBlock]. A nil fromBlock
// starts at genesis; a nil toBlock resolves the latest block number once, at
// call time, so the scan is bounded even while new blocks arrive.
func (s *Scanner) Scan(ctx context.Context, fromBlock, toBlock *big.Int) ([]domain.LedgerPointer, error) {
	if fromBlock == nil {
		fromBlock = big.NewInt(0)
	}
	if toBlock == nil {
		latest, err := s.client.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving latest block: %v", domain.ErrLedgerQueryFailed, err)
		}
		toBlock = new(big.Int).SetUint64(latest)
	}

	query := ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []common.Address{s.contract},
		Topics:    [][]common.Hash{{s.topic}},
	}

	logs, err := s.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerQueryFailed, err)
	}

	pointers := make([]domain.LedgerPointer, 0, len(logs))
	for _, lg := range logs {
		cid, err := s.decodeCID(lg)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding event at block %d index %d: %v",
				domain.ErrLedgerQueryFailed, lg.BlockNumber, lg.Index, err)
		}
		pointers = append(pointers, domain.LedgerPointer{
			CID:         cid,
			BlockNumber: lg.BlockNumber,
			LogIndex:    lg.Index,
		})
	}

	s.logger.Debug("scanned ledger for anchor events",
		"from", fromBlock, "to", toBlock, "events", len(pointers))
	return pointers, nil
}

func (s *Scanner) decodeCID(lg types.Log) (string, error) {
	values, err := s.cidArgs.Unpack(lg.Data)
	if err != nil {
		return "", err
	}
	cid, ok := values[0].(string)
	if !ok || cid == "" {
		return "", fmt.Errorf("event data does not carry a cid string")
	}
	return cid, nil
}
