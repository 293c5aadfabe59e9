package domain

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// BatchPayload is the unit of content-addressable storage: an ordered
// sequence of play logs sealed together. Once uploaded the payload is
// immutable; a correction requires a new batch.
type BatchPayload struct {
	PlayLogs []PlayLog `json:"playLogs"`
}

// BatchPointer is an (id, cid) pair recorded in the CID index. Rows are
// append-only; they are never updated or deleted.
type BatchPointer struct {
	ID  int64
	CID string
}

// LedgerPointer is a CID-bearing ledger event in its total order: block
// height first, intra-block log index second.
type LedgerPointer struct {
	CID         string
	BlockNumber uint64
	LogIndex    uint
}

var gzipMagic = []byte{0x1f, 0x8b}

// EncodeBatch serializes a payload to its canonical JSON form, optionally
// gzip-wrapped. Encoding is deterministic for a given payload and compress
// setting, which is what makes content addressing idempotent.
func EncodeBatch(batch BatchPayload, compress bool) ([]byte, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encoding batch payload: %w", err)
	}
	if !compress {
		return data, nil
	}

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("compressing batch payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("finalizing gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBatch parses payload bytes fetched from the content store. Gzip
// wrapping is detected by the magic bytes so both encodings round-trip.
func DecodeBatch(data []byte) (BatchPayload, error) {
	var batch BatchPayload

	if bytes.HasPrefix(data, gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return batch, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return batch, fmt.Errorf("decompressing batch payload: %w", err)
		}
	}

	if err := json.Unmarshal(data, &batch); err != nil {
		return batch, fmt.Errorf("decoding batch payload: %w", err)
	}
	return batch, nil
}
