package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the pipeline. Callers are expected to branch on
// these with errors.Is / errors.As: buffer, upload and ledger failures are
// transient and retryable, while a malformed response or an unparseable
// payload is likely permanent and should be escalated.
var (
	// ErrBufferUnavailable means the buffer store is unreachable or erroring.
	// Ingestion does not retry internally; redelivery is the caller's job.
	ErrBufferUnavailable = errors.New("play log buffer is unavailable")

	// ErrUploadFailed means the content store rejected or failed a put.
	ErrUploadFailed = errors.New("content store upload failed")

	// ErrFetchFailed means the content store rejected or failed a get.
	ErrFetchFailed = errors.New("content store fetch failed")

	// ErrMalformedResponse means the content store reported success but the
	// body was unusable (missing CID, empty payload).
	ErrMalformedResponse = errors.New("content store returned a malformed response")

	// ErrLedgerQueryFailed means the ledger scan failed; no partial results
	// are returned.
	ErrLedgerQueryFailed = errors.New("ledger query failed")
)

// PayloadParseError marks a fetched batch whose bytes do not decode into
// valid records. It fails the enclosing query: a corrupt batch means the
// reconstructed history would be incomplete.
type PayloadParseError struct {
	CID string
	Err error
}

func (e *PayloadParseError) Error() string {
	return fmt.Sprintf("batch payload %s failed to parse: %v", e.CID, e.Err)
}

func (e *PayloadParseError) Unwrap() error {
	return e.Err
}
