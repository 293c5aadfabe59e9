package domain

import (
	"fmt"
	"time"
)

// StaticBatchKey is the single global window key used when no time-bucketed
// windowing is configured. One window, forever.
const StaticBatchKey = "currentBatch"

// BatchKeyer owns the active window identifier. Ingestion appends under
// CurrentKey; the sealer drains SealableKey. Keeping both on one component
// gives the window an explicit lifecycle instead of an implicit constant.
type BatchKeyer interface {
	CurrentKey(now time.Time) string
	SealableKey(now time.Time) string
}

// StaticKeyer is the degenerate one-window-forever policy. Current and
// sealable are the same key, so a seal drains whatever has accumulated.
type StaticKeyer struct{}

func (StaticKeyer) CurrentKey(time.Time) string  { return StaticBatchKey }
func (StaticKeyer) SealableKey(time.Time) string { return StaticBatchKey }

// WindowKeyer buckets records into fixed-duration windows keyed by the
// window's start time. The sealable key is always the previous window, so
// ingestion and sealing never touch the same key concurrently.
type WindowKeyer struct {
	Interval time.Duration
}

func (w WindowKeyer) CurrentKey(now time.Time) string {
	return "batch:" + now.UTC().Truncate(w.Interval).Format(time.RFC3339)
}

func (w WindowKeyer) SealableKey(now time.Time) string {
	return w.CurrentKey(now.Add(-w.Interval))
}

// NewBatchKeyer builds a keyer from its configuration string: "static" for
// the single-key policy, otherwise a Go duration for time-bucketed windows.
func NewBatchKeyer(spec string) (BatchKeyer, error) {
	if spec == "" || spec == "static" {
		return StaticKeyer{}, nil
	}
	interval, err := time.ParseDuration(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid batch window %q: %w", spec, err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("batch window must be positive, got %s", interval)
	}
	return WindowKeyer{Interval: interval}, nil
}
