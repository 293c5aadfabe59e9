package domain

import (
	"testing"
	"time"
)

func TestStaticKeyer(t *testing.T) {
	keyer := StaticKeyer{}
	now := time.Date(2025, 3, 14, 9, 42, 0, 0, time.UTC)

	if got := keyer.CurrentKey(now); got != StaticBatchKey {
		t.Errorf("expected %q, got %q", StaticBatchKey, got)
	}
	if got := keyer.SealableKey(now); got != StaticBatchKey {
		t.Errorf("expected %q, got %q", StaticBatchKey, got)
	}
}

func TestWindowKeyer(t *testing.T) {
	keyer := WindowKeyer{Interval: time.Hour}
	now := time.Date(2025, 3, 14, 9, 42, 17, 0, time.UTC)

	current := keyer.CurrentKey(now)
	if current != "batch:2025-03-14T09:00:00Z" {
		t.Errorf("unexpected current key: %q", current)
	}

	sealable := keyer.SealableKey(now)
	if sealable != "batch:2025-03-14T08:00:00Z" {
		t.Errorf("unexpected sealable key: %q", sealable)
	}

	if current == sealable {
		t.Error("current and sealable windows must not collide")
	}

	// All instants inside one window share a key.
	later := keyer.CurrentKey(now.Add(10 * time.Minute))
	if later != current {
		t.Errorf("expected same window key, got %q and %q", current, later)
	}
}

func TestNewBatchKeyer(t *testing.T) {
	t.Run("Static", func(t *testing.T) {
		keyer, err := NewBatchKeyer("static")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := keyer.(StaticKeyer); !ok {
			t.Errorf("expected StaticKeyer, got %T", keyer)
		}
	})

	t.Run("Empty Defaults To Static", func(t *testing.T) {
		keyer, err := NewBatchKeyer("")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := keyer.(StaticKeyer); !ok {
			t.Errorf("expected StaticKeyer, got %T", keyer)
		}
	})

	t.Run("Duration", func(t *testing.T) {
		keyer, err := NewBatchKeyer("15m")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		wk, ok := keyer.(WindowKeyer)
		if !ok {
			t.Fatalf("expected WindowKeyer, got %T", keyer)
		}
		if wk.Interval != 15*time.Minute {
			t.Errorf("expected 15m interval, got %s", wk.Interval)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		if _, err := NewBatchKeyer("sometimes"); err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("Negative", func(t *testing.T) {
		if _, err := NewBatchKeyer("-5m"); err == nil {
			t.Fatal("expected an error, got nil")
		}
	})
}
