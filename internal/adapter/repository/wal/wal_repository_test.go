package wal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/arimusic/playledger/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEntry(member string) domain.BufferedLog {
	return domain.BufferedLog{
		Key: domain.StaticBatchKey,
		Log: domain.PlayLog{
			Timestamp:  time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
			MemberID:   member,
			TrackID:    7,
			TrackTitle: "First Light",
			Nickname:   member,
		},
	}
}

func countSegments(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read WAL dir: %v", err)
	}
	count := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), segmentPrefix) {
			count++
		}
	}
	return count
}

func TestWALWriteAndReplay(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWALRepository(dir, 1024*1024, 10*1024*1024, testLogger())
	if err != nil {
		t.Fatalf("failed to create WAL: %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	for _, member := range []string{"101", "102", "103"} {
		if err := w.Write(ctx, testEntry(member)); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
	}

	var replayed []domain.BufferedLog
	err = w.Replay(ctx, func(entry domain.BufferedLog) error {
		replayed = append(replayed, entry)
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if len(replayed) != 3 {
		t.Fatalf("expected 3 replayed entries, got %d", len(replayed))
	}
	for i, member := range []string{"101", "102", "103"} {
		if replayed[i].Log.MemberID != member {
			t.Errorf("entry %d: expected member %s, got %s", i, member, replayed[i].Log.MemberID)
		}
		if replayed[i].Key != domain.StaticBatchKey {
			t.Errorf("entry %d: expected key %q, got %q", i, domain.StaticBatchKey, replayed[i].Key)
		}
	}
}

func TestWALSegmentRotation(t *testing.T) {
	dir := t.TempDir()
	// Tiny segment cap so every write rotates.
	w, err := NewWALRepository(dir, 64, 10*1024*1024, testLogger())
	if err != nil {
		t.Fatalf("failed to create WAL: %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	for _, member := range []string{"101", "102", "103"} {
		if err := w.Write(ctx, testEntry(member)); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
	}

	if got := countSegments(t, dir); got < 2 {
		t.Errorf("expected rotation to create multiple segments, got %d", got)
	}

	// Replay must still see every entry, across segments, in write order.
	var members []string
	err = w.Replay(ctx, func(entry domain.BufferedLog) error {
		members = append(members, entry.Log.MemberID)
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(members) != 3 || members[0] != "101" || members[2] != "103" {
		t.Errorf("unexpected replay order: %v", members)
	}
}

func TestWALMaxTotalSize(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWALRepository(dir, 1024, 100, testLogger())
	if err != nil {
		t.Fatalf("failed to create WAL: %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	var writeErr error
	for i := 0; i < 20; i++ {
		if writeErr = w.Write(ctx, testEntry("101")); writeErr != nil {
			break
		}
	}
	if writeErr == nil {
		t.Fatal("expected a write to fail once the total size cap is hit")
	}
}

func TestWALTruncate(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWALRepository(dir, 1024*1024, 10*1024*1024, testLogger())
	if err != nil {
		t.Fatalf("failed to create WAL: %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	if err := w.Write(ctx, testEntry("101")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}

	if err := w.Truncate(ctx); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	count := 0
	err = w.Replay(ctx, func(entry domain.BufferedLog) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no entries after truncate, got %d", count)
	}

	// The WAL must accept writes again after truncation.
	if err := w.Write(ctx, testEntry("102")); err != nil {
		t.Fatalf("failed to write after truncate: %v", err)
	}
}

func TestWALSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWALRepository(dir, 1024*1024, 10*1024*1024, testLogger())
	if err != nil {
		t.Fatalf("failed to create WAL: %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	if err := w.Write(ctx, testEntry("101")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}

	// Corrupt line in the middle of the segment, as after a crash mid-write.
	w.mu.Lock()
	w.currentSegment.WriteString("{truncated\n")
	w.mu.Unlock()

	if err := w.Write(ctx, testEntry("102")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}

	var members []string
	err = w.Replay(ctx, func(entry domain.BufferedLog) error {
		members = append(members, entry.Log.MemberID)
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(members) != 2 || members[0] != "101" || members[1] != "102" {
		t.Errorf("expected the corrupt line to be skipped, got %v", members)
	}
}

func TestWALReopensExistingSegments(t *testing.T) {
	dir := t.TempDir()

	first, err := NewWALRepository(dir, 1024*1024, 10*1024*1024, testLogger())
	if err != nil {
		t.Fatalf("failed to create WAL: %v", err)
	}
	ctx := context.Background()
	if err := first.Write(ctx, testEntry("101")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}
	first.Close()

	second, err := NewWALRepository(dir, 1024*1024, 10*1024*1024, testLogger())
	if err != nil {
		t.Fatalf("failed to reopen WAL: %v", err)
	}
	defer second.Close()

	if err := second.Write(ctx, testEntry("102")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}

	var members []string
	err = second.Replay(ctx, func(entry domain.BufferedLog) error {
		members = append(members, entry.Log.MemberID)
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(members) != 2 || members[0] != "101" || members[1] != "102" {
		t.Errorf("expected entries to survive a reopen, got %v", members)
	}
}
