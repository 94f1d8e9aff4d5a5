package database

import (
	"context"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	hdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := hdb.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return hdb
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates the database file when allowed", func(t *testing.T) {
		t.Parallel()

		hdb := openTestDB(t)
		if hdb.Path() == "" {
			t.Error("Path() is empty")
		}
	})

	t.Run("refuses to create when disallowed", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Error("Open() succeeded on a missing database, want error")
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		first, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("first Open() error = %v", err)
		}
		if _, err := first.RecordPublish(context.Background(), &Publication{
			OnionAddress: "abc.onion",
			VirtualPort:  12345,
			Target:       "127.0.0.1:5000",
			Mode:         "ephemeral",
		}); err != nil {
			t.Fatalf("RecordPublish() error = %v", err)
		}
		if err := first.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		second, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("second Open() error = %v", err)
		}
		defer second.Close()

		pubs, err := second.Recent(context.Background(), 0)
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if len(pubs) != 1 {
			t.Errorf("Recent() returned %d rows, want 1", len(pubs))
		}
	})
}

func TestRecordPublishAndRemoval(t *testing.T) {
	t.Parallel()

	hdb := openTestDB(t)
	ctx := context.Background()

	id, err := hdb.RecordPublish(ctx, &Publication{
		OnionAddress: "abcdef.onion",
		VirtualPort:  12345,
		Target:       "127.0.0.1:5000",
		Mode:         "ephemeral",
		Simulated:    true,
	})
	if err != nil {
		t.Fatalf("RecordPublish() error = %v", err)
	}
	if id == 0 {
		t.Fatal("RecordPublish() returned id 0")
	}

	pubs, err := hdb.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("Recent() returned %d rows, want 1", len(pubs))
	}

	pub := pubs[0]
	if pub.OnionAddress != "abcdef.onion" {
		t.Errorf("OnionAddress = %q, want %q", pub.OnionAddress, "abcdef.onion")
	}
	if pub.VirtualPort != 12345 {
		t.Errorf("VirtualPort = %d, want 12345", pub.VirtualPort)
	}
	if !pub.Simulated {
		t.Error("Simulated = false, want true")
	}
	if pub.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
	if !pub.RemovedAt.IsZero() {
		t.Error("RemovedAt set before removal")
	}

	if err := hdb.RecordRemoval(ctx, id); err != nil {
		t.Fatalf("RecordRemoval() error = %v", err)
	}

	pubs, err = hdb.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() after removal error = %v", err)
	}
	if pubs[0].RemovedAt.IsZero() {
		t.Error("RemovedAt still zero after removal")
	}
}

func TestRecentOrderingAndLimit(t *testing.T) {
	t.Parallel()

	hdb := openTestDB(t)
	ctx := context.Background()

	addresses := []string{"first.onion", "second.onion", "third.onion"}
	for _, address := range addresses {
		if _, err := hdb.RecordPublish(ctx, &Publication{
			OnionAddress: address,
			VirtualPort:  80,
			Target:       "127.0.0.1:5000",
			Mode:         "ephemeral",
		}); err != nil {
			t.Fatalf("RecordPublish(%q) error = %v", address, err)
		}
	}

	pubs, err := hdb.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(pubs) != 2 {
		t.Fatalf("Recent(2) returned %d rows, want 2", len(pubs))
	}
	// Newest first. Rows share one CURRENT_TIMESTAMP second, so the
	// id tiebreaker decides.
	if pubs[0].OnionAddress != "third.onion" {
		t.Errorf("newest row = %q, want %q", pubs[0].OnionAddress, "third.onion")
	}
	if pubs[1].OnionAddress != "second.onion" {
		t.Errorf("second row = %q, want %q", pubs[1].OnionAddress, "second.onion")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		zero  bool
	}{
		{name: "sqlite default", value: "2026-08-29 10:30:00"},
		{name: "iso with zone", value: "2026-08-29T10:30:00Z"},
		{name: "rfc3339", value: time.Now().UTC().Format(time.RFC3339)},
		{name: "garbage", value: "yesterday-ish", zero: true},
		{name: "empty", value: "", zero: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.value)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q).IsZero() = %v, want %v", tt.value, got.IsZero(), tt.zero)
			}
		})
	}
}
