package store

import (
	"fmt"
	"os"
	"sync"
	"testing"
)

// TestSQLiteConcurrentSaves tests that concurrent snapshot writes
// neither fail with SQLITE_BUSY nor produce duplicate sequence numbers
func TestSQLiteConcurrentSaves(t *testing.T) {
	tmpDB := "/tmp/test_snapshots_concurrent.db"
	defer os.Remove(tmpDB)
	defer os.Remove(tmpDB + "-shm")
	defer os.Remove(tmpDB + "-wal")

	store, err := NewSQLiteStore(tmpDB)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	numSnaps := 20
	var wg sync.WaitGroup
	errs := make(chan error, numSnaps)

	for i := 0; i < numSnaps; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			snap := NewSnapshot("shop", []byte(fmt.Sprintf("payload-%d", idx)))
			if err := store.SaveSnapshot(snap); err != nil {
				errs <- fmt.Errorf("snapshot %d save failed: %w", idx, err)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent save error: %v", err)
	}

	snaps, err := store.ListSnapshots("shop", 0)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snaps) != numSnaps {
		t.Errorf("Expected %d snapshots, got %d", numSnaps, len(snaps))
	}

	// Sequence numbers must be unique and dense.
	seen := make(map[int64]bool)
	for _, snap := range snaps {
		if seen[snap.Seq] {
			t.Errorf("Duplicate sequence number %d", snap.Seq)
		}
		seen[snap.Seq] = true
	}
	for i := int64(1); i <= int64(numSnaps); i++ {
		if !seen[i] {
			t.Errorf("Missing sequence number %d", i)
		}
	}
}

func TestSQLiteSnapshotRoundtrip(t *testing.T) {
	tmpDB := "/tmp/test_snapshots_roundtrip.db"
	defer os.Remove(tmpDB)
	defer os.Remove(tmpDB + "-shm")
	defer os.Remove(tmpDB + "-wal")

	store, err := NewSQLiteStore(tmpDB)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	snap := NewSnapshot("shop", []byte(`{"cart":{"sku-1":2}}`))
	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	got, err := store.GetSnapshot(snap.ID)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if string(got.Payload) != `{"cart":{"sku-1":2}}` {
		t.Errorf("Payload = %s, expected original body", got.Payload)
	}
	if got.WorldID != "shop" || got.Seq != 1 {
		t.Errorf("Snapshot metadata = %s/%d, expected shop/1", got.WorldID, got.Seq)
	}

	latest, err := store.LatestSnapshot("shop")
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if latest.ID != snap.ID {
		t.Errorf("LatestSnapshot = %s, expected %s", latest.ID, snap.ID)
	}

	if _, err := store.LatestSnapshot("other-world"); err != ErrSnapshotNotFound {
		t.Errorf("LatestSnapshot for unknown world = %v, expected ErrSnapshotNotFound", err)
	}
}

func TestSQLitePrune(t *testing.T) {
	tmpDB := "/tmp/test_snapshots_prune.db"
	defer os.Remove(tmpDB)
	defer os.Remove(tmpDB + "-shm")
	defer os.Remove(tmpDB + "-wal")

	store, err := NewSQLiteStore(tmpDB)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	for i := 0; i < 6; i++ {
		if err := store.SaveSnapshot(NewSnapshot("shop", nil)); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
	}

	pruned, err := store.PruneSnapshots("shop", 2)
	if err != nil {
		t.Fatalf("PruneSnapshots failed: %v", err)
	}
	if pruned != 4 {
		t.Errorf("Pruned %d snapshots, expected 4", pruned)
	}

	remaining, err := store.ListSnapshots("shop", 0)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("Expected 2 remaining snapshots, got %d", len(remaining))
	}
	if remaining[0].Seq != 6 || remaining[1].Seq != 5 {
		t.Errorf("Kept wrong snapshots: seq %d and %d, expected 6 and 5", remaining[0].Seq, remaining[1].Seq)
	}
}
