package shop

import (
	"context"
	"testing"
	"time"

	"github.com/psantana5/appworld/pkg/store"
	"github.com/psantana5/appworld/pkg/world"
)

func TestSnapshotRoundtrip(t *testing.T) {
	w := seedWorld()
	w.Apply(AddToCart{ProductID: "espresso", Quantity: 2})
	w.Apply(Checkout{OrderID: "order-1", PlacedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)})

	snap, err := Snapshot("shop", w.State)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.WorldID != "shop" {
		t.Errorf("WorldID = %q, expected shop", snap.WorldID)
	}

	restored, err := RestoreSnapshot(snap)
	if err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}
	if restored.Revision != w.State.Revision {
		t.Errorf("restored Revision = %d, expected %d", restored.Revision, w.State.Revision)
	}
	if len(restored.Orders) != 1 || restored.Orders[0].ID != "order-1" {
		t.Errorf("restored Orders = %+v, expected order-1", restored.Orders)
	}
	if restored.Products["espresso"].Stock != 38 {
		t.Errorf("restored espresso stock = %d, expected 38", restored.Products["espresso"].Stock)
	}
}

func TestRestoreSnapshot_EmptyState(t *testing.T) {
	// Test: restoring a snapshot of a fresh state yields usable maps
	snap, err := Snapshot("shop", NewState())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	restored, err := RestoreSnapshot(snap)
	if err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}
	if restored.Products == nil {
		t.Error("restored Products map should not be nil")
	}
}

func TestRestoreSnapshot_CorruptPayload(t *testing.T) {
	snap := store.NewSnapshot("shop", []byte("not json"))
	if _, err := RestoreSnapshot(snap); err == nil {
		t.Error("RestoreSnapshot should fail on a corrupt payload")
	}
}

func TestTakeSnapshot(t *testing.T) {
	// Test: TakeSnapshot persists a consistent copy through a read view
	st := store.NewMemoryStore()
	defer st.Close()

	h := world.New[Msg](seedWorld())
	defer h.Close()

	if err := h.Msg(AddToCart{ProductID: "grinder", Quantity: 1}); err != nil {
		t.Fatalf("Msg failed: %v", err)
	}

	snap, err := TakeSnapshot(context.Background(), h, st, "shop")
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}
	if snap.Seq != 1 {
		t.Errorf("Seq = %d, expected 1", snap.Seq)
	}

	stored, err := st.LatestSnapshot("shop")
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	restored, err := RestoreSnapshot(stored)
	if err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}
	if len(restored.Cart) != 1 || restored.Cart[0].ProductID != "grinder" {
		t.Errorf("restored Cart = %+v, expected one grinder line", restored.Cart)
	}
}
