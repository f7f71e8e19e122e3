package shop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/psantana5/appworld/pkg/store"
)

// Snapshot serializes a copy of the state into a persistable snapshot.
// Call it from inside a read view so the copy is consistent.
func Snapshot(worldID string, s State) (*store.Snapshot, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return store.NewSnapshot(worldID, payload), nil
}

// TakeSnapshot serializes and persists the current state under a read
// view, so mutations cannot tear the copy.
func TakeSnapshot(ctx context.Context, h Handle, s store.Store, worldID string) (*store.Snapshot, error) {
	var snap *store.Snapshot
	var saveErr error
	if err := h.ReadContext(ctx, func(w *ShopWorld) {
		snap, saveErr = Snapshot(worldID, w.State)
		if saveErr != nil {
			return
		}
		saveErr = s.SaveSnapshot(snap)
	}); err != nil {
		return nil, err
	}
	if saveErr != nil {
		return nil, saveErr
	}
	return snap, nil
}

// RestoreSnapshot decodes a snapshot back into a state
func RestoreSnapshot(snap *store.Snapshot) (State, error) {
	var s State
	if err := json.Unmarshal(snap.Payload, &s); err != nil {
		return State{}, fmt.Errorf("failed to unmarshal snapshot %s: %w", snap.ID, err)
	}
	if s.Products == nil {
		s.Products = make(map[string]Product)
	}
	return s, nil
}
