package shop

import (
	"context"
	"sync"
	"time"

	"github.com/psantana5/appworld/pkg/logging"
	"github.com/psantana5/appworld/pkg/store"
	"github.com/psantana5/appworld/pkg/world"
)

// Handle is the wrapper instantiation every shop collaborator shares.
type Handle = *world.Wrapper[Msg, *ShopWorld]

// Syncer periodically fetches the catalog and dispatches the result
// as a CatalogSynced message. The fetch itself runs outside exclusive
// access; only applying the result takes the write side.
type Syncer struct {
	world    Handle
	interval time.Duration
	log      *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncer creates a catalog syncer dispatching through the given handle
func NewSyncer(h Handle, interval time.Duration, log *logging.Logger) *Syncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		world:    h,
		interval: interval,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the sync loop
func (s *Syncer) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for it to exit
func (s *Syncer) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Syncer) loop() {
	defer s.wg.Done()

	// Sync immediately so the daemon doesn't serve an empty catalog
	// for a whole interval after boot.
	s.syncOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.syncOnce()
		}
	}
}

func (s *Syncer) syncOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()

	// The catalog client is owned by the world; borrow it under a
	// read view. A poisoned world skips the cycle.
	var catalog *CatalogClient
	if err := s.world.ReadContext(ctx, func(w *ShopWorld) {
		catalog = w.Res.Catalog
	}); err != nil {
		s.log.Warn("catalog sync skipped", map[string]interface{}{"error": err.Error()})
		return
	}
	if catalog == nil {
		return
	}

	products, err := catalog.FetchProducts(ctx)
	if err != nil {
		s.log.Error("catalog fetch failed", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := s.world.MsgContext(ctx, CatalogSynced{
		Products: products,
		SyncedAt: time.Now().UTC(),
	}); err != nil {
		s.log.Error("catalog sync dispatch failed", map[string]interface{}{"error": err.Error()})
		return
	}

	s.log.Debug("catalog synced", map[string]interface{}{"products": len(products)})
}

// Snapshotter periodically persists the state through a read view and
// prunes old snapshots.
type Snapshotter struct {
	world    Handle
	store    store.Store
	worldID  string
	interval time.Duration
	keep     int
	log      *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSnapshotter creates a snapshot loop. keep <= 0 disables pruning.
func NewSnapshotter(h Handle, st store.Store, worldID string, interval time.Duration, keep int, log *logging.Logger) *Snapshotter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Snapshotter{
		world:    h,
		store:    st,
		worldID:  worldID,
		interval: interval,
		keep:     keep,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the snapshot loop
func (s *Snapshotter) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for it to exit
func (s *Snapshotter) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Snapshotter) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.snapshotOnce()
		}
	}
}

func (s *Snapshotter) snapshotOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	snap, err := TakeSnapshot(ctx, s.world, s.store, s.worldID)
	if err != nil {
		s.log.Error("snapshot failed", map[string]interface{}{"error": err.Error()})
		return
	}
	s.log.Debug("snapshot persisted", map[string]interface{}{
		"snapshot_id": snap.ID,
		"seq":         snap.Seq,
	})

	if s.keep > 0 {
		pruned, err := s.store.PruneSnapshots(s.worldID, s.keep)
		if err != nil {
			s.log.Error("snapshot prune failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if pruned > 0 {
			s.log.Debug("snapshots pruned", map[string]interface{}{"pruned": pruned})
		}
	}
}
