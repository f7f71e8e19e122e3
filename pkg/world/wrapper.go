package world

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// mutationWeight is the full capacity of the access semaphore. A read
// view holds weight 1, a mutation holds all of it.
const mutationWeight int64 = math.MaxInt64

// cell is the shared heart of a wrapper: one per World, referenced by
// every cloned handle.
type cell[M any, W World[M]] struct {
	access *semaphore.Weighted
	world  W

	handles  atomic.Int64
	readers  atomic.Int64
	mutating atomic.Bool
	poisoned atomic.Bool

	reads atomic.Uint64
	msgs  atomic.Uint64
}

// Wrapper is a shared handle to exactly one World. All handles
// produced by Clone coordinate through the same underlying cell, so a
// mutation dispatched through any of them excludes reads and
// mutations through all of them.
//
// A Wrapper is safe for concurrent use. The zero value is not usable;
// construct with New.
type Wrapper[M any, W World[M]] struct {
	cell   *cell[M, W]
	closed atomic.Bool
}

// New wraps a freshly built World. The wrapper takes ownership: the
// caller must not touch w directly afterwards, only through the
// returned handle.
func New[M any, W World[M]](w W) *Wrapper[M, W] {
	c := &cell[M, W]{
		access: semaphore.NewWeighted(mutationWeight),
		world:  w,
	}
	c.handles.Store(1)
	return &Wrapper[M, W]{cell: c}
}

// Clone returns an independent handle to the same World. It never
// blocks and never fails on a live handle; cloning a closed handle is
// a programming error and panics.
func (wr *Wrapper[M, W]) Clone() *Wrapper[M, W] {
	if wr.closed.Load() {
		panic("world: Clone on closed handle")
	}
	wr.cell.handles.Add(1)
	return &Wrapper[M, W]{cell: wr.cell}
}

// Read runs inspect against a read view of the World. It blocks while
// a mutation is running or queued ahead, and runs concurrently with
// other read views. inspect must not mutate the World and must not
// retain it past the call.
func (wr *Wrapper[M, W]) Read(inspect func(W)) error {
	return wr.ReadContext(context.Background(), inspect)
}

// ReadContext is Read with a bounded wait: the acquire aborts when
// ctx is done and the returned error wraps ctx.Err(). The World is
// untouched on an aborted acquire.
func (wr *Wrapper[M, W]) ReadContext(ctx context.Context, inspect func(W)) error {
	if wr.closed.Load() {
		return ErrHandleClosed
	}
	c := wr.cell
	if err := c.access.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("world: acquire read view: %w", err)
	}
	return c.runRead(inspect)
}

// TryRead is Read without waiting. It returns ErrBusy when a mutation
// holds access or is queued waiting for it.
func (wr *Wrapper[M, W]) TryRead(inspect func(W)) error {
	if wr.closed.Load() {
		return ErrHandleClosed
	}
	c := wr.cell
	if !c.access.TryAcquire(1) {
		return ErrBusy
	}
	return c.runRead(inspect)
}

// Msg acquires exclusive access, applies msg through the World's
// mutation entry point, and releases. It blocks until every active
// read view has drained and no other mutation is running. A panic out
// of Apply poisons the wrapper and resumes unwinding on the calling
// goroutine.
func (wr *Wrapper[M, W]) Msg(msg M) error {
	return wr.MsgContext(context.Background(), msg)
}

// MsgContext is Msg with a bounded wait: the acquire aborts when ctx
// is done and the returned error wraps ctx.Err(). The World is
// untouched on an aborted acquire.
func (wr *Wrapper[M, W]) MsgContext(ctx context.Context, msg M) error {
	if wr.closed.Load() {
		return ErrHandleClosed
	}
	c := wr.cell
	if err := c.access.Acquire(ctx, mutationWeight); err != nil {
		return fmt.Errorf("world: acquire mutation access: %w", err)
	}
	return c.runMsg(msg)
}

// TryMsg is Msg without waiting. It returns ErrBusy when any read
// view or mutation holds access, or when waiters are queued.
func (wr *Wrapper[M, W]) TryMsg(msg M) error {
	if wr.closed.Load() {
		return ErrHandleClosed
	}
	c := wr.cell
	if !c.access.TryAcquire(mutationWeight) {
		return ErrBusy
	}
	return c.runMsg(msg)
}

// Poisoned reports whether a mutation aborted mid-flight, leaving the
// State possibly inconsistent.
func (wr *Wrapper[M, W]) Poisoned() bool {
	return wr.cell.poisoned.Load()
}

// ClearPoison marks the World usable again after a poisoning. Call it
// only once State consistency has been verified or repaired; the
// wrapper cannot judge that itself, so the override is never
// automatic.
func (wr *Wrapper[M, W]) ClearPoison() {
	wr.cell.poisoned.Store(false)
}

// State reports the instantaneous access state. It is advisory: the
// cell may have moved on by the time the caller acts on the result.
func (wr *Wrapper[M, W]) State() AccessState {
	c := wr.cell
	switch {
	case c.mutating.Load():
		return StateMutating
	case c.readers.Load() > 0:
		return StateReading
	default:
		return StateIdle
	}
}

// Stats returns a point-in-time observation of the shared cell.
func (wr *Wrapper[M, W]) Stats() Stats {
	c := wr.cell
	return Stats{
		Handles:  c.handles.Load(),
		Readers:  c.readers.Load(),
		Mutating: c.mutating.Load(),
		Poisoned: c.poisoned.Load(),
		Reads:    c.reads.Load(),
		Msgs:     c.msgs.Load(),
	}
}

// Close releases this handle. The World is released exactly once,
// when the last handle closes; a World implementing io.Closer has its
// Close invoked at that point and its error returned from that final
// call. Closing a handle twice returns ErrHandleClosed.
func (wr *Wrapper[M, W]) Close() error {
	if !wr.closed.CompareAndSwap(false, true) {
		return ErrHandleClosed
	}
	c := wr.cell
	if c.handles.Add(-1) > 0 {
		return nil
	}
	if closer, ok := any(c.world).(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Stats is a point-in-time observation of a wrapper's shared cell.
type Stats struct {
	Handles  int64  `json:"handles"`  // live handles sharing the World
	Readers  int64  `json:"readers"`  // read views active right now
	Mutating bool   `json:"mutating"` // a mutation is running right now
	Poisoned bool   `json:"poisoned"` // an aborted mutation left State suspect
	Reads    uint64 `json:"reads"`    // read views completed since New
	Msgs     uint64 `json:"msgs"`     // mutations applied since New
}

// runRead executes inspect under an already-acquired read weight.
func (c *cell[M, W]) runRead(inspect func(W)) error {
	defer c.access.Release(1)
	if c.poisoned.Load() {
		return ErrPoisoned
	}
	c.readers.Add(1)
	defer c.readers.Add(-1)
	c.reads.Add(1)
	inspect(c.world)
	return nil
}

// runMsg applies msg under an already-acquired mutation weight. A
// panic out of Apply sets the poison flag before the lock is released
// and then continues unwinding.
func (c *cell[M, W]) runMsg(msg M) error {
	defer c.access.Release(mutationWeight)
	if c.poisoned.Load() {
		return ErrPoisoned
	}
	c.mutating.Store(true)
	defer c.mutating.Store(false)
	defer func() {
		if r := recover(); r != nil {
			c.poisoned.Store(true)
			panic(r)
		}
	}()
	c.world.Apply(msg)
	c.msgs.Add(1)
	return nil
}
