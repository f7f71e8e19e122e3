package world

import "errors"

var (
	// ErrPoisoned is returned by every access operation after a
	// mutation aborted mid-flight, until ClearPoison is called.
	ErrPoisoned = errors.New("world: poisoned by aborted mutation")

	// ErrHandleClosed is returned by operations on a closed handle.
	ErrHandleClosed = errors.New("world: handle closed")

	// ErrBusy is returned by TryRead and TryMsg when access is held
	// or queued for by someone else.
	ErrBusy = errors.New("world: busy")
)
