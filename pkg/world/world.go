// Package world provides a generic, thread-safe container for shared
// application state.
//
// A World bundles application State and Resources behind a single
// mutation entry point, Apply. A Wrapper owns that World behind a
// reader-writer discipline: at any instant either any number of read
// views are active, or exactly one mutation is running, never both.
// Wrappers are cheap handles; Clone hands the same World to another
// goroutine without copying it, and the World is released when the
// last handle closes.
//
// Fairness: access is granted in arrival order. A mutation request
// that arrives while read views are active waits for them to drain,
// and read requests that arrive after it queue behind it, so neither
// readers nor writers starve under sustained contention.
package world

// World is the capability an application implements to live inside a
// Wrapper. Apply consumes one message and mutates State (and
// optionally Resources) in place. It always runs with exclusive
// access, so it must not acquire its own locks, and it must not
// retain msg after returning.
//
// If Apply panics, the wrapper treats the State as corrupted and
// poisons itself; see ErrPoisoned.
type World[M any] interface {
	Apply(msg M)
}
