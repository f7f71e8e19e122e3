// Package shutdown coordinates graceful process teardown. Components
// register named cleanup functions; on SIGINT/SIGTERM (or an explicit
// Trigger) they run in reverse registration order, each bounded by the
// manager's timeout.
package shutdown

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// hook is a named cleanup function.
type hook struct {
	name string
	fn   func(context.Context) error
}

// Manager coordinates graceful shutdown of registered components
type Manager struct {
	hooks   []hook
	mu      sync.Mutex
	timeout time.Duration
	done    chan struct{}
	once    sync.Once
}

// New creates a shutdown manager with the given per-run timeout
func New(timeout time.Duration) *Manager {
	return &Manager{
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Register adds a named cleanup function. Functions run in reverse
// registration order, so register dependencies before their users.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Wait blocks until SIGINT or SIGTERM arrives, then marks the manager
// done and returns the signal. It does not run the cleanup functions;
// call Shutdown for that.
func (m *Manager) Wait() os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		m.markDone()
		return sig
	case <-m.done:
		return nil
	}
}

// Trigger marks the manager done without waiting for a signal.
func (m *Manager) Trigger() {
	m.markDone()
}

// Done returns a channel closed once shutdown has been requested.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) markDone() {
	m.once.Do(func() { close(m.done) })
}

// Shutdown runs all registered cleanup functions in reverse order,
// bounded by the manager's timeout. It returns one error per failed
// hook, prefixed with the hook's name.
func (m *Manager) Shutdown() []error {
	m.markDone()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	hooks := make([]hook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errs
}

// StopHTTPServer returns a cleanup function that gracefully stops an
// HTTP server, letting in-flight requests drain.
func StopHTTPServer(srv *http.Server) func(context.Context) error {
	return func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
}

// CloseResource adapts an io.Closer into a cleanup function.
func CloseResource(c io.Closer) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.Close()
	}
}
