package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tabq-dev/tabq/adapters"
	"github.com/tabq-dev/tabq/core"
)

// Registry owns the arena of live connection handles, keyed by the raw
// connection identifier. Everything else holds identifiers, never
// handles, so lifetime and serialization discipline stay centralized.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*core.Handle
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Registry{
		handles: make(map[string]*core.Handle),
		log:     log,
	}
}

// Open returns the live handle for an identifier, connecting the
// matching backend when none exists yet. Re-opening the same identifier
// reuses the existing handle.
func (r *Registry) Open(ctx context.Context, identifier string) (*core.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle, ok := r.handles[identifier]; ok {
		return handle, nil
	}

	descriptor := core.NewDescriptor(identifier)
	adapter, err := adapters.New(descriptor.Kind())
	if err != nil {
		return nil, fmt.Errorf("adapters.New: %w", err)
	}

	session, err := adapter.Connect(ctx, descriptor)
	if err != nil {
		return nil, fmt.Errorf("adapter.Connect: %w", err)
	}

	handle := core.NewHandle(descriptor, session)
	r.handles[identifier] = handle
	r.log.Debug("connection opened", "kind", descriptor.Kind().String())

	return handle, nil
}

// Get looks up a handle without opening. A missing or evicted handle
// yields ConnectionError{NotOpen}.
func (r *Registry) Get(identifier string) (*core.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.handles[identifier]
	if !ok {
		return nil, core.NewConnectionError(core.ConnNotOpen, nil)
	}
	return handle, nil
}

// Close closes and evicts the handle. Closing an unknown identifier is
// a no-op.
func (r *Registry) Close(identifier string) error {
	r.mu.Lock()
	handle, ok := r.handles[identifier]
	delete(r.handles, identifier)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if err := handle.Close(); err != nil {
		return fmt.Errorf("handle.Close: %w", err)
	}
	r.log.Debug("connection closed")

	return nil
}

// Evict drops a handle the driver reported dead, without waiting for a
// clean close.
func (r *Registry) Evict(identifier string) {
	r.mu.Lock()
	handle, ok := r.handles[identifier]
	delete(r.handles, identifier)
	r.mu.Unlock()

	if ok {
		go func() { _ = handle.Close() }()
		r.log.Debug("connection evicted")
	}
}

// CloseAll closes every live handle concurrently. Used at shutdown.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	handles := make([]*core.Handle, 0, len(r.handles))
	for _, handle := range r.handles {
		handles = append(handles, handle)
	}
	r.handles = make(map[string]*core.Handle)
	r.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, handle := range handles {
		g.Go(handle.Close)
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("handle.Close: %w", err)
	}
	return nil
}
