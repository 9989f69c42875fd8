// Package requests keeps at most one in-flight operation per logical key.
// Starting a new operation under a key cancels the previous one, so a caller
// rapidly repeating an action (for example re-fetching a list while typing a
// search query) never observes a stale response.
package requests

import (
	"context"
	"sync"
)

// Handle is a cancellation handle for one in-flight operation. The derived
// context is cancelled when the handle is replaced or aborted.
type Handle struct {
	key    string
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the operation-scoped context.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Registry is a keyed set of cancellation handles. A single instance is
// shared by all data access services; it is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Create cancels and replaces any existing handle under key, then stores and
// returns a fresh one derived from parent.
func (r *Registry) Create(parent context.Context, key string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.handles[key]; ok {
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Handle{key: key, ctx: ctx, cancel: cancel}
	r.handles[key] = h
	return h
}

// Abort cancels and removes the handle under key. No-op when absent.
func (r *Registry) Abort(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[key]; ok {
		h.cancel()
		delete(r.handles, key)
	}
}

// Cleanup removes h from the registry without cancelling it. Called after an
// operation completes normally, success or failure; every facade call pairs
// Create with a deferred Cleanup. A handle that was already replaced leaves
// its successor's entry untouched.
func (r *Registry) Cleanup(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[h.key] == h {
		delete(r.handles, h.key)
	}
}

// Has reports whether a handle is currently registered under key.
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[key]
	return ok
}

// AbortAll cancels and removes every live handle, for teardown.
func (r *Registry) AbortAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, h := range r.handles {
		h.cancel()
		delete(r.handles, key)
	}
}
