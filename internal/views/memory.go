package views

import (
	"context"
	"sync"
)

type memoryEntry struct {
	gen   uint64
	value any
	fresh bool
}

// MemoryRegistry is an in-process Registry.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[Key]*memoryEntry
	hub     hub
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty registry; every key starts stale.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[Key]*memoryEntry)}
}

// IsStale implements Registry.
func (r *MemoryRegistry) IsStale(_ context.Context, key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	return !ok || !e.fresh
}

// Get implements Registry.
func (r *MemoryRegistry) Get(_ context.Context, key Key) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok || !e.fresh {
		return nil, false
	}
	return e.value, true
}

// Generation implements Registry.
func (r *MemoryRegistry) Generation(_ context.Context, key Key) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.gen, nil
	}
	return 0, nil
}

// Put implements Registry.
func (r *MemoryRegistry) Put(_ context.Context, key Key, value any, gen uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		if gen != 0 {
			return ErrSuperseded
		}
		r.entries[key] = &memoryEntry{value: value, fresh: true}
		return nil
	}
	if e.gen != gen {
		return ErrSuperseded
	}
	e.value = value
	e.fresh = true
	return nil
}

// Invalidate implements Registry.
func (r *MemoryRegistry) Invalidate(_ context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	r.mu.Lock()
	for _, key := range keys {
		e, ok := r.entries[key]
		if !ok {
			e = &memoryEntry{}
			r.entries[key] = e
		}
		e.gen++
		e.value = nil
		e.fresh = false
	}
	r.mu.Unlock()
	r.hub.notify(keys)
}

// Subscribe implements Registry.
func (r *MemoryRegistry) Subscribe(key Key) (<-chan Key, func()) {
	return r.hub.subscribe(key)
}

// Len returns the number of fresh keys.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.fresh {
			n++
		}
	}
	return n
}
