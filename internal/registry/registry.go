// Package registry is the authoritative in-memory map from logical process id
// to its record. All terminal-field mutation is funneled through the per-id
// guard; reads take only the short map lock.
package registry

import (
	"sync"

	"github.com/gamesup/gamesup/internal/guard"
	"github.com/gamesup/gamesup/internal/proc"
)

type Registry struct {
	mu      sync.RWMutex
	records map[string]*proc.Record
	guards  *guard.Keyed
}

func New() *Registry {
	return &Registry{
		records: make(map[string]*proc.Record),
		guards:  guard.New(),
	}
}

// Insert adds a record under its id. It fails when the id is already active
// or when inserting would exceed maxActive (0 means unlimited).
func (r *Registry) Insert(rec *proc.Record, maxActive int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.ID]; exists {
		return proc.ErrAlreadyRunning
	}
	if maxActive > 0 && len(r.records) >= maxActive {
		return proc.ErrConcurrencyLimit
	}
	r.records[rec.ID] = rec
	return nil
}

// Get returns the record for id, or nil.
func (r *Registry) Get(id string) *proc.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id]
}

// Remove deletes the record for id. Idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()
}

// All returns a snapshot slice of every live record.
func (r *Registry) All() []*proc.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*proc.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// WithLock runs fn while holding the concurrency guard for id. Exit handling,
// kill requests, and status mutation all serialize through here.
func (r *Registry) WithLock(id string, fn func()) {
	r.guards.With(id, fn)
}

// AcquireLock exposes the raw guard acquire for callers that need to hold it
// across non-function-shaped critical sections.
func (r *Registry) AcquireLock(id string) func() {
	return r.guards.Acquire(id)
}
