// Package cache is the memoization boundary for process metadata. The engine
// treats a miss as "go to the authoritative registry", never as an error.
package cache

import (
	"time"

	"github.com/gamesup/gamesup/internal/proc"
)

// Cache memoizes the last known snapshot per logical process id with a TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached snapshot for id, or ok=false on miss/expiry.
	Get(id string) (proc.Snapshot, bool)
	// Set stores a snapshot. ttl <= 0 uses the implementation default.
	Set(id string, s proc.Snapshot, ttl time.Duration)
	// Invalidate drops the entry for id, if present.
	Invalidate(id string)
}

// Nop is the disabled cache.
type Nop struct{}

func (Nop) Get(string) (proc.Snapshot, bool)         { return proc.Snapshot{}, false }
func (Nop) Set(string, proc.Snapshot, time.Duration) {}
func (Nop) Invalidate(string)                        {}
