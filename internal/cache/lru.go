package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gamesup/gamesup/internal/proc"
)

const (
	// DefaultSize bounds the number of memoized snapshots.
	DefaultSize = 512
	// DefaultTTL is used when Set is called with ttl <= 0.
	DefaultTTL = 2 * time.Second
)

// LRU is the default Cache: a bounded TTL/LRU over snapshots. Entries set
// with a non-default TTL track their own expiry on top of the LRU's.
type LRU struct {
	lru        *expirable.LRU[string, entry]
	defaultTTL time.Duration

	mu sync.Mutex
}

type entry struct {
	snap      proc.Snapshot
	expiresAt time.Time
}

// NewLRU builds a cache with the given capacity and default TTL; zero values
// select the package defaults.
func NewLRU(size int, defaultTTL time.Duration) *LRU {
	if size <= 0 {
		size = DefaultSize
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &LRU{
		lru:        expirable.NewLRU[string, entry](size, nil, defaultTTL),
		defaultTTL: defaultTTL,
	}
}

func (c *LRU) Get(id string) (proc.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Get(id)
	if !ok {
		return proc.Snapshot{}, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.lru.Remove(id)
		return proc.Snapshot{}, false
	}
	return e.snap, true
}

func (c *LRU) Set(id string, s proc.Snapshot, ttl time.Duration) {
	e := entry{snap: s}
	if ttl > 0 && ttl < c.defaultTTL {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.lru.Add(id, e)
	c.mu.Unlock()
}

func (c *LRU) Invalidate(id string) {
	c.mu.Lock()
	c.lru.Remove(id)
	c.mu.Unlock()
}
