// Package guard provides per-id mutual exclusion for lifecycle mutations.
// A second concurrent mutator for the same id queues behind the first;
// independent ids proceed fully in parallel. There is no global lock beyond
// the short map access.
package guard

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Keyed is a set of named mutexes created on demand and dropped when the last
// holder releases, so ids that come and go do not leak entries.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// Acquire blocks until the guard for id is owned by the caller and returns
// the release func. Release must be called exactly once.
func (k *Keyed) Acquire(id string) func() {
	k.mu.Lock()
	e, ok := k.entries[id]
	if !ok {
		e = &entry{}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.entries, id)
			}
			k.mu.Unlock()
		})
	}
}

// With runs fn while holding the guard for id.
func (k *Keyed) With(id string, fn func()) {
	release := k.Acquire(id)
	defer release()
	fn()
}

// Len returns the number of live entries. Test hook.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
