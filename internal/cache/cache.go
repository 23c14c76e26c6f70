// Package cache holds season query results between calendar reads so widget
// navigation does not refetch on every mount. Entries change only through
// loading and explicit invalidation; a cached value is never patched in place.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// State is the lifecycle of one cache key.
type State string

const (
	StateEmpty   State = "empty"   // nothing cached
	StateLoading State = "loading" // one fetch in flight, readers wait on it
	StateFresh   State = "fresh"   // cached and within TTL
	StateStale   State = "stale"   // cached but past TTL, next access refetches
)

// Loader produces the value for a key. It runs at most once per key at a
// time regardless of how many readers arrive.
type Loader func(ctx context.Context) (any, error)

// flight is one in-progress load. Every reader that arrives while it runs
// gets this flight's outcome, success or failure.
type flight struct {
	done  chan struct{}
	value any
	err   error
}

type entry struct {
	state     State
	value     any
	hasValue  bool
	fetchedAt time.Time
	inflight  *flight
}

// Cache is a keyed single-flight query cache with TTL staleness.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*entry
}

// New creates a cache whose entries stay fresh for ttl after a load.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]*entry),
	}
}

// GetOrLoad returns the cached value for key, loading it when the key is
// empty or stale. Concurrent callers for the same key share a single load;
// the load's error is delivered to every waiter and nothing is cached for it.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load Loader) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{state: StateEmpty}
		c.entries[key] = e
	}

	if e.state == StateFresh && time.Since(e.fetchedAt) < c.ttl {
		value := e.value
		c.mu.Unlock()
		return value, nil
	}
	if e.state == StateFresh {
		e.state = StateStale
	}

	if e.state == StateLoading {
		fl := e.inflight
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.value, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fl := &flight{done: make(chan struct{})}
	e.state = StateLoading
	e.inflight = fl
	c.mu.Unlock()

	value, err := load(ctx)

	c.mu.Lock()
	fl.value, fl.err = value, err
	if err != nil {
		// The old value, if any, stays for the next attempt to replace.
		if e.hasValue {
			e.state = StateStale
		} else {
			e.state = StateEmpty
		}
	} else {
		e.state = StateFresh
		e.value = value
		e.hasValue = true
		e.fetchedAt = time.Now()
	}
	e.inflight = nil
	close(fl.done)
	c.mu.Unlock()

	return value, err
}

// Invalidate removes the given keys outright. An in-flight load for a removed
// key still completes for its waiters but lands nowhere.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// InvalidatePrefix removes every key with the given prefix. Used to drop all
// of one athlete's cached seasons after a write.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	c.mu.Unlock()
	return n
}

// Sweep evicts entries whose value has outlived the TTL and reports how many
// it removed. Loading entries are left for their flights to finish.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	n := 0
	for key, e := range c.entries {
		if e.state == StateLoading {
			continue
		}
		if !e.hasValue || time.Since(e.fetchedAt) >= c.ttl {
			delete(c.entries, key)
			n++
		}
	}
	c.mu.Unlock()
	return n
}

// KeyState reports the lifecycle state of a key, accounting for TTL expiry.
func (c *Cache) KeyState(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return StateEmpty
	}
	if e.state == StateFresh && time.Since(e.fetchedAt) >= c.ttl {
		return StateStale
	}
	return e.state
}

// Len returns the number of resident keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
