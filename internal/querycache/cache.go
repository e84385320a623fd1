package querycache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies one cached list: the entity, an optional scope such as a
// folder or playlist id, and the encoded parameter bag.
type Key struct {
	Entity string
	Scope  string
	Params string
}

func (k Key) String() string {
	return k.Entity + "|" + k.Scope + "|" + k.Params
}

// Matches reports whether k falls under prefix. Empty prefix fields match
// anything; exact requires equality.
func (k Key) Matches(prefix Key, exact bool) bool {
	if exact {
		return k == prefix
	}
	if k.Entity != prefix.Entity {
		return false
	}
	if prefix.Scope != "" && k.Scope != prefix.Scope {
		return false
	}
	return prefix.Params == "" || k.Params == prefix.Params
}

type entry struct {
	value     any
	stale     bool
	fetchedAt time.Time
}

// Cache holds fetched lists keyed by Key.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	gens    map[Key]uint64
	group   singleflight.Group
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// loadTimeout bounds a shared load, which runs detached from the caller that
// started it.
const loadTimeout = 30 * time.Second

// Option configures a Cache.
type Option func(*Cache)

// WithTTL marks entries stale once they are older than ttl.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithNow overrides the cache clock.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache returns an empty cache. Without a TTL entries stay fresh until
// invalidated.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		entries: map[Key]*entry{},
		gens:    map[Key]uint64{},
		timeout: loadTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value and whether it is still fresh.
func (c *Cache) Get(key Key) (any, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return e.value, true, c.freshLocked(e)
}

// Set stores a value as fresh.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, fetchedAt: c.now()}
}

// Invalidate marks every entry under key stale and returns how many matched.
func (c *Cache) Invalidate(key Key, exact bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !k.Matches(key, exact) {
			continue
		}
		c.entries[k] = &entry{value: e.value, stale: true, fetchedAt: e.fetchedAt}
		n++
	}
	for k := range c.gens {
		if k.Matches(key, exact) {
			c.gens[k]++
		}
	}
	return n
}

// Update rewrites every cached value under key in place. fn returns the new
// value; entries keep their freshness.
func (c *Cache) Update(key Key, fn func(any) any) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !k.Matches(key, false) {
			continue
		}
		c.entries[k] = &entry{value: fn(e.value), stale: e.stale, fetchedAt: e.fetchedAt}
		n++
	}
	return n
}

// UpdateSlices applies fn to every cached []T under key.
func UpdateSlices[T any](c *Cache, key Key, fn func([]T) []T) int {
	return c.Update(key, func(v any) any {
		items, ok := v.([]T)
		if !ok {
			return v
		}
		return fn(items)
	})
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.stale {
		return false
	}
	if c.ttl > 0 && c.now().Sub(e.fetchedAt) > c.ttl {
		return false
	}
	return true
}

// generation registers key so invalidations during a first fetch are seen.
func (c *Cache) generation(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen, ok := c.gens[key]
	if !ok {
		c.gens[key] = 0
	}
	return gen
}

// store records a fetched value unless the key was invalidated while the
// fetch was in flight, in which case the value is kept but marked stale.
func (c *Cache) store(key Key, value any, startGen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gens[key]
	c.entries[key] = &entry{value: value, fetchedAt: c.now(), stale: gen != startGen}
}

func (c *Cache) loadContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
