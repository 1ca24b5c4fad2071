// Package users is the directory of reminder assignees, read through a small
// TTL cache.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/model"
)

// DefaultTTL bounds how stale a cached user can be.
const DefaultTTL = 5 * time.Minute

// Loader fetches a user from the backing store.
type Loader func(ctx context.Context, id string) (*model.User, error)

type entry struct {
	user    model.User
	expires time.Time
}

// Cache is an id to user cache with a fixed TTL. Errors are never cached.
type Cache struct {
	load  Loader
	ttl   time.Duration
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]entry
	gen     uint64 // bumped by Invalidate; a load that straddles it is not stored
}

// NewCache creates a cache in front of load. A non-positive ttl uses
// DefaultTTL; a nil clock uses the system clock.
func NewCache(load Loader, ttl time.Duration, clk clock.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Cache{load: load, ttl: ttl, clock: clk, entries: make(map[string]entry)}
}

// Get returns the cached user or loads it. Callers get their own copy.
func (c *Cache) Get(ctx context.Context, id string) (*model.User, error) {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.entries[id]
	gen := c.gen
	c.mu.Unlock()
	if ok && now.Before(e.expires) {
		u := e.user
		return &u, nil
	}

	u, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.entries[id] = entry{user: *u, expires: now.Add(c.ttl)}
	}
	c.mu.Unlock()

	out := *u
	return &out, nil
}

// Invalidate drops one user. Loads already in flight are not cached.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.gen++
}
