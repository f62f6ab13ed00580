// Package cache provides a read-through TTL cache whose concurrent loads
// of the same key collapse into one call.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ev-dashboard/pkg/metrics"
)

// Loader produces the value for a key on a cache miss
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a read-through cache with an absolute per-entry TTL.
// Failed loads are never stored.
type TTLCache[V any] struct {
	name    string
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Collector

	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group
	// generation is bumped by invalidation so in-flight loads that started
	// before it do not repopulate the cache with stale data
	generation uint64
}

// Option configures a TTLCache
type Option[V any] func(*TTLCache[V])

// WithClock replaces time.Now, mainly for tests
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTLCache[V]) { c.now = now }
}

// WithMetrics records hits and misses under the cache name
func WithMetrics[V any](collector *metrics.Collector) Option[V] {
	return func(c *TTLCache[V]) { c.metrics = collector }
}

// New creates a cache named name whose entries live for ttl
func New[V any](name string, ttl time.Duration, opts ...Option[V]) *TTLCache[V] {
	c := &TTLCache[V]{
		name:    name,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the cache name used in metrics
func (c *TTLCache[V]) Name() string {
	return c.name
}

// Get returns the cached value for key, calling load on a miss or after
// expiry. Concurrent misses for one key share a single load.
func (c *TTLCache[V]) Get(ctx context.Context, key string, load Loader[V]) (V, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Before(e.expiresAt) {
		c.recordHit()
		return e.value, nil
	}
	c.recordMiss()

	// The shared load outlives any single caller; each caller still stops
	// waiting when its own ctx is done.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		c.mu.RLock()
		gen := c.generation
		c.mu.RUnlock()

		value, err := load(loadCtx)
		if err != nil {
			return value, err
		}

		c.mu.Lock()
		if gen == c.generation {
			c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return value, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		value, _ := res.Val.(V)
		return value, nil
	}
}

// Invalidate drops one key
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.generation++
	c.group.Forget(key)
}

// InvalidateAll drops every entry
func (c *TTLCache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.generation++
}

// Len returns the number of stored entries, expired ones included
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *TTLCache[V]) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(c.name)
	}
}

func (c *TTLCache[V]) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(c.name)
	}
}

// Invalidator is implemented by every TTLCache regardless of value type
type Invalidator interface {
	Name() string
	InvalidateAll()
}
