// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ttlcache implements an in-memory map whose entries expire after a
// fixed age. Expired entries are evicted lazily when read; nothing sweeps the
// map in the background.
package ttlcache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	timestamp time.Time
}

// Cache maps string keys to values of type T. It is safe for concurrent use.
type Cache[T any] struct {
	maxAge time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]entry[T]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, letting tests age entries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache whose entries stay valid for maxAge after they are set.
func New[T any](maxAge time.Duration, opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		maxAge:  maxAge,
		now:     o.now,
		entries: make(map[string]entry[T]),
	}
}

// MaxAge returns the configured entry lifetime.
func (c *Cache[T]) MaxAge() time.Duration { return c.maxAge }

// Set stores v under key, stamped with the current time.
func (c *Cache[T]) Set(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{value: v, timestamp: c.now()}
}

// Get returns the value for key if it is still within maxAge. An expired
// entry is deleted and reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().Sub(e.timestamp) > c.maxAge {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

// Replace overwrites the value for key only when a valid entry exists. The
// original timestamp is kept so a refresh never extends the entry's life.
// It reports whether the entry was replaced.
func (c *Cache[T]) Replace(key string, v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.now().Sub(e.timestamp) > c.maxAge {
		delete(c.entries, key)
		return false
	}
	c.entries[key] = entry[T]{value: v, timestamp: e.timestamp}
	return true
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Len returns the number of stored entries, including expired entries that
// have not been read since they expired.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
