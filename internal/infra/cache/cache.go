// Package cache provides a simple in-memory TTL cache.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu      sync.RWMutex
	items   map[string]entry[T]
	ttl     time.Duration
	sliding bool
	onEvict func(key string, value T)

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures an InMemory cache.
type Option[T any] func(*InMemory[T])

// WithSliding makes every successful Get extend the entry's lifetime.
func WithSliding[T any]() Option[T] {
	return func(c *InMemory[T]) { c.sliding = true }
}

// WithEvictHook registers fn to run for entries removed by expiry.
// fn runs outside the cache lock.
func WithEvictHook[T any](fn func(key string, value T)) Option[T] {
	return func(c *InMemory[T]) { c.onEvict = fn }
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration, opts ...Option[T]) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.cleanup()
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	if c.sliding {
		c.mu.Lock()
		defer c.mu.Unlock()
	} else {
		c.mu.RLock()
		defer c.mu.RUnlock()
	}

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	if c.sliding {
		e.expiresAt = time.Now().Add(c.ttl)
		c.items[key] = e
	}
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// GetOrCreate returns the live value for key, or stores and returns the
// result of create. The boolean reports whether create ran.
func (c *InMemory[T]) GetOrCreate(key string, create func() T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.items[key]; ok && now.Before(e.expiresAt) {
		if c.sliding {
			e.expiresAt = now.Add(c.ttl)
			c.items[key] = e
		}
		return e.value, false
	}

	v := create()
	c.items[key] = entry[T]{value: v, expiresAt: now.Add(c.ttl)}
	return v, true
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Range calls fn for every live entry. fn must not call back into the cache.
func (c *InMemory[T]) Range(fn func(key string, value T) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			continue
		}
		if !fn(k, e.value) {
			return
		}
	}
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the background cleanup goroutine.
func (c *InMemory[T]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *InMemory[T]) sweep() {
	type evicted struct {
		key   string
		value T
	}
	var gone []evicted

	c.mu.Lock()
	now := time.Now()
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
			gone = append(gone, evicted{k, v.value})
		}
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, e := range gone {
			c.onEvict(e.key, e.value)
		}
	}
}
