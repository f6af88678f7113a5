// Package cache provides an in-process result cache keyed by content
// fingerprint, with single-flight deduplication of concurrent computes
// and an optional durable store backed by SQLite.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const numShards = 16

// Key fingerprints the inputs that determine an extraction result. Any
// change to the content, the resolved format, or an output-affecting
// config field produces a different key.
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		l := len(p)
		for i := 0; i < 8; i++ {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type entry[V any] struct {
	value   V
	expires time.Time
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
}

// Cache is a sharded TTL cache. Concurrent Fetch calls for the same key
// share one compute; waiters that cancel stop waiting without aborting
// the shared computation. Failed computes are never memoized.
type Cache[V any] struct {
	shards [numShards]shard[V]
	group  singleflight.Group
	ttl    time.Duration
	maxPer int
}

// New sizes the cache for roughly capacity entries. A zero or negative
// ttl means entries never expire.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	c := &Cache[V]{ttl: ttl, maxPer: capacity / numShards}
	if c.maxPer < 1 {
		c.maxPer = 1
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]entry[V])
	}
	return c
}

func (c *Cache[V]) shard(key string) *shard[V] {
	var h uint32
	for i := 0; i < len(key); i++ {
		h = h*31 + uint32(key[i])
	}
	return &c.shards[h%numShards]
}

// Get returns the cached value for key when present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(s.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, evicting an arbitrary entry when the
// shard is full.
func (c *Cache[V]) Put(key string, value V) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) >= c.maxPer {
		for k := range s.entries {
			delete(s.entries, k)
			break
		}
	}
	e := entry[V]{value: value}
	if c.ttl > 0 {
		e.expires = time.Now().Add(c.ttl)
	}
	s.entries[key] = e
}

// Fetch returns the cached value for key, or runs compute once across
// all concurrent callers and caches its result. When ctx is cancelled
// the caller returns immediately; the in-flight compute keeps running
// for the remaining waiters and still populates the cache.
func (c *Cache[V]) Fetch(ctx context.Context, key string, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Len reports the number of live entries, counting expired ones that
// have not been touched since expiring.
func (c *Cache[V]) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.Lock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.Unlock()
	}
	return n
}
