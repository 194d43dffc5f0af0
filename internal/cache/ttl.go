// Package cache provides a concurrency-safe TTL cache with lazy, read-time
// expiration. Namespaces separate independent TTL policies (e.g. "live" vs
// "forecast") so each has its own freshness budget.
package cache

import (
	"sync"
	"time"
)

// Namespace names used by the refresh pipeline.
const (
	NamespaceLive     = "live"
	NamespaceForecast = "forecast"
)

type entry struct {
	payload  any
	storedAt time.Time
}

// Cache is a keyed TTL store. Concurrent Get/Set on distinct keys never block
// each other; concurrent Set on the same key is last-writer-wins. The zero
// value is not usable; create instances with New.
type Cache struct {
	entries sync.Map // namespace + "/" + key -> entry
	now     func() time.Time
}

// New creates a Cache. now may be nil, in which case time.Now is used;
// injecting a clock lets tests control expiration without sleeping.
func New(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{now: now}
}

// Get returns the payload stored under (namespace, key) if it is no older
// than ttl. A stale entry is evicted as a side effect and reported as a miss.
func (c *Cache) Get(namespace, key string, ttl time.Duration) (any, bool) {
	k := namespace + "/" + key

	v, ok := c.entries.Load(k)
	if !ok {
		return nil, false
	}

	e := v.(entry)
	if c.now().Sub(e.storedAt) > ttl {
		c.entries.Delete(k)
		return nil, false
	}

	return e.payload, true
}

// Set stores payload under (namespace, key), unconditionally overwriting any
// existing entry and stamping it with the current time.
func (c *Cache) Set(namespace, key string, payload any) {
	c.entries.Store(namespace+"/"+key, entry{
		payload:  payload,
		storedAt: c.now(),
	})
}

// Lookup is a typed Get: it reports a miss when the entry is absent, stale,
// or of a different type than T.
func Lookup[T any](c *Cache, namespace, key string, ttl time.Duration) (T, bool) {
	var zero T

	v, ok := c.Get(namespace, key, ttl)
	if !ok {
		return zero, false
	}

	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
