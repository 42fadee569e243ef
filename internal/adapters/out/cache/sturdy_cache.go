package cache

import (
	"time"

	"orderflow/internal/core/ports"

	"github.com/viccon/sturdyc"
)

const (
	defaultShards             = 10
	defaultEvictionPercentage = 10
)

// SturdyCache is a TTL cache of one value type backed by sturdyc.
type SturdyCache[T any] struct {
	client *sturdyc.Client[T]
}

var _ ports.Cache[int] = (*SturdyCache[int])(nil)

// NewSturdyCache creates a cache holding up to capacity entries for ttl each.
func NewSturdyCache[T any](capacity int, ttl time.Duration) *SturdyCache[T] {
	shards := defaultShards
	if capacity < shards {
		capacity = shards
	}
	return &SturdyCache[T]{
		client: sturdyc.New[T](capacity, shards, ttl, defaultEvictionPercentage),
	}
}

func (c *SturdyCache[T]) Get(key string) (T, bool) {
	return c.client.Get(key)
}

func (c *SturdyCache[T]) Set(key string, value T) {
	c.client.Set(key, value)
}

func (c *SturdyCache[T]) Invalidate(keys ...string) {
	for _, key := range keys {
		c.client.Delete(key)
	}
}

// Size reports the number of live entries.
func (c *SturdyCache[T]) Size() int {
	return c.client.Size()
}

// Invalidators fans an invalidation out to several caches. Single orders and
// the full list live in differently typed caches, while write paths only know
// the keys.
type Invalidators []ports.CacheInvalidator

func (g Invalidators) Invalidate(keys ...string) {
	for _, inv := range g {
		inv.Invalidate(keys...)
	}
}
