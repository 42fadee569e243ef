package ports

import (
	"orderflow/internal/core/domain/model/kernel"
)

// AllOrdersCacheKey holds the cached list of every order.
const AllOrdersCacheKey = "orders:all"

// OrderCacheKey is the cache key of a single order.
func OrderCacheKey(id kernel.UUID) string {
	return "orders:" + id.String()
}

// CacheInvalidator drops cached entries. Write paths depend only on this.
type CacheInvalidator interface {
	Invalidate(keys ...string)
}

// Cache is a best-effort read-through cache with a fixed TTL. A miss is never an error.
type Cache[T any] interface {
	CacheInvalidator
	Get(key string) (T, bool)
	Set(key string, value T)
}
