// Package cache provides the TTL read cache used by the order queries.
package cache
