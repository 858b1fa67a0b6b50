// Package cache provides a small in-process LRU with per-entry expiry.
package cache

// Cache is the lookup surface the services depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

var _ Cache[int] = (*LRU[int])(nil)
