// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"context"
	"errors"
	"time"
)

// Cache defines the generic cache interface for all cache implementations
type Cache interface {
	// Get retrieves a value from cache by key
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache by key
	Delete(ctx context.Context, key string) error

	// DeletePattern removes all keys matching a glob pattern ("*" wildcards)
	DeletePattern(ctx context.Context, pattern string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)

	// Close closes the cache connection
	Close() error

	// Stats returns cache statistics
	Stats() CacheStats
}

// CacheStats provides cache performance statistics
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Keys   int64 `json:"keys"`
}

// CacheType represents different cache backend types
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache
	CacheTypeMemory CacheType = "memory"

	// CacheTypeRedis represents Redis cache
	CacheTypeRedis CacheType = "redis"
)

// IsValid checks if the cache type is valid
func (ct CacheType) IsValid() bool {
	switch ct {
	case CacheTypeMemory, CacheTypeRedis:
		return true
	default:
		return false
	}
}

// Common cache errors
var (
	// ErrKeyNotFound is returned when a key is not found in cache
	ErrKeyNotFound = errors.New("key not found")

	// ErrCacheUnavailable is returned when cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrInvalidCacheType is returned when cache type is invalid
	ErrInvalidCacheType = errors.New("invalid cache type")

	// ErrCacheDisabled is returned when cache is disabled
	ErrCacheDisabled = errors.New("cache disabled")

	// ErrSerializationFailed is returned when data serialization fails
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrDeserializationFailed is returned when data deserialization fails
	ErrDeserializationFailed = errors.New("deserialization failed")

	// ErrInvalidKey is returned when a cache key is invalid
	ErrInvalidKey = errors.New("invalid cache key")
)
