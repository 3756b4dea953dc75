// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qolzam/inkwell/internal/pkg/log"
)

// GenericCacheService stores JSON values under a key prefix on top of a
// Cache backend. A nil backend disables caching.
type GenericCacheService struct {
	cache  Cache
	prefix string
	ttl    time.Duration
}

// NewGenericCacheService creates a cache service
func NewGenericCacheService(cache Cache, prefix string, ttl time.Duration) *GenericCacheService {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &GenericCacheService{cache: cache, prefix: prefix, ttl: ttl}
}

// IsEnabled reports whether a backend is configured.
func (gcs *GenericCacheService) IsEnabled() bool {
	return gcs != nil && gcs.cache != nil
}

// GetCached retrieves and unmarshals cached data into target.
func (gcs *GenericCacheService) GetCached(ctx context.Context, key string, target interface{}) error {
	if !gcs.IsEnabled() {
		return ErrCacheDisabled
	}
	if err := validateKey(key); err != nil {
		return err
	}

	fullKey := gcs.buildKey(key)
	data, err := gcs.cache.Get(ctx, fullKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Error("Cache get error for key %s: %v", fullKey, err)
		}
		return err
	}

	if err := json.Unmarshal(data, target); err != nil {
		log.Error("Cache data unmarshal error for key %s: %v", fullKey, err)
		return fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
	}
	return nil
}

// CacheData marshals and stores data with the default TTL or ttl[0].
func (gcs *GenericCacheService) CacheData(ctx context.Context, key string, data interface{}, ttl ...time.Duration) error {
	if !gcs.IsEnabled() {
		return ErrCacheDisabled
	}
	if err := validateKey(key); err != nil {
		return err
	}

	cacheTTL := gcs.ttl
	if len(ttl) > 0 && ttl[0] > 0 {
		cacheTTL = ttl[0]
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}

	fullKey := gcs.buildKey(key)
	if err := gcs.cache.Set(ctx, fullKey, jsonData, cacheTTL); err != nil {
		log.Error("Cache set error for key %s: %v", fullKey, err)
		return err
	}
	return nil
}

// InvalidateKey removes a specific key from cache
func (gcs *GenericCacheService) InvalidateKey(ctx context.Context, key string) error {
	if !gcs.IsEnabled() {
		return ErrCacheDisabled
	}
	fullKey := gcs.buildKey(key)
	if err := gcs.cache.Delete(ctx, fullKey); err != nil {
		log.Error("Cache key invalidation error for key %s: %v", fullKey, err)
		return err
	}
	return nil
}

// InvalidatePattern removes all cache keys matching the given pattern
func (gcs *GenericCacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	if !gcs.IsEnabled() {
		return ErrCacheDisabled
	}
	fullPattern := gcs.buildKey(pattern)
	if err := gcs.cache.DeletePattern(ctx, fullPattern); err != nil {
		log.Error("Cache pattern invalidation error for pattern %s: %v", fullPattern, err)
		return err
	}
	return nil
}

// GetStats returns backend statistics.
func (gcs *GenericCacheService) GetStats() CacheStats {
	if !gcs.IsEnabled() {
		return CacheStats{}
	}
	return gcs.cache.Stats()
}

// Close closes the backend.
func (gcs *GenericCacheService) Close() error {
	if !gcs.IsEnabled() {
		return nil
	}
	return gcs.cache.Close()
}

func (gcs *GenericCacheService) buildKey(key string) string {
	return gcs.prefix + key
}

// validateKey rejects empty keys, control characters and spaces.
func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	for _, char := range key {
		if char <= 32 || char >= 127 {
			return fmt.Errorf("%w: contains invalid character", ErrInvalidKey)
		}
	}
	if len(key) > 250 {
		return fmt.Errorf("%w: key too long (max 250 characters)", ErrInvalidKey)
	}
	return nil
}
