// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"fmt"
	"time"

	"github.com/qolzam/inkwell/internal/platform/config"
)

// NewFromConfig creates the configured cache service. A disabled cache
// yields a service whose reads always miss.
func NewFromConfig(cfg config.CacheConfig) (*GenericCacheService, error) {
	if !cfg.Enabled {
		return NewGenericCacheService(nil, cfg.Prefix, cfg.TTL), nil
	}

	backend := CacheType(cfg.Backend)
	if !backend.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCacheType, cfg.Backend)
	}

	var c Cache
	switch backend {
	case CacheTypeRedis:
		rc, err := NewRedisCache(RedisOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		c = rc
	default:
		c = NewMemoryCache(5 * time.Minute)
	}
	return NewGenericCacheService(c, cfg.Prefix, cfg.TTL), nil
}
