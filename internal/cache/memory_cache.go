// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"context"
	"path"
	"sync"
	"sync/atomic"
	"time"
)

// cacheItem represents an item in the memory cache
type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// MemoryCache implements Cache with a process-local map. Expired entries
// are dropped on access and by a periodic sweep.
type MemoryCache struct {
	items  map[string]*cacheItem
	mutex  sync.RWMutex
	hits   int64
	misses int64
	done   chan struct{}
	once   sync.Once
}

// NewMemoryCache creates a new in-memory cache. A positive cleanupInterval
// starts the background sweep.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items: make(map[string]*cacheItem),
		done:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.startCleanup(cleanupInterval)
	}
	return c
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()

	if !exists || item.expired(time.Now()) {
		atomic.AddInt64(&c.misses, 1)
		if exists {
			_ = c.Delete(ctx, key)
		}
		return nil, ErrKeyNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	result := make([]byte, len(item.value))
	copy(result, item.value)
	return result, nil
}

// Set stores a value in cache with expiration. A ttl of zero never expires.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	item := &cacheItem{value: valueCopy}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	c.mutex.Lock()
	c.items[key] = item
	c.mutex.Unlock()
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	delete(c.items, key)
	c.mutex.Unlock()
	return nil
}

// DeletePattern removes all keys matching the glob pattern
func (c *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key := range c.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.items, key)
		}
	}
	return nil
}

// Exists checks if a live key exists in cache
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()
	return exists && !item.expired(time.Now()), nil
}

// Close stops the cleanup sweep.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mutex.RLock()
	keys := int64(len(c.items))
	c.mutex.RUnlock()
	return CacheStats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Keys:   keys,
	}
}

func (c *MemoryCache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.done:
			return
		}
	}
}

func (c *MemoryCache) cleanupExpired() {
	now := time.Now()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
		}
	}
}
