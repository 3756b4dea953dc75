// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/qolzam/inkwell/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemoryCache_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	ok, _ := c.Exists(ctx, "short")
	assert.False(t, ok)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	for _, k := range []string{"categories:name:go", "categories:name:rust", "users:1"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Minute))
	}
	require.NoError(t, c.DeletePattern(ctx, "categories:*"))

	assert.Equal(t, int64(1), c.Stats().Keys)
	ok, _ := c.Exists(ctx, "users:1")
	assert.True(t, ok)
}

func TestGenericCacheService_JSONRoundTripWithPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := NewMemoryCache(0)
	svc := NewGenericCacheService(backend, "inkwell", time.Minute)
	defer svc.Close()

	type entry struct {
		ID string `json:"id"`
	}
	require.NoError(t, svc.CacheData(ctx, "categories:name:go", entry{ID: "c1"}))

	raw, err := backend.Get(ctx, "inkwell:categories:name:go")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1"}`, string(raw))

	var got entry
	require.NoError(t, svc.GetCached(ctx, "categories:name:go", &got))
	assert.Equal(t, "c1", got.ID)

	require.NoError(t, svc.InvalidatePattern(ctx, "categories:*"))
	assert.ErrorIs(t, svc.GetCached(ctx, "categories:name:go", &got), ErrKeyNotFound)
}

func TestGenericCacheService_Disabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewGenericCacheService(nil, "", time.Minute)

	assert.False(t, svc.IsEnabled())
	assert.ErrorIs(t, svc.CacheData(ctx, "k", 1), ErrCacheDisabled)
	var out int
	assert.ErrorIs(t, svc.GetCached(ctx, "k", &out), ErrCacheDisabled)
	assert.NoError(t, svc.Close())
}

func TestGenericCacheService_RejectsInvalidKeys(t *testing.T) {
	t.Parallel()
	svc := NewGenericCacheService(NewMemoryCache(0), "", time.Minute)
	defer svc.Close()

	assert.ErrorIs(t, svc.CacheData(context.Background(), "has space", 1), ErrInvalidKey)
	assert.ErrorIs(t, svc.CacheData(context.Background(), "", 1), ErrInvalidKey)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	svc, err := NewFromConfig(config.CacheConfig{Enabled: true, Backend: "memory", Prefix: "t", TTL: time.Minute})
	require.NoError(t, err)
	assert.True(t, svc.IsEnabled())
	svc.Close()

	svc, err = NewFromConfig(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())

	_, err = NewFromConfig(config.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.ErrorIs(t, err, ErrInvalidCacheType)
}

func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	ctx := context.Background()
	rc, err := NewRedisCache(RedisOptions{Address: addr})
	require.NoError(t, err)
	defer rc.Close()

	require.NoError(t, rc.Set(ctx, "inkwell-test:k", []byte("v"), time.Minute))
	got, err := rc.Get(ctx, "inkwell-test:k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, rc.DeletePattern(ctx, "inkwell-test:*"))
	_, err = rc.Get(ctx, "inkwell-test:k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
