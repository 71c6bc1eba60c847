package cache_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kwan-Yee/i18nhttp/cache"
	cacheredis "github.com/Kwan-Yee/i18nhttp/cache/redis"
)

// cacheImplementations returns every store available in this environment.
// Redis is exercised only when CACHE_TEST_REDIS_URI points at a live server.
func cacheImplementations(t *testing.T) map[string]cache.RawCache {
	t.Helper()

	implementations := map[string]cache.RawCache{
		"InMemory": cache.NewInMemoryCache(),
	}

	if addr := os.Getenv("CACHE_TEST_REDIS_ADDR"); addr != "" {
		redisCache, err := cacheredis.New(cacheredis.Options{Addr: addr})
		require.NoError(t, err)
		implementations["Redis"] = redisCache
	}

	return implementations
}

func TestSetGet(t *testing.T) {
	for name, impl := range cacheImplementations(t) {
		t.Run(name, func(t *testing.T) {
			t.Cleanup(func() { _ = impl.Close() })
			ctx := context.Background()

			require.NoError(t, impl.Set(ctx, "k", []byte("value"), time.Minute))

			got, found, err := impl.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("value"), got)

			_, found, err = impl.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestExpiration(t *testing.T) {
	for name, impl := range cacheImplementations(t) {
		t.Run(name, func(t *testing.T) {
			t.Cleanup(func() { _ = impl.Close() })
			ctx := context.Background()

			require.NoError(t, impl.Set(ctx, "ttl", []byte("v"), 30*time.Millisecond))

			_, found, err := impl.Get(ctx, "ttl")
			require.NoError(t, err)
			require.True(t, found)

			time.Sleep(60 * time.Millisecond)

			_, found, err = impl.Get(ctx, "ttl")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestDelete(t *testing.T) {
	for name, impl := range cacheImplementations(t) {
		t.Run(name, func(t *testing.T) {
			t.Cleanup(func() { _ = impl.Close() })
			ctx := context.Background()

			require.NoError(t, impl.Set(ctx, "k", []byte("v"), time.Minute))
			require.NoError(t, impl.Delete(ctx, "k"))

			exists, err := impl.Exists(ctx, "k")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestDeletePrefix(t *testing.T) {
	for name, impl := range cacheImplementations(t) {
		t.Run(name, func(t *testing.T) {
			t.Cleanup(func() { _ = impl.Close() })
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				require.NoError(t, impl.Set(ctx, fmt.Sprintf("family:%d", i), []byte("v"), time.Minute))
			}
			require.NoError(t, impl.Set(ctx, "other:0", []byte("v"), time.Minute))

			require.NoError(t, impl.DeletePrefix(ctx, "family:"))

			for i := 0; i < 3; i++ {
				exists, err := impl.Exists(ctx, fmt.Sprintf("family:%d", i))
				require.NoError(t, err)
				assert.False(t, exists)
			}

			exists, err := impl.Exists(ctx, "other:0")
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}

func TestFlush(t *testing.T) {
	for name, impl := range cacheImplementations(t) {
		t.Run(name, func(t *testing.T) {
			t.Cleanup(func() { _ = impl.Close() })
			ctx := context.Background()

			require.NoError(t, impl.Set(ctx, "a", []byte("1"), time.Minute))
			require.NoError(t, impl.Set(ctx, "b", []byte("2"), time.Minute))

			require.NoError(t, impl.Flush(ctx))

			for _, key := range []string{"a", "b"} {
				exists, err := impl.Exists(ctx, key)
				require.NoError(t, err)
				assert.False(t, exists)
			}
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	impl := cache.NewInMemoryCache()
	require.NoError(t, impl.Close())
	require.NoError(t, impl.Close())
}
