package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisPageCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisPageCache(client, ttl), mr
}

func TestRedisPageCache_RoundTrip(t *testing.T) {
	cache, mr := newRedisCache(t, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "https://acme.test/")
	require.NoError(t, err)
	assert.False(t, ok)

	ex := &Extraction{
		Page:  Page{URL: "https://acme.test/", Title: "Acme", Text: "hello"},
		Links: []string{"/about"},
	}
	require.NoError(t, cache.Set(ctx, "https://acme.test/", ex))

	got, ok, err := cache.Get(ctx, "https://acme.test/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ex, got)

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(ctx, "https://acme.test/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCrawl_UsesPageCache(t *testing.T) {
	var hits atomic.Int32
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>cached text</p></body></html>"))
	}))
	defer site.Close()

	cache, _ := newRedisCache(t, time.Minute)
	c := newTestCrawler(t, WithPageCache(cache))

	for i := 0; i < 3; i++ {
		result, err := c.Crawl(context.Background(), site.URL, Options{})
		require.NoError(t, err)
		require.Len(t, result.Pages, 1)
		assert.Equal(t, "cached text", result.Pages[0].Text)
	}
	assert.Equal(t, int32(1), hits.Load())
}
