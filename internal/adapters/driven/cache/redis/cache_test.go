package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cache, err := New(context.Background(), mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestCache_SetGet(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "text-embedding-3-small", "educación")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "text-embedding-3-small", "educación", []float32{0.5, -1, 2}))

	vec, ok, err := cache.Get(ctx, "text-embedding-3-small", "educación")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{0.5, -1, 2}, vec)

	_, ok, err = cache.Get(ctx, "nomic-embed-text", "educación")
	require.NoError(t, err)
	assert.False(t, ok, "entries are per model")
}

func TestCache_TTL(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "m", "salud", []float32{1}))
	assert.Equal(t, time.Hour, mr.TTL(Key("m", "salud")))

	mr.FastForward(2 * time.Hour)
	_, ok, err := cache.Get(ctx, "m", "salud")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_CorruptValue(t *testing.T) {
	cache, mr := setupCache(t)

	require.NoError(t, mr.Set(Key("m", "q"), "abc"))
	_, _, err := cache.Get(context.Background(), "m", "q")
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	k := Key("m", "query")
	assert.True(t, strings.HasPrefix(k, "plataformas:qemb:m:"))
	assert.Len(t, strings.TrimPrefix(k, "plataformas:qemb:m:"), 64)
	assert.NotEqual(t, k, Key("m", "query "))
}

func TestNew_URL(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := New(context.Background(), "redis://"+mr.Addr()+"/0", 0)
	require.NoError(t, err)
	defer cache.Close()
	assert.Equal(t, DefaultTTL, cache.ttl)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, "127.0.0.1:1", 0)
	assert.Error(t, err)
}

func TestNewWithClient(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)
	defer cache.Close()

	require.NoError(t, cache.Set(context.Background(), "m", "q", []float32{3}))
	assert.True(t, mr.Exists(Key("m", "q")))
}
