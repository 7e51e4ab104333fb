package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	t.Run("Miss", func(t *testing.T) {
		val, ok, err := c.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
		val, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), val)
	})

	t.Run("Expires", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Second))
		now = now.Add(2 * time.Second)
		_, ok, err := c.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NoTTLNeverExpires", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))
		now = now.Add(24 * time.Hour)
		_, ok, err := c.Get(ctx, "forever")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))

	c := NewRedisCache(client, "bookproxy:")

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "savvycal:link:abc", []byte(`{"id":"abc"}`), time.Minute))
		assert.True(t, s.Exists("bookproxy:savvycal:link:abc"))

		val, ok, err := c.Get(ctx, "savvycal:link:abc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"id":"abc"}`, string(val))
	})

	t.Run("Miss", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "nothing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("TTL", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "ttl", []byte("v"), time.Minute))
		s.FastForward(2 * time.Minute)
		_, ok, err := c.Get(ctx, "ttl")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NilClient", func(t *testing.T) {
		empty := NewRedisCache(nil, "")
		_, _, err := empty.Get(ctx, "k")
		assert.Error(t, err)
		assert.Error(t, empty.Set(ctx, "k", nil, 0))
	})
}

type flakyCache struct {
	err  error
	data map[string][]byte
	gets int
}

func (f *flakyCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.gets++
	if f.err != nil {
		return nil, false, f.err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *flakyCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = value
	return nil
}

func TestFailoverCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	primary := &flakyCache{}
	fallback := NewMemoryCache()
	c := NewFailoverCache(primary, fallback, nil)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("primary"), time.Minute))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("primary"), val)

	primary.err = errors.New("connection refused")
	require.NoError(t, c.Set(ctx, "k2", []byte("fallback"), time.Minute))
	assert.True(t, c.isDown.Load())

	gets := primary.gets
	val, ok, err = c.Get(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("fallback"), val)
	assert.Equal(t, gets, primary.gets, "primary must not be retried before the recovery interval")

	primary.err = nil
	now = now.Add(2 * recoveryInterval)
	val, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("primary"), val)
	assert.False(t, c.isDown.Load())
}
