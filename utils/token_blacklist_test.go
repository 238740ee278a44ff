package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetRedisClient(nil) })
	return mr
}

func TestBlacklistTokenRedis(t *testing.T) {
	mr := useMiniredis(t)

	assert.False(t, IsTokenBlacklisted("tok-1"))
	BlacklistToken("tok-1", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("tok-1"))
	assert.False(t, IsTokenBlacklisted("tok-2"))

	// The entry disappears once the token would have expired anyway.
	mr.FastForward(2 * time.Hour)
	assert.False(t, IsTokenBlacklisted("tok-1"))
}

func TestBlacklistTokenAlreadyExpired(t *testing.T) {
	useMiniredis(t)

	BlacklistToken("stale", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("stale"))
}

func TestCacheRoundTrip(t *testing.T) {
	useMiniredis(t)

	_, ok := CacheGetBytes("cache:post:detail:1")
	assert.False(t, ok)

	CacheSetBytes("cache:post:detail:1", []byte(`{"a":1}`), time.Minute)
	b, ok := CacheGetBytes("cache:post:detail:1")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(b))
}

func TestInvalidateByPrefix(t *testing.T) {
	useMiniredis(t)

	CacheSetBytes("cache:user:1:posts:page=1", []byte("a"), time.Minute)
	CacheSetBytes("cache:user:1:posts:page=2", []byte("b"), time.Minute)
	CacheSetBytes("cache:user:2:posts:page=1", []byte("c"), time.Minute)

	InvalidateByPrefix("cache:user:1:posts")

	_, ok := CacheGetBytes("cache:user:1:posts:page=1")
	assert.False(t, ok)
	_, ok = CacheGetBytes("cache:user:1:posts:page=2")
	assert.False(t, ok)
	_, ok = CacheGetBytes("cache:user:2:posts:page=1")
	assert.True(t, ok)
}
