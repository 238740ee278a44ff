package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dicomeinit/post-comment-app/config"
)

var (
	redisClient *redis.Client
	redisMu     sync.Mutex
)

// GetRedis returns a lazily initialized Redis client based on loaded config.
// Callers must tolerate operational errors; every redis-backed path in this
// codebase is best-effort with an in-memory or no-op fallback.
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()

	if redisClient != nil {
		return redisClient
	}

	cfg := config.Get()
	redisClient = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	// Ping to validate; ignore error to allow fallback paths
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = redisClient.Ping(ctx).Err()

	return redisClient
}

// SetRedisClient replaces the shared client. Tests point it at a miniredis instance.
func SetRedisClient(c *redis.Client) {
	redisMu.Lock()
	defer redisMu.Unlock()
	redisClient = c
}
