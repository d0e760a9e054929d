package config

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

// ConnectRedisWithRetry connects the optional Redis used for rate limiting and
// start-up locks. Without REDIS_ADDRESS it does nothing.
//
// Env:
// - REDIS_ADDRESS
// - REDIS_CONNECT_ATTEMPTS (default 5)
func ConnectRedisWithRetry(ctx context.Context) {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		log.Printf("REDIS_ADDRESS not set; rate limiting and distributed locks disabled")
		return
	}
	maxAttempts := intFromEnv("REDIS_CONNECT_ATTEMPTS", 5)

	for attempt := 1; ; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
			PoolSize: 100,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			rdb = client
			locker = redislock.New(rdb)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return
		}
		_ = client.Close()
		if attempt >= maxAttempts {
			log.Printf("giving up on redis (attempt=%d addr=%s): %v", attempt, redisAddr, err)
			return
		}
		sleep := retryDelay(attempt)
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, redisAddr, err, sleep)
		if sleepCtx(ctx, sleep) != nil {
			return
		}
	}
}

// WithRedisLock runs fn while holding key across all replicas.
// Without Redis, fn runs unguarded.
func WithRedisLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	if locker == nil {
		return fn()
	}
	lock, err := locker.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(500*time.Millisecond), int(2*ttl/time.Second)),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return errors.New("lock " + key + " held by another replica")
		}
		return err
	}
	defer lock.Release(context.Background())
	return fn()
}
