package redis

import (
	"context"
	"sync"
	"time"

	"chatline/global/config"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce sync.Once
	client    *redis.Client
)

// Init sets up the shared client (singleton) and verifies connectivity.
func Init(c config.RedisConfig) error {
	var initErr error
	redisOnce.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Addr,
			Password: c.Password,
			DB:       c.DB,
			PoolSize: c.PoolSize,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			initErr = err
			return
		}
		client = rdb
	})
	return initErr
}

// Get returns the shared client, or nil when redis is not configured;
// callers treat nil as "cache disabled".
func Get() *redis.Client { return client }

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
