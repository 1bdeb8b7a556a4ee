package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"huddle/config"
)

var (
	// CacheClient caches candidate matches.
	CacheClient *redis.Client
	// ContextClient holds per-session chat context.
	ContextClient *redis.Client
)

func newRedisClient(db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis db %d: %w", db, err)
	}
	return client, nil
}

// InitCache connects the match cache and chat context clients. It is a no-op
// when no Redis address is configured.
func InitCache() error {
	if config.AppConfig.RedisAddr == "" {
		return nil
	}
	var err error
	if CacheClient, err = newRedisClient(config.AppConfig.RedisCacheDB); err != nil {
		return err
	}
	if ContextClient, err = newRedisClient(config.AppConfig.RedisContextDB); err != nil {
		return err
	}
	return nil
}

// RedisClients returns every connected client, for health checks and shutdown.
func RedisClients() []*redis.Client {
	var out []*redis.Client
	for _, c := range []*redis.Client{CacheClient, ContextClient} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// CloseCache closes every connected client.
func CloseCache() {
	for _, c := range RedisClients() {
		_ = c.Close()
	}
}
