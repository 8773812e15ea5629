// Package cache holds the Redis connection and the refresh token mirror used
// for low-latency validity checks.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open connects to Redis using a redis:// URL and verifies the connection
// with a ping. Returns (nil, nil) when url is empty, which disables the
// cache tier. Caller must call Close when done.
func Open(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
