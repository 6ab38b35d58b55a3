// Package redis keeps broker settings and locks in Redis so several broker
// instances can share one registration.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the broker writes.
const DefaultPrefix = "wafbroker:"

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
