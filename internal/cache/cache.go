package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the redis client used for analytics caching. The scheduling
// core only ever invalidates; the analytics surface owns reads and writes.
// A nil *Cache is valid and makes every call a no-op.
type Cache struct {
	client *redis.Client
}

func New(addr string) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// InvalidateUser drops the cached analytics entries for one user so the next
// dashboard read recomputes against fresh rows.
func (c *Cache) InvalidateUser(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	pattern := fmt.Sprintf("analytics:user:%d:*", userID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Info(err.Error())
			return err
		}
	}
	if err := iter.Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
