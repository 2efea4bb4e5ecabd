package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// LocalCacheCheck reports whether the local cache accepts commands.
type LocalCacheCheck struct {
	client goredis.Cmdable
}

func NewHealthCheck(client goredis.Cmdable) *LocalCacheCheck {
	return &LocalCacheCheck{client: client}
}

func (h *LocalCacheCheck) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("local cache: %w", err)
	}
	return nil
}

func (h *LocalCacheCheck) Name() string { return "local_cache" }
