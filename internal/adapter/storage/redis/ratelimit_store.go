package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"edu-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore counts requests per key in fixed windows aligned to the
// window length, one Redis counter per window.
type RateLimitStore struct {
	client goredis.Cmdable
	now    func() time.Time
}

func NewRateLimitStore(client goredis.Cmdable) *RateLimitStore {
	return &RateLimitStore{client: client, now: time.Now}
}

func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	start := s.now().Truncate(window)
	end := start.Add(window)
	counter := "edu:rl:" + key + ":" + strconv.FormatInt(start.Unix(), 10)

	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, counter)
		p.ExpireAt(ctx, counter, end.Add(time.Second))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count request for %s: %w", key, err)
	}

	count := incr.Val()
	return &ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   end.Unix(),
	}, nil
}
