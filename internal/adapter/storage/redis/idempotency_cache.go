package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// reserveScript claims KEYS[2] unless KEYS[1] already holds a finished
// result. ARGV[1] is the claim TTL in milliseconds.
var reserveScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
if redis.call("SET", KEYS[2], "1", "NX", "PX", ARGV[1]) then
	return 1
end
return 0
`)

// IdempotencyCache stores the outcome of purchases, gifts and certificate
// issues keyed by the client's Idempotency-Key.
type IdempotencyCache struct {
	client goredis.Cmdable
}

func NewIdempotencyCache(client goredis.Cmdable) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

func resultKey(key string) string { return "edu:idem:" + key }
func claimKey(key string) string  { return "edu:idem:" + key + ":claim" }

// Get returns the stored outcome, or nil when there is none.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, resultKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotent result: %w", err)
	}
	return val, nil
}

// Set stores the outcome and drops any in-flight claim in one transaction.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, resultKey(key), value, ttl)
		p.Del(ctx, claimKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store idempotent result: %w", err)
	}
	return nil
}

// Reserve claims key for an operation about to run. It fails when another
// request holds the claim or the operation already finished.
func (c *IdempotencyCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	n, err := reserveScript.Run(ctx, c.client, []string{resultKey(key), claimKey(key)}, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return n == 1, nil
}

// Release drops a claim after the operation failed, so the client may retry.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, claimKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
