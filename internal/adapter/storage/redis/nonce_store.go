package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore remembers key-export nonces so each is accepted once per scope.
type NonceStore struct {
	client goredis.Cmdable
}

func NewNonceStore(client goredis.Cmdable) *NonceStore {
	return &NonceStore{client: client}
}

func nonceKey(scope, nonce string) string {
	return "edu:nonce:" + scope + ":" + nonce
}

// CheckAndSet claims nonce within scope. It reports false when the nonce was
// already claimed and has not yet expired.
func (s *NonceStore) CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, nonceKey(scope, nonce), time.Now().UTC().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim nonce %s: %w", scope, err)
	}
	return claimed, nil
}
