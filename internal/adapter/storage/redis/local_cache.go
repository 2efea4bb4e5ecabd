package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// LocalCache implements ports.LocalCache on Redis. Every key is scoped by
// user: edu:<user>:balance, edu:<user>:transactions, edu:<user>:owned and
// edu:<user>:activity. Values are JSON. Keys do not expire.
type LocalCache struct {
	client goredis.Cmdable
	prefix string
}

// NewLocalCache creates a Redis-backed local cache.
func NewLocalCache(client goredis.Cmdable) *LocalCache {
	return &LocalCache{
		client: client,
		prefix: "edu:",
	}
}

func (c *LocalCache) key(userID uuid.UUID, kind string) string {
	return c.prefix + userID.String() + ":" + kind
}

func (c *LocalCache) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	raw, err := c.client.Get(ctx, c.key(userID, "balance")).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis balance get: %w", err)
	}

	var b domain.Balance
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode cached balance: %w", err)
	}
	return &b, nil
}

func (c *LocalCache) SetBalance(ctx context.Context, balance *domain.Balance) error {
	raw, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("encode balance: %w", err)
	}
	if err := c.client.Set(ctx, c.key(balance.UserID, "balance"), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis balance set: %w", err)
	}
	return nil
}

// GetTransactions returns the cached log, newest first.
func (c *LocalCache) GetTransactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	items, err := c.client.LRange(ctx, c.key(userID, "transactions"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis transactions range: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		var tx domain.Transaction
		if err := json.Unmarshal([]byte(item), &tx); err != nil {
			return nil, fmt.Errorf("decode cached transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (c *LocalCache) PrependTransaction(ctx context.Context, tx *domain.Transaction) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	if err := c.client.LPush(ctx, c.key(tx.UserID, "transactions"), raw).Err(); err != nil {
		return fmt.Errorf("redis transactions push: %w", err)
	}
	return nil
}

func (c *LocalCache) GetOwned(ctx context.Context, userID uuid.UUID) ([]domain.Ownership, error) {
	raw, err := c.client.Get(ctx, c.key(userID, "owned")).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis owned get: %w", err)
	}

	var owned []domain.Ownership
	if err := json.Unmarshal(raw, &owned); err != nil {
		return nil, fmt.Errorf("decode cached ownerships: %w", err)
	}
	return owned, nil
}

// SetOwned replaces the whole owned list.
func (c *LocalCache) SetOwned(ctx context.Context, userID uuid.UUID, owned []domain.Ownership) error {
	if owned == nil {
		owned = []domain.Ownership{}
	}
	raw, err := json.Marshal(owned)
	if err != nil {
		return fmt.Errorf("encode ownerships: %w", err)
	}
	if err := c.client.Set(ctx, c.key(userID, "owned"), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis owned set: %w", err)
	}
	return nil
}

// GetNFTActivity returns the cached marketplace history, oldest first.
func (c *LocalCache) GetNFTActivity(ctx context.Context, userID uuid.UUID) ([]domain.NFTActivity, error) {
	items, err := c.client.LRange(ctx, c.key(userID, "activity"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis activity range: %w", err)
	}

	activity := make([]domain.NFTActivity, 0, len(items))
	for _, item := range items {
		var a domain.NFTActivity
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("decode cached activity: %w", err)
		}
		activity = append(activity, a)
	}
	return activity, nil
}

func (c *LocalCache) AppendNFTActivity(ctx context.Context, userID uuid.UUID, activity *domain.NFTActivity) error {
	raw, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	if err := c.client.RPush(ctx, c.key(userID, "activity"), raw).Err(); err != nil {
		return fmt.Errorf("redis activity push: %w", err)
	}
	return nil
}
