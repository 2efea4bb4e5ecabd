package ports

//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks

import (
	"context"
	"time"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// LocalCache is the per-user persistent cache that fronts the remote
// store. Getters return nil (or an empty slice), nil when nothing is
// cached.
type LocalCache interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	SetBalance(ctx context.Context, balance *domain.Balance) error

	// GetTransactions returns the cached log, newest first.
	GetTransactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
	PrependTransaction(ctx context.Context, tx *domain.Transaction) error

	GetOwned(ctx context.Context, userID uuid.UUID) ([]domain.Ownership, error)
	SetOwned(ctx context.Context, userID uuid.UUID, owned []domain.Ownership) error

	// GetNFTActivity returns the cached marketplace history, oldest first.
	GetNFTActivity(ctx context.Context, userID uuid.UUID) ([]domain.NFTActivity, error)
	AppendNFTActivity(ctx context.Context, userID uuid.UUID, activity *domain.NFTActivity) error
}

// IdempotencyCache stores the result of a completed saga under a client key.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Reserve claims key for an in-flight operation. Returns false if it
	// is already claimed or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// NonceStore manages single-use nonces for key export.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}
