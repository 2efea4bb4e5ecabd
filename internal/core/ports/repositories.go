package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// NoVersion is passed as expectedVersion to CompareAndSwap when no remote
// balance row is expected to exist yet.
const NoVersion int64 = -1

// BalanceRepository is the remote balance collection. Get returns nil, nil
// when the user has no row.
type BalanceRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	Upsert(ctx context.Context, balance *domain.Balance) error
	// CompareAndSwap writes balance only if the stored version equals
	// expectedVersion (or no row exists when expectedVersion is NoVersion).
	// Returns false, nil when the condition did not hold.
	CompareAndSwap(ctx context.Context, balance *domain.Balance, expectedVersion int64) (bool, error)
}

// TransactionRepository is the remote transaction collection.
type TransactionRepository interface {
	// Append inserts the record; an existing id is left as is.
	Append(ctx context.Context, tx *domain.Transaction) error
	// ListByUser returns the user's log, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
}

// OwnershipRepository is the remote NFT ownership collection.
type OwnershipRepository interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Ownership, error)
	Add(ctx context.Context, ownership *domain.Ownership) error
	// Remove deletes every row for (ownerID, nftID). Removing a
	// non-owned id is not an error.
	Remove(ctx context.Context, ownerID uuid.UUID, nftID string) error
}

// CertificateRepository is the remote certificate collection.
type CertificateRepository interface {
	Create(ctx context.Context, cert *domain.Certificate) error
	GetByCertificateID(ctx context.Context, certificateID string) (*domain.Certificate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Certificate, error)
}

// WalletKeyRepository persists encrypted key pairs, one per user.
type WalletKeyRepository interface {
	Create(ctx context.Context, key *domain.WalletKey) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.WalletKey, error)
}

// UserRepository is the account directory.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Search matches an exact id, or a username/email prefix.
	Search(ctx context.Context, query string, limit int) ([]domain.User, error)
}

// AuditRepository persists audit trail entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
