package postgres

import (
	"context"
	"errors"
	"fmt"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// WalletKeyRepo implements ports.WalletKeyRepository.
type WalletKeyRepo struct {
	pool Pool
}

// NewWalletKeyRepo creates a new WalletKeyRepo.
func NewWalletKeyRepo(pool Pool) *WalletKeyRepo {
	return &WalletKeyRepo{pool: pool}
}

// Create inserts the user's key pair. The primary key on user_id enforces
// one key per user.
func (r *WalletKeyRepo) Create(ctx context.Context, k *domain.WalletKey) error {
	query := `INSERT INTO wallet_keys (user_id, address, public_key, encrypted_private_key, encrypted_mnemonic,
		encryption_scheme, derivation_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		k.UserID, k.Address, k.PublicKey, k.EncryptedPrivateKey, k.EncryptedMnemonic,
		string(k.Scheme), k.DerivationPath, k.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrWalletKeyExists
		}
		return fmt.Errorf("insert wallet key: %w", err)
	}
	return nil
}

// GetByUserID fetches the user's key. Returns nil, nil when absent.
func (r *WalletKeyRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.WalletKey, error) {
	query := `SELECT user_id, address, public_key, encrypted_private_key, encrypted_mnemonic,
		encryption_scheme, derivation_path, created_at
		FROM wallet_keys WHERE user_id = $1`

	var k domain.WalletKey
	var scheme string
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&k.UserID, &k.Address, &k.PublicKey, &k.EncryptedPrivateKey, &k.EncryptedMnemonic,
		&scheme, &k.DerivationPath, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet key: %w", err)
	}
	k.Scheme = domain.EncryptionScheme(scheme)
	return &k, nil
}
