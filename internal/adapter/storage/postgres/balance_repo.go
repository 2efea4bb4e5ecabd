package postgres

import (
	"context"
	"errors"
	"fmt"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Get fetches a user's balance row. Returns nil, nil when absent.
func (r *BalanceRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	query := `SELECT user_id, symbol, name, balance, usd_value, icon, decimals, version, updated_at
		FROM balances WHERE user_id = $1`

	var b domain.Balance
	var amount, usdRaw string
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&b.UserID, &b.Symbol, &b.Name, &amount, &usdRaw,
		&b.Icon, &b.Decimals, &b.Version, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}

	if b.Balance, err = decodeAmount("balance", amount); err != nil {
		return nil, err
	}
	if b.USDValue, err = decodeAmount("usd_value", usdRaw); err != nil {
		return nil, err
	}
	return &b, nil
}

// Upsert writes the balance unconditionally (last writer wins).
func (r *BalanceRepo) Upsert(ctx context.Context, b *domain.Balance) error {
	query := `INSERT INTO balances (user_id, symbol, name, balance, usd_value, icon, decimals, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			balance = EXCLUDED.balance, usd_value = EXCLUDED.usd_value,
			version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		b.UserID, b.Symbol, b.Name, encodeAmount(b.Balance), encodeAmount(b.USDValue),
		b.Icon, b.Decimals, b.Version, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// CompareAndSwap writes b only if the stored version still equals
// expectedVersion. With ports.NoVersion the write succeeds only when no
// row exists yet.
func (r *BalanceRepo) CompareAndSwap(ctx context.Context, b *domain.Balance, expectedVersion int64) (bool, error) {
	var query string
	if expectedVersion == ports.NoVersion {
		query = `INSERT INTO balances (user_id, symbol, name, balance, usd_value, icon, decimals, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (user_id) DO NOTHING`
	} else {
		query = `INSERT INTO balances (user_id, symbol, name, balance, usd_value, icon, decimals, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (user_id) DO UPDATE SET
				balance = EXCLUDED.balance, usd_value = EXCLUDED.usd_value,
				version = EXCLUDED.version, updated_at = EXCLUDED.updated_at
			WHERE balances.version = $10`
	}

	args := []any{
		b.UserID, b.Symbol, b.Name, encodeAmount(b.Balance), encodeAmount(b.USDValue),
		b.Icon, b.Decimals, b.Version, b.UpdatedAt,
	}
	if expectedVersion != ports.NoVersion {
		args = append(args, expectedVersion)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("compare and swap balance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
