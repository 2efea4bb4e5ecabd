package postgres

import (
	"context"
	"fmt"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Append inserts a transaction. Re-sending an id already stored is a no-op,
// which keeps sweeper retries from duplicating entries.
func (r *TransactionRepo) Append(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, user_id, type, amount, symbol, from_party, to_party, nft_id,
		status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.UserID, string(t.Type), encodeAmount(t.Amount), t.Symbol,
		t.From, t.To, t.NFTID, string(t.Status), t.Description, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByUser returns the user's transactions, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT id, user_id, type, amount, symbol, from_party, to_party, nft_id,
		status, description, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var txType, status, amount string
		if err := rows.Scan(
			&t.ID, &t.UserID, &txType, &amount, &t.Symbol, &t.From, &t.To, &t.NFTID,
			&status, &t.Description, &t.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		t.Type = domain.TransactionType(txType)
		t.Status = domain.TransactionStatus(status)
		if t.Amount, err = decodeAmount("amount", amount); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}
