package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// OwnershipRepo implements ports.OwnershipRepository. The NFT snapshot is
// kept as JSONB next to the acquisition columns.
type OwnershipRepo struct {
	pool Pool
}

// NewOwnershipRepo creates a new OwnershipRepo.
func NewOwnershipRepo(pool Pool) *OwnershipRepo {
	return &OwnershipRepo{pool: pool}
}

// ListByOwner returns the owner's acquisitions, most recent first.
func (r *OwnershipRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Ownership, error) {
	query := `SELECT id, owner_id, nft, acquired_type, acquired_at, received_from, gift_message
		FROM nft_ownerships WHERE owner_id = $1
		ORDER BY acquired_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list ownerships: %w", err)
	}
	defer rows.Close()

	var owned []domain.Ownership
	for rows.Next() {
		var o domain.Ownership
		var nftJSON []byte
		var acquired string
		if err := rows.Scan(
			&o.ID, &o.OwnerID, &nftJSON, &acquired, &o.AcquiredAt, &o.ReceivedFrom, &o.GiftMessage,
		); err != nil {
			return nil, fmt.Errorf("scan ownership row: %w", err)
		}
		if err := json.Unmarshal(nftJSON, &o.NFT); err != nil {
			return nil, fmt.Errorf("decode nft snapshot %s: %w", o.ID, err)
		}
		o.AcquiredType = domain.AcquiredType(acquired)
		owned = append(owned, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ownerships: %w", err)
	}
	return owned, nil
}

// Add inserts an acquisition. The same id sent twice is stored once.
func (r *OwnershipRepo) Add(ctx context.Context, o *domain.Ownership) error {
	nftJSON, err := json.Marshal(o.NFT)
	if err != nil {
		return fmt.Errorf("encode nft snapshot: %w", err)
	}

	query := `INSERT INTO nft_ownerships (id, owner_id, nft_id, nft, acquired_type, acquired_at, received_from, gift_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.pool.Exec(ctx, query,
		o.ID, o.OwnerID, o.NFT.ID, nftJSON, string(o.AcquiredType), o.AcquiredAt, o.ReceivedFrom, o.GiftMessage,
	)
	if err != nil {
		return fmt.Errorf("insert ownership: %w", err)
	}
	return nil
}

// Remove deletes the owner's rows for nftID. Zero affected rows is fine.
func (r *OwnershipRepo) Remove(ctx context.Context, ownerID uuid.UUID, nftID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM nft_ownerships WHERE owner_id = $1 AND nft_id = $2`, ownerID, nftID)
	if err != nil {
		return fmt.Errorf("delete ownership: %w", err)
	}
	return nil
}
