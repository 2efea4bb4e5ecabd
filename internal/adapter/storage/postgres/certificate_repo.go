package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const certificateColumns = `id, certificate_id, owner_id, name, issuer, description, issue_date, verified, hash,
	student_name, student_email, grade, badge, color, signatories, duration, hours, specialization, created_at`

// CertificateRepo implements ports.CertificateRepository.
type CertificateRepo struct {
	pool Pool
}

// NewCertificateRepo creates a new CertificateRepo.
func NewCertificateRepo(pool Pool) *CertificateRepo {
	return &CertificateRepo{pool: pool}
}

// Create inserts a certificate.
func (r *CertificateRepo) Create(ctx context.Context, c *domain.Certificate) error {
	signatories, err := json.Marshal(c.Signatories)
	if err != nil {
		return fmt.Errorf("encode signatories: %w", err)
	}

	query := `INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = r.pool.Exec(ctx, query,
		c.ID, c.CertificateID, c.OwnerID, c.Name, c.Issuer, c.Description, c.Date, c.Verified, c.Hash,
		c.StudentName, c.StudentEmail, c.Grade, c.Badge, c.Color, signatories,
		c.Duration, c.Hours, c.Specialization, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// GetByCertificateID fetches a certificate by its public id. Returns nil, nil when absent.
func (r *CertificateRepo) GetByCertificateID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE certificate_id = $1`

	c, err := scanCertificate(r.pool.QueryRow(ctx, query, certificateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return c, nil
}

// Delete removes a certificate by row id. Used as the compensating step
// when charging for an issued certificate fails.
func (r *CertificateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("certificate not found: %s", id)
	}
	return nil
}

// ListByOwner returns the owner's certificates, newest first.
func (r *CertificateRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var certs []domain.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate row: %w", err)
		}
		certs = append(certs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return certs, nil
}

func scanCertificate(row pgx.Row) (*domain.Certificate, error) {
	var c domain.Certificate
	var signatories []byte
	err := row.Scan(
		&c.ID, &c.CertificateID, &c.OwnerID, &c.Name, &c.Issuer, &c.Description, &c.Date, &c.Verified, &c.Hash,
		&c.StudentName, &c.StudentEmail, &c.Grade, &c.Badge, &c.Color, &signatories,
		&c.Duration, &c.Hours, &c.Specialization, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(signatories) > 0 {
		if err := json.Unmarshal(signatories, &c.Signatories); err != nil {
			return nil, fmt.Errorf("decode signatories: %w", err)
		}
	}
	return &c, nil
}
