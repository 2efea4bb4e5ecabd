package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, display_name, avatar, password_hash, is_active, joined_at`

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Username, u.Email, u.DisplayName, u.Avatar, u.PasswordHash, u.IsActive, u.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by id. Returns nil, nil when absent.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername fetches a user by username (case-insensitive).
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

// GetByEmail fetches a user by email (case-insensitive).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// Search matches an exact id, or a username/email prefix. Inactive users
// are returned too so callers can report the flag.
func (r *UserRepo) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var (
		rows pgx.Rows
		err  error
	)
	if id, parseErr := uuid.Parse(query); parseErr == nil {
		rows, err = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	} else {
		pattern := escapeLike(strings.ToLower(query)) + "%"
		rows, err = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users
			WHERE lower(username) LIKE $1 OR lower(email) LIKE $1
			ORDER BY username LIMIT $2`, pattern, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Avatar, &u.PasswordHash, &u.IsActive, &u.JoinedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
