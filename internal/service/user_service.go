package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const searchLimit = 20

// UserServiceImpl implements ports.UserService.
type UserServiceImpl struct {
	users    ports.UserRepository
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	sweeper  ports.SyncService
	sessions ports.SessionService
	log      zerolog.Logger

	now func() time.Time
}

// NewUserService creates a new UserServiceImpl.
func NewUserService(
	users ports.UserRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	sweeper ports.SyncService,
	sessions ports.SessionService,
	log zerolog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		users:    users,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		sweeper:  sweeper,
		sessions: sessions,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an active account. Username and email are unique,
// compared case-insensitively by the repository.
func (s *UserServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}
	existing, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	// Hash password with Argon2id
	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		Avatar:       req.Avatar,
		PasswordHash: passwordHash,
		IsActive:     true,
		JoinedAt:     s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("username", username).Msg("user registered")
	return user, nil
}

// Login validates credentials, issues a JWT, reconciles the user's local
// and remote stores and starts the periodic sync loop.
func (s *UserServiceImpl) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive()
	}

	token, expiry, err := s.tokenSvc.Generate(user.ID, user.Username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	report := s.sweeper.SyncOnLogin(ctx, user.ID)
	s.sessions.Start(user.ID)

	s.log.Info().
		Str("user_id", user.ID.String()).
		Bool("sync_ok", report.AllSucceeded()).
		Msg("user logged in")
	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: expiry,
		User:      user.Public(),
		Sync:      report,
	}, nil
}

func (s *UserServiceImpl) Logout(_ context.Context, userID uuid.UUID) {
	s.sessions.Stop(userID)
	s.log.Info().Str("user_id", userID.String()).Msg("user logged out")
}

// Search returns up to 20 accounts matching an id, or a username or email
// prefix. Inactive accounts are included and flagged.
func (s *UserServiceImpl) Search(ctx context.Context, query string) ([]domain.PublicUser, error) {
	query = normalizeQuery(query)
	if query == "" {
		return []domain.PublicUser{}, nil
	}
	found, err := s.users.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("search users: %w", err))
	}
	out := make([]domain.PublicUser, 0, len(found))
	for i := range found {
		out = append(out, found[i].Public())
	}
	return out, nil
}

// ResolveRecipient finds exactly one account by id, email or username.
func (s *UserServiceImpl) ResolveRecipient(ctx context.Context, query string) (*domain.PublicUser, error) {
	query = normalizeQuery(query)
	if query == "" {
		return nil, apperror.ErrInvalidRecipient()
	}

	var (
		user *domain.User
		err  error
	)
	switch {
	case isUUID(query):
		id, _ := uuid.Parse(query)
		user, err = s.users.GetByID(ctx, id)
	case strings.Contains(query, "@"):
		user, err = s.users.GetByEmail(ctx, strings.ToLower(query))
	default:
		user, err = s.users.GetByUsername(ctx, query)
	}
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve recipient: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidRecipient()
	}
	if !user.IsActive {
		return nil, apperror.ErrRecipientInactive()
	}
	pub := user.Public()
	return &pub, nil
}

// normalizeQuery trims whitespace and a leading handle marker.
func normalizeQuery(q string) string {
	return strings.TrimPrefix(strings.TrimSpace(q), "@")
}

func isUUID(s string) bool {
	return uuid.Validate(s) == nil
}
