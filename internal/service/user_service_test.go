package service

import (
	"context"
	"testing"
	"time"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type userTestDeps struct {
	svc      *UserServiceImpl
	users    *mocks.MockUserRepository
	hashSvc  *mocks.MockHashService
	tokenSvc *mocks.MockTokenService
	sweeper  *mocks.MockSyncService
	sessions *mocks.MockSessionService
}

func setupUserService(t *testing.T) *userTestDeps {
	ctrl := gomock.NewController(t)
	d := &userTestDeps{
		users:    mocks.NewMockUserRepository(ctrl),
		hashSvc:  mocks.NewMockHashService(ctrl),
		tokenSvc: mocks.NewMockTokenService(ctrl),
		sweeper:  mocks.NewMockSyncService(ctrl),
		sessions: mocks.NewMockSessionService(ctrl),
	}
	d.svc = NewUserService(d.users, d.hashSvc, d.tokenSvc, d.sweeper, d.sessions, newTestLogger())
	return d
}

func TestUserService_Register_Success(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "ada").Return(nil, nil)
	d.users.EXPECT().GetByEmail(ctx, "ada@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("StrongP@ss123").Return("$argon2id$hashed", nil)
	d.users.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	user, err := d.svc.Register(ctx, ports.RegisterRequest{
		Username: " ada ",
		Email:    "Ada@Example.com",
		Password: "StrongP@ss123",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "ada", user.DisplayName)
	assert.Equal(t, "$argon2id$hashed", user.PasswordHash)
	assert.True(t, user.IsActive)
}

func TestUserService_Register_DuplicateUsername(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "ada").Return(&domain.User{Username: "ada"}, nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "ada", Email: "a@b.c", Password: "pw"})
	assertAppError(t, err, "AUTH_002")
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "ada").Return(nil, nil)
	d.users.EXPECT().GetByEmail(ctx, "a@b.c").Return(&domain.User{Email: "a@b.c"}, nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "ada", Email: "a@b.c", Password: "pw"})
	assertAppError(t, err, "AUTH_005")
}

func TestUserService_Login_Success(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Username: "ada", PasswordHash: "$argon2id$hashed", IsActive: true}
	expiry := time.Now().Add(24 * time.Hour)
	report := &domain.SyncReport{UserID: user.ID, Outcomes: []domain.SyncOutcome{
		{Kind: domain.ChangeKindBalance, Action: domain.SyncActionPushed},
	}}

	gomock.InOrder(
		d.users.EXPECT().GetByUsername(ctx, "ada").Return(user, nil),
		d.hashSvc.EXPECT().Verify("correct_password", "$argon2id$hashed").Return(true, nil),
		d.tokenSvc.EXPECT().Generate(user.ID, "ada").Return("jwt_token_here", expiry, nil),
		d.sweeper.EXPECT().SyncOnLogin(ctx, user.ID).Return(report),
		d.sessions.EXPECT().Start(user.ID),
	)

	res, err := d.svc.Login(ctx, "ada", "correct_password")
	require.NoError(t, err)
	assert.Equal(t, "jwt_token_here", res.Token)
	assert.Equal(t, expiry, res.ExpiresAt)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Same(t, report, res.Sync)
}

func TestUserService_Login_InvalidCredentials(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()

	d.users.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)
	_, err := d.svc.Login(ctx, "ghost", "pw")
	assertAppError(t, err, "AUTH_001")

	user := &domain.User{ID: uuid.New(), Username: "ada", PasswordHash: "h", IsActive: true}
	d.users.EXPECT().GetByUsername(ctx, "ada").Return(user, nil)
	d.hashSvc.EXPECT().Verify("wrong", "h").Return(false, nil)
	_, err = d.svc.Login(ctx, "ada", "wrong")
	assertAppError(t, err, "AUTH_001")
}

func TestUserService_Login_Inactive(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Username: "ada", PasswordHash: "h", IsActive: false}

	d.users.EXPECT().GetByUsername(ctx, "ada").Return(user, nil)
	d.hashSvc.EXPECT().Verify("pw", "h").Return(true, nil)

	_, err := d.svc.Login(ctx, "ada", "pw")
	assertAppError(t, err, "AUTH_004")
}

func TestUserService_Logout_StopsSession(t *testing.T) {
	d := setupUserService(t)
	id := uuid.New()

	d.sessions.EXPECT().Stop(id)
	d.svc.Logout(context.Background(), id)
}

func TestUserService_Search(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	found := []domain.User{
		{ID: uuid.New(), Username: "ada", PasswordHash: "h", IsActive: true},
		{ID: uuid.New(), Username: "adam", PasswordHash: "h", IsActive: false},
	}

	d.users.EXPECT().Search(ctx, "ad", searchLimit).Return(found, nil)

	out, err := d.svc.Search(ctx, "  @ad ")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsActive)
	assert.False(t, out[1].IsActive)
}

func TestUserService_Search_EmptyQuery(t *testing.T) {
	d := setupUserService(t)

	out, err := d.svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestUserService_ResolveRecipient(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com", IsActive: true}

	t.Run("by id", func(t *testing.T) {
		d := setupUserService(t)
		d.users.EXPECT().GetByID(ctx, user.ID).Return(user, nil)
		got, err := d.svc.ResolveRecipient(ctx, user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "bob", got.Username)
	})

	t.Run("by email", func(t *testing.T) {
		d := setupUserService(t)
		d.users.EXPECT().GetByEmail(ctx, "bob@example.com").Return(user, nil)
		got, err := d.svc.ResolveRecipient(ctx, "Bob@Example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("by handle", func(t *testing.T) {
		d := setupUserService(t)
		d.users.EXPECT().GetByUsername(ctx, "bob").Return(user, nil)
		got, err := d.svc.ResolveRecipient(ctx, "@bob")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("unknown", func(t *testing.T) {
		d := setupUserService(t)
		d.users.EXPECT().GetByUsername(ctx, "nobody").Return(nil, nil)
		_, err := d.svc.ResolveRecipient(ctx, "nobody")
		assertAppError(t, err, "NFT_002")
	})

	t.Run("empty", func(t *testing.T) {
		d := setupUserService(t)
		_, err := d.svc.ResolveRecipient(ctx, " ")
		assertAppError(t, err, "NFT_002")
	})

	t.Run("inactive", func(t *testing.T) {
		d := setupUserService(t)
		inactive := *user
		inactive.IsActive = false
		d.users.EXPECT().GetByUsername(ctx, "bob").Return(&inactive, nil)
		_, err := d.svc.ResolveRecipient(ctx, "bob")
		assertAppError(t, err, "NFT_003")
	})
}
