package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"edu-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EncryptionService handles AES-256-GCM encryption/decryption with the
// application key.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// KeyCipher seals wallet private material. passphrase is ignored by
// schemes that do not derive per-user keys.
type KeyCipher interface {
	Scheme() domain.EncryptionScheme
	Seal(plaintext, passphrase string) (string, error)
	Open(sealed, passphrase string) (string, error)
}

// SignatureService seals certificates with HMAC-SHA256.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(fields ...string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID   uuid.UUID
	Username string
}

// PriceFeed quotes the EDU token.
type PriceFeed interface {
	Quote(ctx context.Context) (*domain.PriceQuote, error)
}

// ChangeSyncer mirrors a local mutation to the remote store.
type ChangeSyncer interface {
	SyncOnChange(ctx context.Context, userID uuid.UUID, change domain.Change) error
}

// --- Service Ports (Business Logic) ---

// LedgerService is the Balance Ledger together with its Transaction Log.
type LedgerService interface {
	// GetBalance never fails; see the resolution order on the implementation.
	GetBalance(ctx context.Context, userID uuid.UUID) *domain.Balance
	UpdateBalance(ctx context.Context, userID uuid.UUID, balance, usdValue decimal.Decimal) (*domain.Balance, error)
	GetPrice(ctx context.Context) *domain.PriceQuote
	Debit(ctx context.Context, m domain.Movement) (*domain.Balance, *domain.Transaction, error)
	Credit(ctx context.Context, m domain.Movement) (*domain.Balance, *domain.Transaction, error)
	AppendTransaction(ctx context.Context, tx *domain.Transaction)
	ListTransactions(ctx context.Context, userID uuid.UUID) []domain.Transaction
}

// CatalogFilter narrows a catalog listing. Zero values match everything.
type CatalogFilter struct {
	Category domain.NFTCategory
	Rarity   domain.Rarity
}

// CatalogService is the static NFT catalog.
type CatalogService interface {
	List(filter CatalogFilter) []domain.NFT
	Get(id string) (*domain.NFT, bool)
	Snapshot(id string, ownerID uuid.UUID) (*domain.NFT, bool)
}

// OwnershipService is the Ownership Store.
type OwnershipService interface {
	ListOwned(ctx context.Context, userID uuid.UUID) []domain.Ownership
	AddOwnership(ctx context.Context, ownership *domain.Ownership) error
	RemoveOwnership(ctx context.Context, userID uuid.UUID, nftID string) error
	RecordActivity(ctx context.Context, userID uuid.UUID, activity *domain.NFTActivity)
}

// SyncService is the Reconciliation Sweeper.
type SyncService interface {
	ChangeSyncer
	SyncOnLogin(ctx context.Context, userID uuid.UUID) *domain.SyncReport
}

// SessionService owns one periodic sync loop per signed-in user.
type SessionService interface {
	Start(userID uuid.UUID)
	Stop(userID uuid.UUID)
	Active(userID uuid.UUID) bool
	Shutdown()
}

// CertificateService is the Certificate Issuance Flow.
type CertificateService interface {
	Issue(ctx context.Context, req IssueCertificateRequest) (*domain.Certificate, error)
	Verify(ctx context.Context, certificateID string) (*domain.CertificateVerification, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Certificate, error)
}

// IssueCertificateRequest holds validated input for certificate issuance.
type IssueCertificateRequest struct {
	OwnerID        uuid.UUID
	Name           string
	Issuer         string
	Description    string
	Date           time.Time
	StudentName    string
	StudentEmail   string
	Grade          string
	Badge          string
	Color          string
	Signatories    []domain.Signatory
	Duration       string
	Hours          int
	Specialization string
	IdempotencyKey string
}

// MarketplaceService is the Marketplace/Gift Flow.
type MarketplaceService interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)
	Gift(ctx context.Context, req GiftRequest) (*GiftResult, error)
}

type PurchaseRequest struct {
	BuyerID        uuid.UUID
	NFTID          string
	IdempotencyKey string
}

type PurchaseResult struct {
	NFT         *domain.NFT         `json:"nft"`
	Ownership   *domain.Ownership   `json:"ownership"`
	Balance     *domain.Balance     `json:"balance"`
	Transaction *domain.Transaction `json:"transaction"`
}

// GiftRequest gifts a catalog NFT. Recipient is a free-text id, username
// or email.
type GiftRequest struct {
	SenderID       uuid.UUID
	NFTID          string
	Recipient      string
	Message        string
	IdempotencyKey string
}

type GiftResult struct {
	Recipient            domain.PublicUser   `json:"recipient"`
	Ownership            *domain.Ownership   `json:"ownership"`
	Balance              *domain.Balance     `json:"balance"`
	SenderTransaction    *domain.Transaction `json:"sender_transaction"`
	RecipientTransaction *domain.Transaction `json:"recipient_transaction"`
}

// KeyStoreService is the Encrypted Key Store.
type KeyStoreService interface {
	Create(ctx context.Context, userID uuid.UUID, passphrase string) (*domain.CreatedWalletKey, error)
	Get(ctx context.Context, userID uuid.UUID) (*domain.WalletKey, error)
	Export(ctx context.Context, req ExportKeyRequest) (*domain.ExportedWalletKey, error)
}

// ExportKeyRequest carries the re-authentication material for an export.
type ExportKeyRequest struct {
	UserID     uuid.UUID
	Password   string
	Passphrase string
	Nonce      string
}

// UserService defines account and session business logic.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, userID uuid.UUID)
	Search(ctx context.Context, query string) ([]domain.PublicUser, error)
	ResolveRecipient(ctx context.Context, query string) (*domain.PublicUser, error)
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Avatar      string
}

// LoginResult holds the issued token and the login-time sync outcome.
type LoginResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      domain.PublicUser  `json:"user"`
	Sync      *domain.SyncReport `json:"sync"`
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
