package dto

import (
	"edu-ledger/internal/core/domain"
)

// HeaderIdempotencyKey carries the client's retry key on saga routes.
const HeaderIdempotencyKey = "Idempotency-Key"

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=32,safe_id"`
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	DisplayName string `json:"display_name" binding:"max=64"`
	Avatar      string `json:"avatar" binding:"omitempty,safe_url,max=512"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// LoginResponse is the response body for a successful login.
type LoginResponse struct {
	Token  string             `json:"token"`
	Expiry int64              `json:"expiry"` // Unix timestamp
	User   domain.PublicUser  `json:"user"`
	Sync   *domain.SyncReport `json:"sync"`
}

// UpdateBalanceRequest overwrites the caller's balance. Amounts are
// decimal strings.
type UpdateBalanceRequest struct {
	Balance  string `json:"balance" binding:"required,decimal_amount"`
	USDValue string `json:"usd_value" binding:"omitempty,decimal_amount"`
}

// ListResponse wraps an unpaginated collection.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// NFTListQuery filters the catalog listing.
type NFTListQuery struct {
	Category string `form:"category" binding:"omitempty,oneof=certificate achievement badge course collectible"`
	Rarity   string `form:"rarity" binding:"omitempty,oneof=common rare epic legendary"`
}

// UserSearchQuery is the query string of the user search.
type UserSearchQuery struct {
	Q string `form:"q" binding:"required,min=1,max=254"`
}

// GiftRequest is the request body for gifting an NFT.
type GiftRequest struct {
	Recipient string `json:"recipient" binding:"required,max=254"`
	Message   string `json:"message" binding:"max=280"`
}

type SignatoryRequest struct {
	Name  string `json:"name" binding:"required,max=120"`
	Title string `json:"title" binding:"max=120"`
}

// IssueCertificateRequest is the request body for certificate issuance.
// Date is YYYY-MM-DD and defaults to today.
type IssueCertificateRequest struct {
	Name           string             `json:"name" binding:"required,max=120"`
	Issuer         string             `json:"issuer" binding:"required,max=120"`
	Description    string             `json:"description" binding:"max=1000"`
	Date           string             `json:"date" binding:"omitempty,datetime=2006-01-02"`
	StudentName    string             `json:"student_name" binding:"required,max=120"`
	StudentEmail   string             `json:"student_email" binding:"required,email,max=254"`
	Grade          string             `json:"grade" binding:"max=16"`
	Badge          string             `json:"badge" binding:"max=64"`
	Color          string             `json:"color" binding:"omitempty,hexcolor"`
	Signatories    []SignatoryRequest `json:"signatories" binding:"max=5,dive"`
	Duration       string             `json:"duration" binding:"max=64"`
	Hours          int                `json:"hours" binding:"gte=0,lte=10000"`
	Specialization string             `json:"specialization" binding:"max=120"`
}

// CreateWalletKeyRequest is the request body for key creation. The
// passphrase is required when keys are sealed per user.
type CreateWalletKeyRequest struct {
	Passphrase string `json:"passphrase" binding:"max=256" sanitize:"-"`
}

// ExportWalletKeyRequest re-authenticates a key export.
type ExportWalletKeyRequest struct {
	Password   string `json:"password" binding:"required" sanitize:"-"`
	Passphrase string `json:"passphrase" binding:"max=256" sanitize:"-"`
	Nonce      string `json:"nonce" binding:"required,min=8,max=128,safe_id"`
}
