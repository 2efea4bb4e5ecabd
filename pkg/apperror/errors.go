package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is an *AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ---- Ledger (LEDGER) ----

func ErrInsufficientBalance() *AppError {
	return New("LEDGER_001", "Insufficient EDU balance", http.StatusPaymentRequired)
}

func ErrConcurrentModification() *AppError {
	return New("LEDGER_002", "Balance was modified concurrently, retry the operation", http.StatusConflict)
}

func ErrOperationInProgress() *AppError {
	return New("LEDGER_003", "An operation with this idempotency key is already in progress", http.StatusConflict)
}

// ---- Validation (VAL) ----

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrBodyTooLarge() *AppError {
	return New("VAL_004", "Request body too large", http.StatusRequestEntityTooLarge)
}

func ErrNotFound(entity string) *AppError {
	return New("VAL_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- NFT marketplace (NFT) ----

func ErrNFTNotFound() *AppError {
	return New("NFT_001", "NFT not found in catalog", http.StatusNotFound)
}

func ErrInvalidRecipient() *AppError {
	return New("NFT_002", "Recipient not found", http.StatusNotFound)
}

func ErrRecipientInactive() *AppError {
	return New("NFT_003", "Recipient account is not active", http.StatusUnprocessableEntity)
}

func ErrSelfGift() *AppError {
	return New("NFT_004", "Cannot gift an NFT to yourself", http.StatusBadRequest)
}

func ErrTransferIncomplete(err error) *AppError {
	return Wrap("NFT_005", "Transfer failed after debit, sender was refunded", http.StatusBadGateway, err)
}

// ---- Certificates (CERT) ----

func ErrCertificateIssuance(err error) *AppError {
	return Wrap("CERT_001", "Certificate issuance failed while charging EDU tokens", http.StatusBadGateway, err)
}

func ErrCertificateNotFound() *AppError {
	return New("CERT_002", "Certificate not found", http.StatusNotFound)
}

func ErrCertificateIDExhausted() *AppError {
	return New("CERT_003", "Could not allocate a unique certificate id", http.StatusServiceUnavailable)
}

// ---- Wallet keys (KEY) ----

func ErrKeyExists() *AppError {
	return New("KEY_001", "Wallet key already exists for this user", http.StatusConflict)
}

func ErrKeyNotFound() *AppError {
	return New("KEY_002", "Wallet key not found", http.StatusNotFound)
}

// ErrKeyDecryption covers both a wrong passphrase and corrupted ciphertext.
func ErrKeyDecryption(err error) *AppError {
	return Wrap("KEY_003", "Unable to decrypt wallet key", http.StatusUnprocessableEntity, err)
}

func ErrNonceUsed() *AppError {
	return New("KEY_004", "Export nonce has already been used", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountInactive() *AppError {
	return New("AUTH_004", "Account is not active", http.StatusForbidden)
}

func ErrEmailExists() *AppError {
	return New("AUTH_005", "Email already registered", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrStoreUnavailable(err error) *AppError {
	return Wrap("SYS_002", "No store accepted the write", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
