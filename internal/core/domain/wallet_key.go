package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrWalletKeyExists is returned by a WalletKeyRepository when the user
// already has a key.
var ErrWalletKeyExists = errors.New("wallet key already exists")

// EncryptionScheme identifies how a WalletKey's private material is sealed.
type EncryptionScheme string

const (
	EncryptionSchemeStatic     EncryptionScheme = "static"
	EncryptionSchemePassphrase EncryptionScheme = "passphrase"
)

// WalletKey is a user's key pair. Private material is only ever held
// encrypted.
type WalletKey struct {
	UserID              uuid.UUID        `json:"user_id"`
	Address             string           `json:"address"`
	PublicKey           string           `json:"public_key"`
	EncryptedPrivateKey string           `json:"-"`
	EncryptedMnemonic   string           `json:"-"`
	Scheme              EncryptionScheme `json:"encryption_scheme"`
	DerivationPath      string           `json:"derivation_path"`
	CreatedAt           time.Time        `json:"created_at"`
}

// CreatedWalletKey is returned once at creation, the only time the
// recovery phrase leaves the service unprompted.
type CreatedWalletKey struct {
	WalletKey
	Mnemonic string `json:"mnemonic"`
}

// ExportedWalletKey holds decrypted material for an authorized export.
type ExportedWalletKey struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
	Mnemonic   string `json:"mnemonic,omitempty"`
}
