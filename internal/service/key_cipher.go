package service

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
)

// sealedPrefix versions the passphrase envelope: v1$<salt b64>$<hex(nonce||ct)>.
const sealedPrefix = "v1"

var errEmptyPassphrase = errors.New("passphrase is required")

// StaticKeyCipher seals wallet material under the application AES key. The
// passphrase argument is ignored.
type StaticKeyCipher struct {
	enc ports.EncryptionService
}

func NewStaticKeyCipher(enc ports.EncryptionService) *StaticKeyCipher {
	return &StaticKeyCipher{enc: enc}
}

func (c *StaticKeyCipher) Scheme() domain.EncryptionScheme {
	return domain.EncryptionSchemeStatic
}

func (c *StaticKeyCipher) Seal(plaintext, _ string) (string, error) {
	return c.enc.Encrypt(plaintext)
}

func (c *StaticKeyCipher) Open(sealed, _ string) (string, error) {
	return c.enc.Decrypt(sealed)
}

// PassphraseKeyCipher derives a per-seal AES-256 key from the user's
// passphrase with Argon2id and a random salt. Nothing derived from the
// passphrase is kept.
type PassphraseKeyCipher struct{}

func NewPassphraseKeyCipher() *PassphraseKeyCipher {
	return &PassphraseKeyCipher{}
}

func (c *PassphraseKeyCipher) Scheme() domain.EncryptionScheme {
	return domain.EncryptionSchemePassphrase
}

func (c *PassphraseKeyCipher) Seal(plaintext, passphrase string) (string, error) {
	if passphrase == "" {
		return "", errEmptyPassphrase
	}
	salt, err := randomSalt()
	if err != nil {
		return "", err
	}
	sealed, err := sealGCM(deriveKey(passphrase, salt), []byte(plaintext))
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		sealedPrefix,
		base64.RawStdEncoding.EncodeToString(salt),
		hex.EncodeToString(sealed),
	}, "$"), nil
}

func (c *PassphraseKeyCipher) Open(sealed, passphrase string) (string, error) {
	if passphrase == "" {
		return "", errEmptyPassphrase
	}
	parts := strings.Split(sealed, "$")
	if len(parts) != 3 || parts[0] != sealedPrefix {
		return "", errors.New("malformed sealed value")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decoding salt: %w", err)
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	plaintext, err := openGCM(deriveKey(passphrase, salt), body)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
