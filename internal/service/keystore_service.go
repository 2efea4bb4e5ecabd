package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

const (
	// DerivationPath is the BIP-44 path of the first Ethereum account.
	DerivationPath = "m/44'/60'/0'/0/0"

	mnemonicEntropyBits = 128
	exportNonceTTL      = 15 * time.Minute
)

// KeyStoreServiceImpl implements ports.KeyStoreService.
type KeyStoreServiceImpl struct {
	keys    ports.WalletKeyRepository
	users   ports.UserRepository
	hashSvc ports.HashService
	nonces  ports.NonceStore
	active  ports.KeyCipher
	ciphers map[domain.EncryptionScheme]ports.KeyCipher
	log     zerolog.Logger

	now func() time.Time
}

// NewKeyStoreService seals new keys with ciphers[0]. The remaining ciphers
// are only used to open keys sealed under other schemes.
func NewKeyStoreService(
	keys ports.WalletKeyRepository,
	users ports.UserRepository,
	hashSvc ports.HashService,
	nonces ports.NonceStore,
	ciphers []ports.KeyCipher,
	log zerolog.Logger,
) *KeyStoreServiceImpl {
	s := &KeyStoreServiceImpl{
		keys:    keys,
		users:   users,
		hashSvc: hashSvc,
		nonces:  nonces,
		active:  ciphers[0],
		ciphers: make(map[domain.EncryptionScheme]ports.KeyCipher, len(ciphers)),
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, c := range ciphers {
		if _, dup := s.ciphers[c.Scheme()]; !dup {
			s.ciphers[c.Scheme()] = c
		}
	}
	return s
}

type account struct {
	privateKey string
	publicKey  string
	address    string
}

// deriveAccount derives the first Ethereum account of a BIP-39 mnemonic.
func deriveAccount(mnemonic string) (*account, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("mnemonic seed: %w", err)
	}
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	for _, idx := range []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild,
		0,
		0,
	} {
		if key, err = key.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
	}

	priv, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, fmt.Errorf("ecdsa key: %w", err)
	}
	return &account{
		privateKey: hexutil.Encode(crypto.FromECDSA(priv)),
		publicKey:  hexutil.Encode(crypto.FromECDSAPub(&priv.PublicKey)),
		address:    crypto.PubkeyToAddress(priv.PublicKey).Hex(),
	}, nil
}

func newMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// Create generates the user's key pair. The recovery phrase is returned
// here and never again without an export.
func (s *KeyStoreServiceImpl) Create(ctx context.Context, userID uuid.UUID, passphrase string) (*domain.CreatedWalletKey, error) {
	if s.active.Scheme() == domain.EncryptionSchemePassphrase && passphrase == "" {
		return nil, apperror.Validation("passphrase is required")
	}

	existing, err := s.keys.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet key: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrKeyExists()
	}

	mnemonic, err := newMnemonic()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate mnemonic: %w", err))
	}
	acct, err := deriveAccount(mnemonic)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	sealedKey, err := s.active.Seal(acct.privateKey, passphrase)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}
	sealedMnemonic, err := s.active.Seal(mnemonic, passphrase)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}

	key := &domain.WalletKey{
		UserID:              userID,
		Address:             acct.address,
		PublicKey:           acct.publicKey,
		EncryptedPrivateKey: sealedKey,
		EncryptedMnemonic:   sealedMnemonic,
		Scheme:              s.active.Scheme(),
		DerivationPath:      DerivationPath,
		CreatedAt:           s.now(),
	}
	if err := s.keys.Create(ctx, key); err != nil {
		if errors.Is(err, domain.ErrWalletKeyExists) {
			return nil, apperror.ErrKeyExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create wallet key: %w", err))
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("address", key.Address).
		Str("scheme", string(key.Scheme)).
		Msg("wallet key created")
	return &domain.CreatedWalletKey{WalletKey: *key, Mnemonic: mnemonic}, nil
}

func (s *KeyStoreServiceImpl) Get(ctx context.Context, userID uuid.UUID) (*domain.WalletKey, error) {
	key, err := s.keys.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet key: %w", err))
	}
	if key == nil {
		return nil, apperror.ErrKeyNotFound()
	}
	return key, nil
}

// Export decrypts the user's key after re-checking the account password.
// Each nonce is accepted once.
func (s *KeyStoreServiceImpl) Export(ctx context.Context, req ports.ExportKeyRequest) (*domain.ExportedWalletKey, error) {
	if req.Nonce == "" {
		return nil, apperror.Validation("nonce is required")
	}
	if req.Password == "" {
		return nil, apperror.Validation("password is required")
	}

	fresh, err := s.nonces.CheckAndSet(ctx, "export:"+req.UserID.String(), req.Nonce, exportNonceTTL)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check export nonce: %w", err))
	}
	if !fresh {
		return nil, apperror.ErrNonceUsed()
	}

	if err := s.reauthenticate(ctx, req.UserID, req.Password); err != nil {
		return nil, err
	}

	key, err := s.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	c, ok := s.ciphers[key.Scheme]
	if !ok {
		return nil, apperror.ErrKeyDecryption(fmt.Errorf("no cipher for scheme %q", key.Scheme))
	}

	privateKey, err := c.Open(key.EncryptedPrivateKey, req.Passphrase)
	if err != nil {
		return nil, apperror.ErrKeyDecryption(err)
	}
	out := &domain.ExportedWalletKey{Address: key.Address, PrivateKey: privateKey}
	if key.EncryptedMnemonic != "" {
		if out.Mnemonic, err = c.Open(key.EncryptedMnemonic, req.Passphrase); err != nil {
			return nil, apperror.ErrKeyDecryption(err)
		}
	}

	s.log.Info().
		Str("user_id", req.UserID.String()).
		Str("address", key.Address).
		Msg("wallet key exported")
	return out, nil
}

func (s *KeyStoreServiceImpl) reauthenticate(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return apperror.ErrInvalidCredentials()
	}
	ok, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return apperror.ErrInvalidCredentials()
	}
	return nil
}
