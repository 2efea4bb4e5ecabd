package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edu-ledger/config"
	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var errCASConflict = errors.New("balance version changed")

// LedgerConfig holds the bookkeeping parameters of the ledger.
type LedgerConfig struct {
	DefaultBalance  decimal.Decimal
	FallbackPrice   decimal.Decimal
	ConcurrencyMode string
	MaxCASRetries   int
}

// LedgerServiceImpl implements ports.LedgerService: the Balance Ledger and
// its Transaction Log over a remote store fronted by a local cache.
type LedgerServiceImpl struct {
	balances ports.BalanceRepository
	txRepo   ports.TransactionRepository
	local    ports.LocalCache
	syncer   ports.ChangeSyncer
	prices   ports.PriceFeed
	metrics  *Metrics
	cfg      LedgerConfig
	log      zerolog.Logger

	now        func() time.Time
	casBackoff func() backoff.BackOff
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	balances ports.BalanceRepository,
	txRepo ports.TransactionRepository,
	local ports.LocalCache,
	syncer ports.ChangeSyncer,
	prices ports.PriceFeed,
	metrics *Metrics,
	cfg LedgerConfig,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if cfg.MaxCASRetries < 1 {
		cfg.MaxCASRetries = 1
	}
	return &LedgerServiceImpl{
		balances: balances,
		txRepo:   txRepo,
		local:    local,
		syncer:   syncer,
		prices:   prices,
		metrics:  metrics,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		casBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 10 * time.Millisecond
			b.MaxInterval = 250 * time.Millisecond
			return b
		},
	}
}

// GetBalance resolves a balance: the remote row, unless the local cache
// holds a newer version or the remote row is still the untouched default,
// then a synthesized default which is cached so later reads return the
// same record. When both stores fail a zeroed record is returned.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) *domain.Balance {
	remote, remoteErr := s.balances.Get(ctx, userID)
	if remoteErr != nil {
		s.warnFallback(remoteErr, userID, "remote", "get_balance")
	}
	local, localErr := s.local.GetBalance(ctx, userID)
	if localErr != nil {
		s.warnFallback(localErr, userID, "local", "get_balance")
	}

	switch {
	case s.localIsNewer(local, remote):
		return local
	case remote != nil:
		return remote
	case remoteErr != nil && localErr != nil:
		return domain.ZeroBalance(userID)
	}

	b := domain.NewDefaultBalance(userID, s.cfg.DefaultBalance, s.price(ctx), s.now())
	if err := s.local.SetBalance(ctx, b); err != nil {
		s.warnFallback(err, userID, "local", "set_balance")
	}
	return b
}

// localIsNewer reports whether the cached balance supersedes the remote
// row. Writes taken while the remote store was unreachable leave the local
// version ahead until the sweeper pushes them.
func (s *LedgerServiceImpl) localIsNewer(local, remote *domain.Balance) bool {
	if local == nil {
		return false
	}
	if remote == nil {
		return true
	}
	return local.Version > remote.Version || remote.IsUntouchedDefault(s.cfg.DefaultBalance)
}

// UpdateBalance writes an explicit balance to the local cache and mirrors
// it remotely. It fails only when neither store accepted the write.
func (s *LedgerServiceImpl) UpdateBalance(ctx context.Context, userID uuid.UUID, balance, usdValue decimal.Decimal) (*domain.Balance, error) {
	if balance.IsNegative() || usdValue.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}

	current := s.GetBalance(ctx, userID)
	next := current.WithAmount(balance, decimal.Zero, s.now())
	next.USDValue = usdValue.Round(domain.AmountPlaces)

	if err := s.writeThrough(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// GetPrice returns the current EDU quote, or the configured fallback price
// when the feed is unavailable.
func (s *LedgerServiceImpl) GetPrice(ctx context.Context) *domain.PriceQuote {
	q, err := s.prices.Quote(ctx)
	if err != nil || q == nil {
		s.log.Warn().Err(err).Msg("price feed unavailable, using fallback price")
		return &domain.PriceQuote{
			Symbol:    domain.TokenSymbol,
			PriceUSD:  s.cfg.FallbackPrice,
			UpdatedAt: s.now(),
		}
	}
	return q
}

func (s *LedgerServiceImpl) price(ctx context.Context) decimal.Decimal {
	return s.GetPrice(ctx).PriceUSD
}

// Debit subtracts m.Amount. It is rejected when the amount exceeds the
// balance.
func (s *LedgerServiceImpl) Debit(ctx context.Context, m domain.Movement) (*domain.Balance, *domain.Transaction, error) {
	return s.mutate(ctx, m, m.Amount.Neg())
}

// Credit adds m.Amount.
func (s *LedgerServiceImpl) Credit(ctx context.Context, m domain.Movement) (*domain.Balance, *domain.Transaction, error) {
	return s.mutate(ctx, m, m.Amount)
}

func (s *LedgerServiceImpl) mutate(ctx context.Context, m domain.Movement, delta decimal.Decimal) (*domain.Balance, *domain.Transaction, error) {
	if !m.Amount.IsPositive() {
		return nil, nil, apperror.ErrInvalidAmount()
	}

	var (
		updated *domain.Balance
		err     error
	)
	if s.cfg.ConcurrencyMode == config.ConcurrencyLastWriteWins {
		updated, err = s.mutateLastWriteWins(ctx, m.UserID, delta)
	} else {
		updated, err = s.mutateCAS(ctx, m.UserID, delta)
	}
	if err != nil {
		outcome := "failed"
		if apperror.HasCode(err, "LEDGER_001") {
			outcome = "rejected"
		}
		s.metrics.IncMutation(string(m.Type), outcome)
		return nil, nil, err
	}

	tx := &domain.Transaction{
		ID:          ulid.Make().String(),
		UserID:      m.UserID,
		Type:        m.Type,
		Amount:      delta.Round(domain.AmountPlaces),
		Symbol:      domain.TokenSymbol,
		From:        m.From,
		To:          m.To,
		NFTID:       m.NFTID,
		Timestamp:   updated.UpdatedAt,
		Status:      domain.TransactionStatusConfirmed,
		Description: m.Description,
	}
	s.AppendTransaction(ctx, tx)
	s.metrics.IncMutation(string(m.Type), "ok")

	s.log.Info().
		Str("user_id", m.UserID.String()).
		Str("tx_id", tx.ID).
		Str("type", string(m.Type)).
		Str("amount", tx.Amount.StringFixed(domain.AmountPlaces)).
		Str("balance", updated.Balance.StringFixed(domain.AmountPlaces)).
		Msg("ledger mutation applied")

	return updated, tx, nil
}

// mutateLastWriteWins reads, checks and writes with no version condition.
// Concurrent writers overwrite each other.
func (s *LedgerServiceImpl) mutateLastWriteWins(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (*domain.Balance, error) {
	current := s.GetBalance(ctx, userID)
	next := current.Balance.Add(delta)
	if next.IsNegative() {
		return nil, apperror.ErrInsufficientBalance()
	}
	updated := current.WithAmount(next, s.price(ctx), s.now())
	if err := s.writeThrough(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// mutateCAS conditionally writes the remote row on the version it read,
// re-reading and re-checking funds after each lost race. When the remote
// store cannot be reached the mutation is applied to the local cache only.
func (s *LedgerServiceImpl) mutateCAS(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (*domain.Balance, error) {
	var (
		updated   *domain.Balance
		localOnly bool
	)

	op := func() error {
		base, expected, reachable := s.readForWrite(ctx, userID)
		next := base.Balance.Add(delta)
		if next.IsNegative() {
			return backoff.Permanent(apperror.ErrInsufficientBalance())
		}

		candidate := base.WithAmount(next, s.price(ctx), s.now())
		if expected >= candidate.Version {
			candidate.Version = expected + 1
		}
		if !reachable {
			updated, localOnly = candidate, true
			return nil
		}

		swapped, err := s.balances.CompareAndSwap(ctx, candidate, expected)
		if err != nil {
			s.warnFallback(err, userID, "remote", "compare_and_swap")
			updated, localOnly = candidate, true
			return nil
		}
		if !swapped {
			s.metrics.IncCASConflict()
			return errCASConflict
		}
		updated = candidate
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.casBackoff(), uint64(s.cfg.MaxCASRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if errors.Is(err, errCASConflict) {
			return nil, apperror.ErrConcurrentModification()
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.InternalError(fmt.Errorf("balance mutation: %w", err))
	}

	if err := s.local.SetBalance(ctx, updated); err != nil {
		if localOnly {
			return nil, apperror.ErrStoreUnavailable(err)
		}
		s.warnFallback(err, userID, "local", "set_balance")
	}
	return updated, nil
}

// readForWrite returns the balance a mutation starts from, the remote
// version the write must be conditioned on, and whether the remote store
// answered. A newer local balance is the starting point even when the
// remote row exists, so the swap carries outage writes forward.
func (s *LedgerServiceImpl) readForWrite(ctx context.Context, userID uuid.UUID) (*domain.Balance, int64, bool) {
	remote, err := s.balances.Get(ctx, userID)
	if err != nil {
		s.warnFallback(err, userID, "remote", "get_balance")
		return s.localOrDefault(ctx, userID), ports.NoVersion, false
	}
	if remote == nil {
		return s.localOrDefault(ctx, userID), ports.NoVersion, true
	}
	local, err := s.local.GetBalance(ctx, userID)
	if err != nil {
		s.warnFallback(err, userID, "local", "get_balance")
	}
	if s.localIsNewer(local, remote) {
		return local, remote.Version, true
	}
	return remote, remote.Version, true
}

func (s *LedgerServiceImpl) localOrDefault(ctx context.Context, userID uuid.UUID) *domain.Balance {
	local, err := s.local.GetBalance(ctx, userID)
	if err != nil {
		s.warnFallback(err, userID, "local", "get_balance")
	}
	if local != nil {
		return local
	}
	return domain.NewDefaultBalance(userID, s.cfg.DefaultBalance, s.price(ctx), s.now())
}

// writeThrough stores b locally and mirrors it remotely. Either store
// accepting the write is enough.
func (s *LedgerServiceImpl) writeThrough(ctx context.Context, b *domain.Balance) error {
	localErr := s.local.SetBalance(ctx, b)
	if localErr != nil {
		s.warnFallback(localErr, b.UserID, "local", "set_balance")
	}
	remoteErr := s.syncer.SyncOnChange(ctx, b.UserID, domain.Change{
		Kind:    domain.ChangeKindBalance,
		Op:      domain.ChangeOpUpsert,
		Balance: b,
	})
	if remoteErr != nil {
		s.warnFallback(remoteErr, b.UserID, "remote", "upsert_balance")
	}
	if localErr != nil && remoteErr != nil {
		return apperror.ErrStoreUnavailable(errors.Join(localErr, remoteErr))
	}
	return nil
}

// AppendTransaction prepends tx to the local log and mirrors it remotely.
// Failures are logged, never returned.
func (s *LedgerServiceImpl) AppendTransaction(ctx context.Context, tx *domain.Transaction) {
	if err := s.local.PrependTransaction(ctx, tx); err != nil {
		s.warnFallback(err, tx.UserID, "local", "append_transaction")
	}
	if err := s.syncer.SyncOnChange(ctx, tx.UserID, domain.Change{
		Kind:        domain.ChangeKindTransaction,
		Op:          domain.ChangeOpAppend,
		Transaction: tx,
	}); err != nil {
		s.warnFallback(err, tx.UserID, "remote", "append_transaction")
	}
}

// ListTransactions returns the user's log newest first: remote, then the
// local cache, then a persisted welcome bonus for a user with no history.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID) []domain.Transaction {
	remote, err := s.txRepo.ListByUser(ctx, userID)
	if err != nil {
		s.warnFallback(err, userID, "remote", "list_transactions")
	}
	if len(remote) > 0 {
		return remote
	}

	local, err := s.local.GetTransactions(ctx, userID)
	if err != nil {
		s.warnFallback(err, userID, "local", "list_transactions")
	}
	if len(local) > 0 {
		return local
	}

	bonus := domain.NewWelcomeBonus(userID, s.cfg.DefaultBalance, s.now())
	s.AppendTransaction(ctx, &bonus)
	return []domain.Transaction{bonus}
}

func (s *LedgerServiceImpl) warnFallback(err error, userID uuid.UUID, store, op string) {
	warnFallback(s.log, s.metrics, err, userID, store, op)
}

// warnFallback records a swallowed store failure.
func warnFallback(log zerolog.Logger, m *Metrics, err error, userID uuid.UUID, store, op string) {
	m.IncFallback(store, op)
	log.Warn().Err(err).
		Str("user_id", userID.String()).
		Str("store", store).
		Str("op", op).
		Msg("store operation failed, falling back")
}
