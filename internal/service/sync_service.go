package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"edu-ledger/config"
	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SyncConfig holds the reconciliation parameters.
type SyncConfig struct {
	DefaultBalance  decimal.Decimal
	MergePolicy     string
	RetryMaxElapsed time.Duration
}

// SyncServiceImpl implements ports.SyncService. It only ever pushes local
// state to the remote store; local records are never overwritten.
type SyncServiceImpl struct {
	balances   ports.BalanceRepository
	txRepo     ports.TransactionRepository
	ownerships ports.OwnershipRepository
	local      ports.LocalCache
	metrics    *Metrics
	cfg        SyncConfig
	log        zerolog.Logger

	now        func() time.Time
	newBackOff func() backoff.BackOff

	// Users with a background reconciliation in flight.
	retrying sync.Map
	mu       sync.Mutex
	pending  sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewSyncService(
	balances ports.BalanceRepository,
	txRepo ports.TransactionRepository,
	ownerships ports.OwnershipRepository,
	local ports.LocalCache,
	metrics *Metrics,
	cfg SyncConfig,
	log zerolog.Logger,
) *SyncServiceImpl {
	s := &SyncServiceImpl{
		balances:   balances,
		txRepo:     txRepo,
		ownerships: ownerships,
		local:      local,
		metrics:    metrics,
		cfg:        cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 100 * time.Millisecond
		b.MaxElapsedTime = s.cfg.RetryMaxElapsed
		return b
	}
	return s
}

type syncStep struct {
	kind domain.ChangeKind
	run  func(ctx context.Context, userID uuid.UUID) (int, error)
}

// SyncOnLogin runs the balance, transaction and ownership syncs
// concurrently. A failing sync never cancels the others; each result is
// reported separately, in that order.
func (s *SyncServiceImpl) SyncOnLogin(ctx context.Context, userID uuid.UUID) *domain.SyncReport {
	report := &domain.SyncReport{UserID: userID, StartedAt: s.now()}
	steps := []syncStep{
		{domain.ChangeKindBalance, s.syncBalance},
		{domain.ChangeKindTransaction, s.syncTransactions},
		{domain.ChangeKindOwnership, s.syncOwnership},
	}
	report.Outcomes = make([]domain.SyncOutcome, len(steps))

	var g errgroup.Group
	for i, step := range steps {
		g.Go(func() error {
			pushed, err := step.run(ctx, userID)
			report.Outcomes[i] = s.outcome(userID, step.kind, pushed, err)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = s.now()
	s.metrics.ObserveSync("login", report.FinishedAt.Sub(report.StartedAt))
	s.log.Debug().
		Str("user_id", userID.String()).
		Bool("ok", report.AllSucceeded()).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("reconciliation finished")
	return report
}

func (s *SyncServiceImpl) outcome(userID uuid.UUID, kind domain.ChangeKind, pushed int, err error) domain.SyncOutcome {
	o := domain.SyncOutcome{Kind: kind, Pushed: pushed}
	switch {
	case err != nil:
		o.Action = domain.SyncActionFailed
		o.Error = err.Error()
		s.log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("kind", string(kind)).
			Int("pushed", pushed).
			Msg("reconciliation step failed")
	case pushed > 0:
		o.Action = domain.SyncActionPushed
	default:
		o.Action = domain.SyncActionSkipped
	}
	s.metrics.IncSync(string(kind), string(o.Action))
	return o
}

// syncBalance pushes the cached balance when the remote row is absent or
// still the untouched default. Under the versioned policy a remote row
// with a lower version than the cache is replaced as well.
func (s *SyncServiceImpl) syncBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	local, err := s.local.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read local balance: %w", err)
	}
	if local == nil {
		return 0, nil
	}

	remote, err := s.balances.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read remote balance: %w", err)
	}

	expected := ports.NoVersion
	if remote != nil {
		expected = remote.Version
		stale := s.cfg.MergePolicy == config.MergeVersioned && remote.Version < local.Version
		if !remote.IsUntouchedDefault(s.cfg.DefaultBalance) && !stale {
			return 0, nil
		}
	}

	// A lost race means the remote row was populated meanwhile; leave it.
	swapped, err := s.balances.CompareAndSwap(ctx, local, expected)
	if err != nil {
		return 0, fmt.Errorf("push balance: %w", err)
	}
	if !swapped {
		return 0, nil
	}
	return 1, nil
}

// syncTransactions pushes the cached log oldest first. fill_empty only
// fills an empty remote log; versioned pushes every id the remote lacks.
func (s *SyncServiceImpl) syncTransactions(ctx context.Context, userID uuid.UUID) (int, error) {
	local, err := s.local.GetTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read local transactions: %w", err)
	}
	if len(local) == 0 {
		return 0, nil
	}

	remote, err := s.txRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read remote transactions: %w", err)
	}
	if len(remote) > 0 && s.cfg.MergePolicy != config.MergeVersioned {
		return 0, nil
	}

	present := make(map[string]bool, len(remote))
	for _, tx := range remote {
		present[tx.ID] = true
	}

	pushed := 0
	for _, tx := range slices.Backward(local) {
		if present[tx.ID] {
			continue
		}
		if err := s.txRepo.Append(ctx, &tx); err != nil {
			return pushed, fmt.Errorf("push transaction %s: %w", tx.ID, err)
		}
		pushed++
	}
	return pushed, nil
}

// syncOwnership pushes the owned cache only into an empty remote
// collection under either policy: removals are not versioned.
func (s *SyncServiceImpl) syncOwnership(ctx context.Context, userID uuid.UUID) (int, error) {
	local, err := s.local.GetOwned(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read local ownership: %w", err)
	}
	if len(local) == 0 {
		return 0, nil
	}

	remote, err := s.ownerships.ListByOwner(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read remote ownership: %w", err)
	}
	if len(remote) > 0 {
		return 0, nil
	}

	pushed := 0
	for _, o := range local {
		if err := s.ownerships.Add(ctx, &o); err != nil {
			return pushed, fmt.Errorf("push ownership %s: %w", o.ID, err)
		}
		pushed++
	}
	return pushed, nil
}

// SyncOnChange makes one remote write for a local mutation. A failed write
// is returned to the caller and leaves a background reconciliation of the
// user behind, retried with exponential backoff until RetryMaxElapsed.
func (s *SyncServiceImpl) SyncOnChange(ctx context.Context, userID uuid.UUID, change domain.Change) error {
	start := s.now()
	err := s.apply(ctx, userID, change)
	s.metrics.ObserveSync("change", s.now().Sub(start))

	if err != nil {
		s.metrics.IncSync(string(change.Kind), string(domain.SyncActionFailed))
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return fmt.Errorf("sync %s %s: %w", change.Kind, change.Op, permanent.Err)
		}
		s.scheduleRetry(userID)
		return fmt.Errorf("sync %s %s: %w", change.Kind, change.Op, err)
	}
	s.metrics.IncSync(string(change.Kind), string(domain.SyncActionPushed))
	return nil
}

var errReconcileIncomplete = errors.New("reconciliation incomplete")

// scheduleRetry reconciles userID in the background until every sync step
// succeeds. The sweeper pushes the current local state rather than the
// failed payload, so a late retry never overwrites a newer write. At most
// one retry runs per user.
func (s *SyncServiceImpl) scheduleRetry(userID uuid.UUID) {
	if _, busy := s.retrying.LoadOrStore(userID, struct{}{}); busy {
		return
	}
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		s.retrying.Delete(userID)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()
		defer s.retrying.Delete(userID)

		err := backoff.Retry(func() error {
			if !s.SyncOnLogin(s.ctx, userID).AllSucceeded() {
				return errReconcileIncomplete
			}
			return nil
		}, backoff.WithContext(s.newBackOff(), s.ctx))
		if err != nil && s.ctx.Err() == nil {
			s.log.Warn().Err(err).
				Str("user_id", userID.String()).
				Msg("background reconciliation gave up")
		}
	}()
}

// Close cancels background reconciliations and waits for them to return.
func (s *SyncServiceImpl) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.pending.Wait()
}

var errEmptyChange = errors.New("change carries no payload")

func (s *SyncServiceImpl) apply(ctx context.Context, userID uuid.UUID, c domain.Change) error {
	switch {
	case c.Kind == domain.ChangeKindBalance && c.Op == domain.ChangeOpUpsert:
		if c.Balance == nil {
			return backoff.Permanent(errEmptyChange)
		}
		return s.balances.Upsert(ctx, c.Balance)
	case c.Kind == domain.ChangeKindTransaction && c.Op == domain.ChangeOpAppend:
		if c.Transaction == nil {
			return backoff.Permanent(errEmptyChange)
		}
		return s.txRepo.Append(ctx, c.Transaction)
	case c.Kind == domain.ChangeKindOwnership && c.Op == domain.ChangeOpAdd:
		if c.Ownership == nil {
			return backoff.Permanent(errEmptyChange)
		}
		return s.ownerships.Add(ctx, c.Ownership)
	case c.Kind == domain.ChangeKindOwnership && c.Op == domain.ChangeOpRemove:
		return s.ownerships.Remove(ctx, userID, c.NFTID)
	default:
		return backoff.Permanent(fmt.Errorf("unsupported change %s/%s", c.Kind, c.Op))
	}
}
