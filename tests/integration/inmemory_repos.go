package integration

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"

	"github.com/google/uuid"
)

var errRemoteDown = errors.New("remote store unavailable")

// --- In-Memory Balance Repo ---

type inMemoryBalanceRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Balance

	down    atomic.Bool
	barrier atomic.Pointer[readBarrier]
}

func newInMemoryBalanceRepo() *inMemoryBalanceRepo {
	return &inMemoryBalanceRepo{rows: make(map[uuid.UUID]domain.Balance)}
}

// holdReads makes the next n reads wait for each other before any of them
// returns, so concurrent writers start from the same snapshot.
func (r *inMemoryBalanceRepo) holdReads(n int) {
	r.barrier.Store(&readBarrier{n: n, release: make(chan struct{})})
}

func (r *inMemoryBalanceRepo) seed(b domain.Balance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[b.UserID] = b
}

func (r *inMemoryBalanceRepo) row(userID uuid.UUID) (domain.Balance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[userID]
	return b, ok
}

func (r *inMemoryBalanceRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	if r.down.Load() {
		return nil, errRemoteDown
	}
	if b := r.barrier.Load(); b != nil {
		b.wait()
	}
	b, ok := r.row(userID)
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *inMemoryBalanceRepo) Upsert(ctx context.Context, b *domain.Balance) error {
	if r.down.Load() {
		return errRemoteDown
	}
	r.seed(*b)
	return nil
}

func (r *inMemoryBalanceRepo) CompareAndSwap(ctx context.Context, b *domain.Balance, expectedVersion int64) (bool, error) {
	if r.down.Load() {
		return false, errRemoteDown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.rows[b.UserID]
	switch {
	case expectedVersion == ports.NoVersion && exists:
		return false, nil
	case expectedVersion != ports.NoVersion && (!exists || current.Version != expectedVersion):
		return false, nil
	}
	r.rows[b.UserID] = *b
	return true, nil
}

type readBarrier struct {
	mu      sync.Mutex
	n       int
	arrived int
	release chan struct{}
}

func (b *readBarrier) wait() {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.n {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-time.After(2 * time.Second):
	}
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu  sync.RWMutex
	ids map[string]bool
	log map[uuid.UUID][]domain.Transaction // insertion order

	down atomic.Bool
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{
		ids: make(map[string]bool),
		log: make(map[uuid.UUID][]domain.Transaction),
	}
}

func (r *inMemoryTransactionRepo) Append(ctx context.Context, tx *domain.Transaction) error {
	if r.down.Load() {
		return errRemoteDown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids[tx.ID] {
		return nil
	}
	r.ids[tx.ID] = true
	r.log[tx.UserID] = append(r.log[tx.UserID], *tx)
	return nil
}

func (r *inMemoryTransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	if r.down.Load() {
		return nil, errRemoteDown
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := slices.Clone(r.log[userID])
	slices.Reverse(out)
	return out, nil
}

// --- In-Memory Ownership Repo ---

type inMemoryOwnershipRepo struct {
	mu   sync.RWMutex
	rows []domain.Ownership

	down atomic.Bool
}

func newInMemoryOwnershipRepo() *inMemoryOwnershipRepo {
	return &inMemoryOwnershipRepo{}
}

func (r *inMemoryOwnershipRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Ownership, error) {
	if r.down.Load() {
		return nil, errRemoteDown
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Ownership
	for _, o := range slices.Backward(r.rows) {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *inMemoryOwnershipRepo) Add(ctx context.Context, o *domain.Ownership) error {
	if r.down.Load() {
		return errRemoteDown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.rows, func(x domain.Ownership) bool { return x.ID == o.ID }) {
		return nil
	}
	r.rows = append(r.rows, *o)
	return nil
}

func (r *inMemoryOwnershipRepo) Remove(ctx context.Context, ownerID uuid.UUID, nftID string) error {
	if r.down.Load() {
		return errRemoteDown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = slices.DeleteFunc(r.rows, func(o domain.Ownership) bool {
		return o.OwnerID == ownerID && o.NFT.ID == nftID
	})
	return nil
}

// --- In-Memory Certificate Repo ---

type inMemoryCertificateRepo struct {
	mu    sync.RWMutex
	certs map[uuid.UUID]domain.Certificate
}

func newInMemoryCertificateRepo() *inMemoryCertificateRepo {
	return &inMemoryCertificateRepo{certs: make(map[uuid.UUID]domain.Certificate)}
}

func (r *inMemoryCertificateRepo) Create(ctx context.Context, c *domain.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.certs[c.ID] = *c
	return nil
}

func (r *inMemoryCertificateRepo) GetByCertificateID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.certs {
		if c.CertificateID == certificateID {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *inMemoryCertificateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.certs, id)
	return nil
}

func (r *inMemoryCertificateRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Certificate
	for _, c := range r.certs {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Certificate) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// --- In-Memory Wallet Key Repo ---

type inMemoryWalletKeyRepo struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]domain.WalletKey
}

func newInMemoryWalletKeyRepo() *inMemoryWalletKeyRepo {
	return &inMemoryWalletKeyRepo{keys: make(map[uuid.UUID]domain.WalletKey)}
}

func (r *inMemoryWalletKeyRepo) Create(ctx context.Context, k *domain.WalletKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[k.UserID]; ok {
		return domain.ErrWalletKeyExists
	}
	r.keys[k.UserID] = *k
	return nil
}

func (r *inMemoryWalletKeyRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.WalletKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[userID]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return errors.New("duplicate user")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.Username, username) }), nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (r *inMemoryUserRepo) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	q := strings.ToLower(query)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.User
	for _, u := range r.users {
		if u.ID.String() == q ||
			strings.HasPrefix(strings.ToLower(u.Username), q) ||
			strings.HasPrefix(strings.ToLower(u.Email), q) {
			out = append(out, *u)
		}
	}
	slices.SortFunc(out, func(a, b domain.User) int { return strings.Compare(a.Username, b.Username) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryUserRepo) deactivate(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IsActive = false
	}
}

func (r *inMemoryUserRepo) find(match func(*domain.User) bool) *domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

func (r *inMemoryAuditRepo) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}
