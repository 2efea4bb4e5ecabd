package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"edu-ledger/config"
	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/internal/core/ports/mocks"
	"edu-ledger/pkg/apperror"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	testPrice          = decimal.RequireFromString("0.05")
	testDefaultBalance = decimal.NewFromInt(100)
	errStoreDown       = errors.New("connection refused")
)

type ledgerTestDeps struct {
	svc      *LedgerServiceImpl
	balances *mocks.MockBalanceRepository
	txRepo   *mocks.MockTransactionRepository
	local    *mocks.MockLocalCache
	syncer   *mocks.MockChangeSyncer
	ctrl     *gomock.Controller
}

func setupLedgerService(t *testing.T, mode string) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		balances: mocks.NewMockBalanceRepository(ctrl),
		txRepo:   mocks.NewMockTransactionRepository(ctrl),
		local:    mocks.NewMockLocalCache(ctrl),
		syncer:   mocks.NewMockChangeSyncer(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewLedgerService(d.balances, d.txRepo, d.local, d.syncer, NewStaticPriceFeed(testPrice), nil,
		LedgerConfig{
			DefaultBalance:  testDefaultBalance,
			FallbackPrice:   testPrice,
			ConcurrencyMode: mode,
			MaxCASRetries:   3,
		}, newTestLogger())
	d.svc.casBackoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return d
}

func balanceAt(userID uuid.UUID, amount string, version int64) *domain.Balance {
	b := domain.NewDefaultBalance(userID, decimal.RequireFromString(amount), testPrice, time.Now().UTC())
	b.Version = version
	return b
}

func (d *ledgerTestDeps) expectNoLocalBalance(userID uuid.UUID) {
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(nil, nil).AnyTimes()
}

func (d *ledgerTestDeps) expectTransactionLogged() {
	d.local.EXPECT().PrependTransaction(gomock.Any(), gomock.Any()).Return(nil)
	d.syncer.EXPECT().SyncOnChange(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, c domain.Change) error {
			if c.Kind != domain.ChangeKindTransaction {
				return errors.New("unexpected change kind " + string(c.Kind))
			}
			return nil
		})
}

// ==================== GetBalance ====================

func TestLedgerService_GetBalance_RemoteWins(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "42", 3), nil)

	b := d.svc.GetBalance(context.Background(), userID)
	assert.Equal(t, "42.00", b.Balance.StringFixed(2))
	assert.Equal(t, int64(3), b.Version)
}

func TestLedgerService_GetBalance_NewerLocalWins(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "90", 1), nil)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(balanceAt(userID, "75", 2), nil)

	b := d.svc.GetBalance(context.Background(), userID)
	assert.Equal(t, "75.00", b.Balance.StringFixed(2))
	assert.Equal(t, int64(2), b.Version)
}

func TestLedgerService_GetBalance_StaleLocalIgnored(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "60", 4), nil)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(balanceAt(userID, "75", 3), nil)

	b := d.svc.GetBalance(context.Background(), userID)
	assert.Equal(t, "60.00", b.Balance.StringFixed(2))
}

func TestLedgerService_GetBalance_UntouchedRemotePrefersLocal(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "100", 0), nil)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(balanceAt(userID, "70", 2), nil)

	b := d.svc.GetBalance(context.Background(), userID)
	assert.Equal(t, "70.00", b.Balance.StringFixed(2))
}

func TestLedgerService_GetBalance_UntouchedRemoteNoLocal(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "100", 0), nil)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(nil, nil)

	b := d.svc.GetBalance(context.Background(), userID)
	assert.Equal(t, "100.00", b.Balance.StringFixed(2))
	assert.Equal(t, int64(0), b.Version)
}

func TestLedgerService_GetBalance_SynthesizesAndCachesDefault(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(nil, nil)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(nil, nil)
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, b *domain.Balance) error {
			assert.Equal(t, userID, b.UserID)
			return nil
		})

	b := d.svc.GetBalance(context.Background(), userID)
	assert.Equal(t, "100.00", b.Balance.StringFixed(2))
	assert.Equal(t, "5.00", b.USDValue.StringFixed(2))
	assert.Equal(t, "EDU", b.Symbol)
	assert.Equal(t, int64(0), b.Version)
}

func TestLedgerService_GetBalance_RemoteDownUsesLocal(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(nil, errStoreDown)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(balanceAt(userID, "12.5", 4), nil)

	b := d.svc.GetBalance(context.Background(), userID)
	assert.Equal(t, "12.50", b.Balance.StringFixed(2))
}

func TestLedgerService_GetBalance_BothStoresFail(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(nil, errStoreDown)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(nil, errStoreDown)

	b := d.svc.GetBalance(context.Background(), userID)
	assert.True(t, b.Balance.IsZero())
	assert.True(t, b.USDValue.IsZero())
	assert.Equal(t, userID, b.UserID)
}

// ==================== Debit / Credit (cas) ====================

func TestLedgerService_Debit_CAS_Success(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	ctx := context.Background()
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "50", 2), nil)
	d.balances.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), int64(2)).DoAndReturn(
		func(_ context.Context, b *domain.Balance, _ int64) (bool, error) {
			assert.Equal(t, "40.00", b.Balance.StringFixed(2))
			assert.Equal(t, "2.00", b.USDValue.StringFixed(2))
			assert.Equal(t, int64(3), b.Version)
			return true, nil
		})
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(nil)
	d.expectTransactionLogged()

	bal, tx, err := d.svc.Debit(ctx, domain.Movement{
		UserID:      userID,
		Amount:      decimal.NewFromInt(10),
		Type:        domain.TransactionTypeCertificateCreation,
		Description: "Certificate: Go",
	})
	require.NoError(t, err)
	assert.Equal(t, "40.00", bal.Balance.StringFixed(2))
	assert.Equal(t, "-10.00", tx.Amount.StringFixed(2))
	assert.Equal(t, domain.TransactionStatusConfirmed, tx.Status)
	assert.Equal(t, domain.TransactionTypeCertificateCreation, tx.Type)
	assert.Len(t, tx.ID, 26, "ulid")
}

func TestLedgerService_Debit_CAS_NewUserInsertsRow(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(nil, nil)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(nil, nil)
	d.balances.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), ports.NoVersion).DoAndReturn(
		func(_ context.Context, b *domain.Balance, _ int64) (bool, error) {
			assert.Equal(t, "75.00", b.Balance.StringFixed(2))
			assert.Equal(t, int64(1), b.Version)
			return true, nil
		})
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(nil)
	d.expectTransactionLogged()

	bal, _, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.NewFromInt(25), Type: domain.TransactionTypePurchase,
	})
	require.NoError(t, err)
	assert.Equal(t, "75.00", bal.Balance.StringFixed(2))
}

func TestLedgerService_Debit_CAS_StartsFromNewerLocal(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	// Local took a debit while the remote store was down.
	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "90", 1), nil)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(balanceAt(userID, "75", 2), nil)
	d.balances.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), int64(1)).DoAndReturn(
		func(_ context.Context, b *domain.Balance, _ int64) (bool, error) {
			assert.Equal(t, "65.00", b.Balance.StringFixed(2))
			assert.Equal(t, int64(3), b.Version)
			return true, nil
		})
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(nil)
	d.expectTransactionLogged()

	bal, _, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.NewFromInt(10), Type: domain.TransactionTypePurchase,
	})
	require.NoError(t, err)
	assert.Equal(t, "65.00", bal.Balance.StringFixed(2))
}

func TestLedgerService_Debit_InsufficientFunds(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "5", 7), nil)

	bal, tx, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.RequireFromString("5.01"), Type: domain.TransactionTypePurchase,
	})
	assert.Nil(t, bal)
	assert.Nil(t, tx)
	assertAppError(t, err, "LEDGER_001")
}

func TestLedgerService_Debit_LostRaceRecheckedFunds(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	gomock.InOrder(
		d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "100", 1), nil),
		d.balances.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), int64(1)).Return(false, nil),
		d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "40", 2), nil),
	)

	_, _, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.NewFromInt(60), Type: domain.TransactionTypePurchase,
	})
	assertAppError(t, err, "LEDGER_001")
}

func TestLedgerService_Debit_LostRaceThenSucceeds(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	gomock.InOrder(
		d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "100", 1), nil),
		d.balances.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), int64(1)).Return(false, nil),
		d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "80", 2), nil),
		d.balances.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), int64(2)).Return(true, nil),
	)
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(nil)
	d.expectTransactionLogged()

	bal, _, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.NewFromInt(30), Type: domain.TransactionTypePurchase,
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", bal.Balance.StringFixed(2))
	assert.Equal(t, int64(3), bal.Version)
}

func TestLedgerService_Debit_ConflictsExhausted(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	// One attempt plus MaxCASRetries retries.
	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "100", 1), nil).Times(4)
	d.balances.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), int64(1)).Return(false, nil).Times(4)

	_, _, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.NewFromInt(1), Type: domain.TransactionTypePurchase,
	})
	assertAppError(t, err, "LEDGER_002")
}

func TestLedgerService_Debit_RemoteDownDegradesToLocal(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(nil, errStoreDown)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(balanceAt(userID, "30", 5), nil)
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, b *domain.Balance) error {
			assert.Equal(t, "20.00", b.Balance.StringFixed(2))
			assert.Equal(t, int64(6), b.Version)
			return nil
		})
	d.local.EXPECT().PrependTransaction(gomock.Any(), gomock.Any()).Return(nil)
	d.syncer.EXPECT().SyncOnChange(gomock.Any(), userID, gomock.Any()).Return(errStoreDown)

	bal, tx, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.NewFromInt(10), Type: domain.TransactionTypeGift,
	})
	require.NoError(t, err)
	assert.Equal(t, "20.00", bal.Balance.StringFixed(2))
	assert.NotNil(t, tx)
}

func TestLedgerService_Debit_NoStoreAccepts(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(nil, errStoreDown)
	d.local.EXPECT().GetBalance(gomock.Any(), userID).Return(balanceAt(userID, "30", 5), nil)
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(errStoreDown)

	_, _, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.NewFromInt(10), Type: domain.TransactionTypePurchase,
	})
	assertAppError(t, err, "SYS_002")
}

func TestLedgerService_Credit(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "10", 1), nil)
	d.balances.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), int64(1)).Return(true, nil)
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(nil)
	d.expectTransactionLogged()

	bal, tx, err := d.svc.Credit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.RequireFromString("2.345"), Type: domain.TransactionTypeTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, "12.35", bal.Balance.StringFixed(2))
	assert.True(t, tx.Amount.IsPositive())
}

func TestLedgerService_RejectsNonPositiveAmounts(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)

	for _, amount := range []string{"0", "-5"} {
		_, _, err := d.svc.Debit(context.Background(), domain.Movement{
			UserID: uuid.New(), Amount: decimal.RequireFromString(amount), Type: domain.TransactionTypePurchase,
		})
		assertAppError(t, err, "VAL_002")
	}
}

// ==================== Debit (last_write_wins) ====================

func TestLedgerService_Debit_LastWriteWins(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyLastWriteWins)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "100", 1), nil)
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(nil)
	gomock.InOrder(
		d.syncer.EXPECT().SyncOnChange(gomock.Any(), userID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ uuid.UUID, c domain.Change) error {
				assert.Equal(t, domain.ChangeKindBalance, c.Kind)
				assert.Equal(t, "40.00", c.Balance.Balance.StringFixed(2))
				return nil
			}),
		d.syncer.EXPECT().SyncOnChange(gomock.Any(), userID, gomock.Any()).Return(nil),
	)
	d.local.EXPECT().PrependTransaction(gomock.Any(), gomock.Any()).Return(nil)

	bal, _, err := d.svc.Debit(context.Background(), domain.Movement{
		UserID: userID, Amount: decimal.NewFromInt(60), Type: domain.TransactionTypePurchase,
	})
	require.NoError(t, err)
	assert.Equal(t, "40.00", bal.Balance.StringFixed(2))
}

// ==================== UpdateBalance ====================

func TestLedgerService_UpdateBalance(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "10", 1), nil)
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(errStoreDown)
	d.syncer.EXPECT().SyncOnChange(gomock.Any(), userID, gomock.Any()).Return(nil)

	b, err := d.svc.UpdateBalance(context.Background(), userID, decimal.NewFromInt(55), decimal.RequireFromString("2.75"))
	require.NoError(t, err, "remote accepted the write")
	assert.Equal(t, "55.00", b.Balance.StringFixed(2))
	assert.Equal(t, "2.75", b.USDValue.StringFixed(2))
	assert.Equal(t, int64(2), b.Version)
}

func TestLedgerService_UpdateBalance_NoStoreAccepts(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()
	d.expectNoLocalBalance(userID)

	d.balances.EXPECT().Get(gomock.Any(), userID).Return(balanceAt(userID, "10", 1), nil)
	d.local.EXPECT().SetBalance(gomock.Any(), gomock.Any()).Return(errStoreDown)
	d.syncer.EXPECT().SyncOnChange(gomock.Any(), userID, gomock.Any()).Return(errStoreDown)

	_, err := d.svc.UpdateBalance(context.Background(), userID, decimal.NewFromInt(55), decimal.Zero)
	assertAppError(t, err, "SYS_002")
}

func TestLedgerService_UpdateBalance_Negative(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)

	_, err := d.svc.UpdateBalance(context.Background(), uuid.New(), decimal.NewFromInt(-1), decimal.Zero)
	assertAppError(t, err, "VAL_002")
}

// ==================== GetPrice ====================

func TestLedgerService_GetPrice_FeedDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mocks.NewMockPriceFeed(ctrl)
	svc := NewLedgerService(nil, nil, nil, nil, feed, nil, LedgerConfig{FallbackPrice: testPrice}, newTestLogger())

	feed.EXPECT().Quote(gomock.Any()).Return(nil, errStoreDown)

	q := svc.GetPrice(context.Background())
	assert.Equal(t, "EDU", q.Symbol)
	assert.True(t, testPrice.Equal(q.PriceUSD))
}

// ==================== ListTransactions ====================

func TestLedgerService_ListTransactions_RemoteFirst(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.txRepo.EXPECT().ListByUser(gomock.Any(), userID).Return([]domain.Transaction{{ID: "r1"}, {ID: "r0"}}, nil)

	txs := d.svc.ListTransactions(context.Background(), userID)
	require.Len(t, txs, 2)
	assert.Equal(t, "r1", txs[0].ID)
}

func TestLedgerService_ListTransactions_LocalFallback(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.txRepo.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, errStoreDown)
	d.local.EXPECT().GetTransactions(gomock.Any(), userID).Return([]domain.Transaction{{ID: "l1"}}, nil)

	txs := d.svc.ListTransactions(context.Background(), userID)
	require.Len(t, txs, 1)
	assert.Equal(t, "l1", txs[0].ID)
}

func TestLedgerService_ListTransactions_WelcomeBonus(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.txRepo.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, nil)
	d.local.EXPECT().GetTransactions(gomock.Any(), userID).Return(nil, nil)
	d.expectTransactionLogged()

	txs := d.svc.ListTransactions(context.Background(), userID)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.WelcomeBonusID(userID), txs[0].ID)
	assert.Equal(t, domain.TransactionTypeReward, txs[0].Type)
	assert.Equal(t, "100.00", txs[0].Amount.StringFixed(2))
}

func TestLedgerService_AppendTransaction_NeverFails(t *testing.T) {
	d := setupLedgerService(t, config.ConcurrencyCAS)
	userID := uuid.New()

	d.local.EXPECT().PrependTransaction(gomock.Any(), gomock.Any()).Return(errStoreDown)
	d.syncer.EXPECT().SyncOnChange(gomock.Any(), userID, gomock.Any()).Return(errStoreDown)

	assert.NotPanics(t, func() {
		d.svc.AppendTransaction(context.Background(), &domain.Transaction{ID: "x", UserID: userID})
	})
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
