package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"edu-ledger/config"
	"edu-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_SequentialOperationsChargeExactCost(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	app.signUp(t, "bob")

	assert.Equal(t, "100.00", app.balance(t, alice))

	resp := app.do(t, http.MethodPost, "/api/v1/certificates", alice.token, certificateBody("Go 101"))
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	assert.Equal(t, "90.00", app.balance(t, alice))

	// 95 > 90: rejected, nothing charged.
	resp = app.do(t, http.MethodPost, "/api/v1/nfts/nft-007/purchase", alice.token, nil)
	assert.Equal(t, http.StatusPaymentRequired, resp.status)
	assert.Equal(t, "LEDGER_001", resp.errorCode())
	assert.Equal(t, "90.00", app.balance(t, alice))

	resp = app.do(t, http.MethodPost, "/api/v1/nfts/nft-006/purchase", alice.token, nil)
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	assert.Equal(t, "50.00", app.balance(t, alice))

	resp = app.do(t, http.MethodPost, "/api/v1/nfts/nft-001/gift", alice.token, map[string]string{"recipient": "bob"})
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	assert.Equal(t, "25.00", app.balance(t, alice))

	resp = app.do(t, http.MethodPost, "/api/v1/nfts/nft-008/purchase", alice.token, nil)
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	assert.Equal(t, "10.00", app.balance(t, alice))

	resp = app.do(t, http.MethodPost, "/api/v1/certificates", alice.token, certificateBody("Go 201"))
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	assert.Equal(t, "0.00", app.balance(t, alice))

	// Rejected before the certificate is written.
	resp = app.do(t, http.MethodPost, "/api/v1/certificates", alice.token, certificateBody("Go 301"))
	assert.Equal(t, http.StatusPaymentRequired, resp.status)
	assert.Equal(t, "0.00", app.balance(t, alice))

	certs := app.do(t, http.MethodGet, "/api/v1/certificates", alice.token, nil)
	assert.Len(t, certs.items(), 2)
}

func TestLedger_LogGrowsByOnePerSuccessfulMutation(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	app.signUp(t, "bob")

	// A user with no history is shown the welcome bonus.
	require.Equal(t, 1, app.transactionCount(t, alice))

	steps := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		grows  bool
	}{
		{"purchase", http.MethodPost, "/api/v1/nfts/nft-003/purchase", nil, http.StatusCreated, true},
		{"unaffordable purchase", http.MethodPost, "/api/v1/nfts/nft-005/purchase", nil, http.StatusPaymentRequired, false},
		{"unknown nft", http.MethodPost, "/api/v1/nfts/nft-999/purchase", nil, http.StatusNotFound, false},
		{"certificate", http.MethodPost, "/api/v1/certificates", certificateBody("Go 101"), http.StatusCreated, true},
		{"gift", http.MethodPost, "/api/v1/nfts/nft-008/gift", map[string]string{"recipient": "bob"}, http.StatusCreated, true},
		{"gift to self", http.MethodPost, "/api/v1/nfts/nft-008/gift", map[string]string{"recipient": "alice"}, http.StatusBadRequest, false},
	}

	count := 1
	for _, step := range steps {
		resp := app.do(t, step.method, step.path, alice.token, step.body)
		require.Equal(t, step.status, resp.status, "%s: %v", step.name, resp.body)
		if step.grows {
			count++
		}
		assert.Equal(t, count, app.transactionCount(t, alice), step.name)
	}

	list := app.do(t, http.MethodGet, "/api/v1/ledger/transactions", alice.token, nil)
	for _, it := range list.items() {
		assert.Equal(t, string(domain.TransactionStatusConfirmed), it.(map[string]any)["status"])
	}
}

func TestGift_MovesOwnershipToRecipient(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")
	bob := app.signUp(t, "bob")

	resp := app.do(t, http.MethodPost, "/api/v1/nfts/nft-002/purchase", alice.token, nil)
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	require.Contains(t, app.ownedNFTs(t, alice), "nft-002")

	resp = app.do(t, http.MethodPost, "/api/v1/nfts/nft-002/gift", alice.token,
		map[string]string{"recipient": "bob", "message": "well done"})
	require.Equal(t, http.StatusCreated, resp.status, resp.body)

	assert.NotContains(t, app.ownedNFTs(t, alice), "nft-002")

	received, ok := app.ownedNFTs(t, bob)["nft-002"]
	require.True(t, ok)
	assert.Equal(t, string(domain.AcquiredTypeGift), received["acquired_type"])
	assert.Equal(t, alice.id.String(), received["received_from"])
	assert.Equal(t, "well done", received["gift_message"])

	assert.Eventually(t, func() bool {
		for _, a := range app.audit.actions() {
			if a == domain.AuditActionGiftNFT {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestLedger_DefaultBalanceIsStableAcrossReads(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice")

	first := app.do(t, http.MethodGet, "/api/v1/ledger/balance", alice.token, nil)
	second := app.do(t, http.MethodGet, "/api/v1/ledger/balance", alice.token, nil)
	require.Equal(t, http.StatusOK, first.status)
	require.Equal(t, http.StatusOK, second.status)

	assert.Equal(t, "100.00", first.data()["balance"])
	assert.Equal(t, "5.00", first.data()["usd_value"])
	assert.Equal(t, "EDU", first.data()["symbol"])
	assert.Equal(t, first.data(), second.data())

	// Reads never materialize a remote row.
	_, ok := app.balances.row(alice.id)
	assert.False(t, ok)
}

func TestSync_LoginKeepsPopulatedRemoteBalance(t *testing.T) {
	cases := []struct {
		name         string
		policy       string
		localAmount  string
		localVersion int64
	}{
		{"fill_empty ignores a newer cache", config.MergeFillEmpty, "999.00", 10},
		{"fill_empty ignores the default cache", config.MergeFillEmpty, "100.00", 0},
		{"versioned ignores an older cache", config.MergeVersioned, "999.00", 2},
		{"versioned ignores an equal version", config.MergeVersioned, "1.00", 3},
		{"versioned ignores the default cache", config.MergeVersioned, "100.00", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, withMergePolicy(tc.policy))
			alice := app.signUp(t, "alice")

			remote := seededBalance(alice, "250.00", 3)
			app.balances.seed(remote)

			local := seededBalance(alice, tc.localAmount, tc.localVersion)
			require.NoError(t, app.local.SetBalance(context.Background(), &local))

			login := app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
				"username": "alice",
				"password": testPassword,
			})
			require.Equal(t, http.StatusOK, login.status, login.body)

			after, ok := app.balances.row(alice.id)
			require.True(t, ok)
			assert.Equal(t, "250.00", after.Balance.StringFixed(2))
			assert.Equal(t, int64(3), after.Version)

			// The local cache is never overwritten by a sync either.
			cached, err := app.local.GetBalance(context.Background(), alice.id)
			require.NoError(t, err)
			assert.True(t, cached.Balance.Equal(local.Balance))
		})
	}
}

func TestSync_VersionedMergeReplacesStaleRemote(t *testing.T) {
	app := newTestApp(t, withMergePolicy(config.MergeVersioned))
	alice := app.signUp(t, "alice")

	app.balances.seed(seededBalance(alice, "250.00", 3))
	local := seededBalance(alice, "40.00", 4)
	require.NoError(t, app.local.SetBalance(context.Background(), &local))

	resp := app.do(t, http.MethodPost, "/api/v1/sync", alice.token, nil)
	require.Equal(t, http.StatusOK, resp.status, resp.body)

	after, ok := app.balances.row(alice.id)
	require.True(t, ok)
	assert.Equal(t, "40.00", after.Balance.StringFixed(2))
	assert.Equal(t, int64(4), after.Version)
}

func seededBalance(acct account, amount string, version int64) domain.Balance {
	b := domain.NewDefaultBalance(acct.id, decimal.RequireFromString(amount), decimal.RequireFromString("0.05"), time.Now().UTC())
	b.Version = version
	return *b
}
