package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edu-ledger/internal/adapter/http/dto"
	"edu-ledger/internal/adapter/http/middleware"
	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/internal/core/ports/mocks"
	"edu-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stands in for JWTAuth.
func asUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, id)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "no data envelope in %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserService(ctrl)
	h := NewAuthHandler(users)

	userID := uuid.New()
	users.EXPECT().Register(gomock.Any(), ports.RegisterRequest{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "password123",
	}).Return(&domain.User{ID: userID, Username: "ada", Email: "ada@example.com", PasswordHash: "secret", IsActive: true}, nil)

	r := gin.New()
	r.POST("/register", h.Register)
	w := doJSON(r, http.MethodPost, "/register", dto.RegisterRequest{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "password123",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, userID.String(), data["id"])
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAuthHandler(mocks.NewMockUserService(ctrl))

	r := gin.New()
	r.POST("/register", h.Register)

	for _, body := range []dto.RegisterRequest{
		{},
		{Username: "ada", Email: "not-an-email", Password: "password123"},
		{Username: "a b", Email: "a@b.co", Password: "password123"},
		{Username: "ada", Email: "a@b.co", Password: "short"},
	} {
		w := doJSON(r, http.MethodPost, "/register", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%+v", body)
		assert.Equal(t, "VAL_001", errorCode(t, w))
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserService(ctrl)
	h := NewAuthHandler(users)
	users.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrUsernameExists())

	r := gin.New()
	r.POST("/register", h.Register)
	w := doJSON(r, http.MethodPost, "/register", dto.RegisterRequest{Username: "ada", Email: "a@b.co", Password: "password123"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AUTH_002", errorCode(t, w))
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserService(ctrl)
	h := NewAuthHandler(users)

	expiry := time.Now().Add(time.Hour)
	users.EXPECT().Login(gomock.Any(), "ada", "password123").Return(&ports.LoginResult{
		Token:     "jwt",
		ExpiresAt: expiry,
		User:      domain.PublicUser{ID: uuid.New(), Username: "ada"},
		Sync:      &domain.SyncReport{},
	}, nil)

	r := gin.New()
	r.POST("/login", h.Login)
	w := doJSON(r, http.MethodPost, "/login", dto.LoginRequest{Username: "ada", Password: "password123"})

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "jwt", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
	assert.NotNil(t, data["sync"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserService(ctrl)
	h := NewAuthHandler(users)
	users.EXPECT().Login(gomock.Any(), "ada", "wrong").Return(nil, apperror.ErrInvalidCredentials())

	r := gin.New()
	r.POST("/login", h.Login)
	w := doJSON(r, http.MethodPost, "/login", dto.LoginRequest{Username: "ada", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_001", errorCode(t, w))
}

func TestLogout(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserService(ctrl)
	h := NewAuthHandler(users)
	userID := uuid.New()
	users.EXPECT().Logout(gomock.Any(), userID)

	r := gin.New()
	r.POST("/logout", asUser(userID), h.Logout)
	w := doJSON(r, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Without an identity the handler refuses.
	r = gin.New()
	r.POST("/logout", h.Logout)
	w = doJSON(r, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserService(ctrl)
	h := NewAuthHandler(users)
	users.EXPECT().Search(gomock.Any(), "bo").Return([]domain.PublicUser{{Username: "bob", IsActive: false}}, nil)

	r := gin.New()
	r.GET("/users/search", asUser(uuid.New()), h.Search)

	w := doJSON(r, http.MethodGet, "/users/search?q=bo", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(1), data["total"])

	w = doJSON(r, http.MethodGet, "/users/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Ledger Handler Tests ---

func TestLedger_GetBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()
	ledger.EXPECT().GetBalance(gomock.Any(), userID).Return(&domain.Balance{
		UserID:  userID,
		Balance: decimal.RequireFromString("90"),
		Symbol:  domain.TokenSymbol,
		Version: 3,
	})

	r := gin.New()
	r.GET("/balance", asUser(userID), NewLedgerHandler(ledger).GetBalance)
	w := doJSON(r, http.MethodGet, "/balance", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "90", data["balance"])
	assert.Equal(t, float64(3), data["version"])
}

func TestLedger_UpdateBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()
	ledger.EXPECT().UpdateBalance(gomock.Any(), userID, decimal.RequireFromString("42.5"), decimal.Zero).
		Return(&domain.Balance{UserID: userID, Balance: decimal.RequireFromString("42.5")}, nil)

	r := gin.New()
	r.PUT("/balance", asUser(userID), NewLedgerHandler(ledger).UpdateBalance)

	w := doJSON(r, http.MethodPut, "/balance", dto.UpdateBalanceRequest{Balance: "42.5"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPut, "/balance", dto.UpdateBalanceRequest{Balance: "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedger_ListTransactions_EmptyIsArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()
	ledger.EXPECT().ListTransactions(gomock.Any(), userID).Return(nil)

	r := gin.New()
	r.GET("/transactions", asUser(userID), NewLedgerHandler(ledger).ListTransactions)
	w := doJSON(r, http.MethodGet, "/transactions", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

// --- NFT Handler Tests ---

func TestNFT_ListFiltersAndRejectsUnknownCategory(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalogService(ctrl)
	catalog.EXPECT().List(ports.CatalogFilter{Category: domain.NFTCategoryBadge}).
		Return([]domain.NFT{{ID: "nft-003", Category: domain.NFTCategoryBadge}})

	h := NewNFTHandler(catalog, mocks.NewMockOwnershipService(ctrl), mocks.NewMockMarketplaceService(ctrl))
	r := gin.New()
	r.GET("/nfts", asUser(uuid.New()), h.List)

	w := doJSON(r, http.MethodGet, "/nfts?category=badge", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nft-003")

	w = doJSON(r, http.MethodGet, "/nfts?category=weapon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNFT_PurchasePassesIdempotencyKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	market := mocks.NewMockMarketplaceService(ctrl)
	userID := uuid.New()
	market.EXPECT().Purchase(gomock.Any(), ports.PurchaseRequest{
		BuyerID:        userID,
		NFTID:          "nft-001",
		IdempotencyKey: "order-1",
	}).Return(&ports.PurchaseResult{Transaction: &domain.Transaction{ID: "tx-1"}}, nil)

	h := NewNFTHandler(mocks.NewMockCatalogService(ctrl), mocks.NewMockOwnershipService(ctrl), market)
	r := gin.New()
	r.POST("/nfts/:id/purchase", asUser(userID), h.Purchase)

	w := doJSON(r, http.MethodPost, "/nfts/nft-001/purchase", nil, dto.HeaderIdempotencyKey, "order-1")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestNFT_PurchaseInsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	market := mocks.NewMockMarketplaceService(ctrl)
	market.EXPECT().Purchase(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientBalance())

	h := NewNFTHandler(mocks.NewMockCatalogService(ctrl), mocks.NewMockOwnershipService(ctrl), market)
	r := gin.New()
	r.POST("/nfts/:id/purchase", asUser(uuid.New()), h.Purchase)

	w := doJSON(r, http.MethodPost, "/nfts/nft-005/purchase", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "LEDGER_001", errorCode(t, w))
}

func TestNFT_Gift(t *testing.T) {
	ctrl := gomock.NewController(t)
	market := mocks.NewMockMarketplaceService(ctrl)
	userID := uuid.New()
	market.EXPECT().Gift(gomock.Any(), ports.GiftRequest{
		SenderID:  userID,
		NFTID:     "nft-003",
		Recipient: "bob",
		Message:   "well done &lt;3",
	}).Return(&ports.GiftResult{Recipient: domain.PublicUser{Username: "bob"}}, nil)

	h := NewNFTHandler(mocks.NewMockCatalogService(ctrl), mocks.NewMockOwnershipService(ctrl), market)
	r := gin.New()
	r.POST("/nfts/:id/gift", asUser(userID), h.Gift)

	w := doJSON(r, http.MethodPost, "/nfts/nft-003/gift", dto.GiftRequest{Recipient: " bob ", Message: "well done <3"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/nfts/nft-003/gift", dto.GiftRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Certificate Handler Tests ---

func TestCertificate_Issue(t *testing.T) {
	ctrl := gomock.NewController(t)
	certs := mocks.NewMockCertificateService(ctrl)
	userID := uuid.New()

	certs.EXPECT().Issue(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, req ports.IssueCertificateRequest) (*domain.Certificate, error) {
			assert.Equal(t, userID, req.OwnerID)
			assert.Equal(t, "2024-06-01", req.Date.Format(time.DateOnly))
			require.Len(t, req.Signatories, 1)
			assert.Equal(t, "Dean", req.Signatories[0].Name)
			return &domain.Certificate{CertificateID: "EDU-2024-ABCD1234", Verified: true}, nil
		})

	r := gin.New()
	r.POST("/certificates", asUser(userID), NewCertificateHandler(certs).Issue)
	w := doJSON(r, http.MethodPost, "/certificates", dto.IssueCertificateRequest{
		Name:         "Go 101",
		Issuer:       "EduChain Academy",
		Date:         "2024-06-01",
		StudentName:  "Ada",
		StudentEmail: "ada@example.com",
		Signatories:  []dto.SignatoryRequest{{Name: "Dean", Title: "Dean of Studies"}},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "EDU-2024-ABCD1234", decodeData(t, w)["certificate_id"])
}

func TestCertificate_IssueMissingFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := gin.New()
	r.POST("/certificates", asUser(uuid.New()), NewCertificateHandler(mocks.NewMockCertificateService(ctrl)).Issue)

	w := doJSON(r, http.MethodPost, "/certificates", dto.IssueCertificateRequest{Name: "Go 101"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCertificate_VerifyNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	certs := mocks.NewMockCertificateService(ctrl)
	certs.EXPECT().Verify(gomock.Any(), "EDU-2024-NOPE").Return(nil, apperror.ErrCertificateNotFound())

	r := gin.New()
	r.GET("/certificates/:certificate_id/verify", NewCertificateHandler(certs).Verify)
	w := doJSON(r, http.MethodGet, "/certificates/EDU-2024-NOPE/verify", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CERT_002", errorCode(t, w))
}

// --- Wallet Key Handler Tests ---

func TestWalletKey_CreateIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	keys := mocks.NewMockKeyStoreService(ctrl)
	userID := uuid.New()
	keys.EXPECT().Create(gomock.Any(), userID, "horse battery").Return(&domain.CreatedWalletKey{
		WalletKey: domain.WalletKey{Address: "0xabc", EncryptedPrivateKey: "sealed"},
		Mnemonic:  "abandon about",
	}, nil)

	r := gin.New()
	r.POST("/wallet-keys", asUser(userID), NewWalletKeyHandler(keys).Create)
	w := doJSON(r, http.MethodPost, "/wallet-keys", dto.CreateWalletKeyRequest{Passphrase: "horse battery"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	data := decodeData(t, w)
	assert.Equal(t, "abandon about", data["mnemonic"])
	assert.NotContains(t, w.Body.String(), "sealed")
}

func TestWalletKey_ExportReplay(t *testing.T) {
	ctrl := gomock.NewController(t)
	keys := mocks.NewMockKeyStoreService(ctrl)
	userID := uuid.New()
	keys.EXPECT().Export(gomock.Any(), ports.ExportKeyRequest{
		UserID:     userID,
		Password:   " pw<1> ",
		Passphrase: "p",
		Nonce:      "nonce-0001",
	}).Return(nil, apperror.ErrNonceUsed())

	r := gin.New()
	r.POST("/wallet-keys/export", asUser(userID), NewWalletKeyHandler(keys).Export)
	w := doJSON(r, http.MethodPost, "/wallet-keys/export", dto.ExportWalletKeyRequest{
		Password:   " pw<1> ",
		Passphrase: "p",
		Nonce:      "nonce-0001",
	})

	assert.Equal(t, "KEY_004", errorCode(t, w))
}

// --- Sync Handler Tests ---

func TestSync_PartialFailureIsAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	sweeper := mocks.NewMockSyncService(ctrl)
	userID := uuid.New()

	sweeper.EXPECT().SyncOnLogin(gomock.Any(), userID).Return(&domain.SyncReport{
		UserID: userID,
		Outcomes: []domain.SyncOutcome{
			{Kind: domain.ChangeKindBalance, Action: domain.SyncActionPushed},
			{Kind: domain.ChangeKindTransaction, Action: domain.SyncActionFailed, Error: "remote down"},
		},
	})
	sweeper.EXPECT().SyncOnLogin(gomock.Any(), userID).Return(&domain.SyncReport{UserID: userID})

	r := gin.New()
	r.POST("/sync", asUser(userID), NewSyncHandler(sweeper).Sync)

	w := doJSON(r, http.MethodPost, "/sync", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(r, http.MethodPost, "/sync", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Health ---

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	pg := mocks.NewMockHealthChecker(ctrl)
	rd := mocks.NewMockHealthChecker(ctrl)
	pg.EXPECT().Ping(gomock.Any()).Return(assert.AnError)
	pg.EXPECT().Name().Return("remote_store").AnyTimes()
	rd.EXPECT().Ping(gomock.Any()).Return(nil)
	rd.EXPECT().Name().Return("local_cache").AnyTimes()

	r := gin.New()
	r.GET("/health", HealthCheck(pg, rd))
	w := doJSON(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}

// --- Docs ---

func TestRegisterDocs(t *testing.T) {
	r := gin.New()
	registerDocs(r, []byte("openapi: 3.0.3\n"))

	w := doJSON(r, http.MethodGet, "/swagger/spec", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "openapi: 3.0.3\n", w.Body.String())

	w = doJSON(r, http.MethodGet, "/swagger", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/swagger/spec")

	bare := gin.New()
	registerDocs(bare, nil)
	assert.Equal(t, http.StatusNotFound, doJSON(bare, http.MethodGet, "/swagger/spec", nil).Code)
}
