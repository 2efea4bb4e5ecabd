package handler

import (
	"edu-ledger/internal/adapter/http/middleware"
	"edu-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	UserSvc        ports.UserService
	LedgerSvc      ports.LedgerService
	CatalogSvc     ports.CatalogService
	OwnershipSvc   ports.OwnershipService
	MarketplaceSvc ports.MarketplaceService
	CertificateSvc ports.CertificateService
	KeyStoreSvc    ports.KeyStoreService
	SyncSvc        ports.SyncService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService   // nil = audit logging disabled
	Registry       *prometheus.Registry // nil = no /metrics endpoint
	MetricsPath    string
	OpenAPISpec    []byte // nil = no /swagger docs
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if deps.Registry != nil {
		r.Use(middleware.NewHTTPMetrics(deps.Registry).Handler())
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	registerDocs(r, deps.OpenAPISpec)

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	authHandler := NewAuthHandler(deps.UserSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.POST("/logout", jwtAuth, authHandler.Logout)
	}
	v1.GET("/users/search", jwtAuth, rl("read"), authHandler.Search)

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	ledger := v1.Group("/ledger", jwtAuth)
	{
		ledger.GET("/balance", rl("read"), ledgerHandler.GetBalance)
		ledger.PUT("/balance", rl("marketplace"), ledgerHandler.UpdateBalance)
		ledger.GET("/price", rl("read"), ledgerHandler.GetPrice)
		ledger.GET("/transactions", rl("read"), ledgerHandler.ListTransactions)
	}

	nftHandler := NewNFTHandler(deps.CatalogSvc, deps.OwnershipSvc, deps.MarketplaceSvc)
	nfts := v1.Group("/nfts", jwtAuth)
	{
		nfts.GET("", rl("read"), nftHandler.List)
		nfts.GET("/owned", rl("read"), nftHandler.ListOwned)
		nfts.POST("/:id/purchase", rl("marketplace"), nftHandler.Purchase)
		nfts.POST("/:id/gift", rl("marketplace"), nftHandler.Gift)
	}

	certHandler := NewCertificateHandler(deps.CertificateSvc)
	v1.GET("/certificates/:certificate_id/verify", rl("read"), certHandler.Verify)
	certs := v1.Group("/certificates", jwtAuth)
	{
		certs.POST("", rl("certificates"), certHandler.Issue)
		certs.GET("", rl("read"), certHandler.List)
	}

	keyHandler := NewWalletKeyHandler(deps.KeyStoreSvc)
	keys := v1.Group("/wallet-keys", jwtAuth)
	{
		keys.POST("", rl("wallet_keys"), keyHandler.Create)
		keys.GET("", rl("read"), keyHandler.Get)
		keys.POST("/export", rl("wallet_keys"), keyHandler.Export)
	}

	syncHandler := NewSyncHandler(deps.SyncSvc)
	v1.POST("/sync", jwtAuth, rl("sync"), syncHandler.Sync)

	return r
}
