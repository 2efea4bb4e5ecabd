package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edu-ledger/config"
	httpHandler "edu-ledger/internal/adapter/http/handler"
	pgStorage "edu-ledger/internal/adapter/storage/postgres"
	redisStorage "edu-ledger/internal/adapter/storage/redis"
	"edu-ledger/internal/core/ports"
	"edu-ledger/internal/service"
	"edu-ledger/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("concurrency_mode", cfg.Ledger.ConcurrencyMode).
		Str("merge_policy", cfg.Sync.MergePolicy).
		Str("keystore_mode", cfg.Keystore.Mode).
		Msg("Starting EDU Ledger")

	ctx := context.Background()

	// Remote store
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure PostgreSQL pool")
	}
	defer pool.Close()

	// Local cache
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure Redis client")
	}
	defer rdb.Close()

	// Repositories
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	ownershipRepo := pgStorage.NewOwnershipRepo(pool)
	certRepo := pgStorage.NewCertificateRepo(pool)
	walletKeyRepo := pgStorage.NewWalletKeyRepo(pool)
	userRepo := pgStorage.NewUserRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)

	// Redis stores
	localCache := redisStorage.NewLocalCache(rdb)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Metrics
	var (
		registry *prometheus.Registry
		metrics  *service.Metrics
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = service.NewMetrics(registry)
	}

	// Crypto services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	ciphers := keyCiphers(cfg.Keystore, log)

	// Business services
	catalog := service.NewCatalog(service.DefaultCatalogItems())
	sweeper := service.NewSyncService(balanceRepo, txRepo, ownershipRepo, localCache, metrics, service.SyncConfig{
		DefaultBalance:  cfg.Ledger.DefaultBalanceDecimal(),
		MergePolicy:     cfg.Sync.MergePolicy,
		RetryMaxElapsed: cfg.Sync.RetryMaxElapsed,
	}, log)
	ledgerSvc := service.NewLedgerService(
		balanceRepo,
		txRepo,
		localCache,
		sweeper,
		service.NewStaticPriceFeed(cfg.Ledger.PriceDecimal()),
		metrics,
		service.LedgerConfig{
			DefaultBalance:  cfg.Ledger.DefaultBalanceDecimal(),
			FallbackPrice:   cfg.Ledger.PriceDecimal(),
			ConcurrencyMode: cfg.Ledger.ConcurrencyMode,
			MaxCASRetries:   cfg.Ledger.MaxCASRetries,
		},
		log,
	)
	ownershipSvc := service.NewOwnershipService(ownershipRepo, localCache, sweeper, catalog, metrics, log)
	sessions := service.NewSessionManager(sweeper, cfg.Sync.Interval, log)
	userSvc := service.NewUserService(userRepo, hashSvc, tokenSvc, sweeper, sessions, log)
	marketplaceSvc := service.NewMarketplaceService(catalog, ledgerSvc, ownershipSvc, userSvc, idempotencyCache, metrics, log)
	certSvc := service.NewCertificateService(certRepo, ledgerSvc, sigSvc, idempotencyCache, metrics, service.CertificateConfig{
		Cost:                     cfg.Ledger.CertificateCostDecimal(),
		CompensateOnDebitFailure: cfg.Certificates.CompensateOnDebitFailure,
		HashSecret:               cfg.Certificates.HashSecret,
	}, log)
	keyStoreSvc := service.NewKeyStoreService(walletKeyRepo, userRepo, hashSvc, nonceStore, ciphers, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	openAPISpec, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("OpenAPI document not found, /swagger disabled")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		UserSvc:        userSvc,
		LedgerSvc:      ledgerSvc,
		CatalogSvc:     catalog,
		OwnershipSvc:   ownershipSvc,
		MarketplaceSvc: marketplaceSvc,
		CertificateSvc: certSvc,
		KeyStoreSvc:    keyStoreSvc,
		SyncSvc:        sweeper,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       auditSvc,
		Registry:       registry,
		MetricsPath:    cfg.Metrics.Path,
		OpenAPISpec:    openAPISpec,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sessions.Shutdown()
	sweeper.Close()

	log.Info().Msg("Server exited")
}

// keyCiphers puts the configured cipher first. The static cipher is also
// kept for opening keys sealed before a switch to passphrase mode, when an
// application key is configured.
func keyCiphers(cfg config.KeystoreConfig, log zerolog.Logger) []ports.KeyCipher {
	var static ports.KeyCipher
	if cfg.AESKey != "" {
		enc, err := service.NewAESEncryptionService(cfg.AESKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize encryption service")
		}
		static = service.NewStaticKeyCipher(enc)
	}

	if cfg.Mode == config.KeystoreStatic {
		if static == nil {
			log.Fatal().Msg("keystore.mode=static requires keystore.aes_key")
		}
		return []ports.KeyCipher{static, service.NewPassphraseKeyCipher()}
	}
	ciphers := []ports.KeyCipher{service.NewPassphraseKeyCipher()}
	if static != nil {
		ciphers = append(ciphers, static)
	}
	return ciphers
}
