package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Ledger concurrency modes.
const (
	ConcurrencyCAS           = "cas"
	ConcurrencyLastWriteWins = "last_write_wins"
)

// Reconciliation merge policies.
const (
	MergeVersioned = "versioned"
	MergeFillEmpty = "fill_empty"
)

// Key store encryption modes.
const (
	KeystorePassphrase = "passphrase"
	KeystoreStatic     = "static"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Keystore     KeystoreConfig     `mapstructure:"keystore"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Certificates CertificatesConfig `mapstructure:"certificates"`
	Log          LogConfig          `mapstructure:"log"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// KeystoreConfig controls how wallet private material is sealed at rest.
type KeystoreConfig struct {
	AESKey string `mapstructure:"aes_key"` // 32-byte hex key, used by the static mode
	Mode   string `mapstructure:"mode"`    // passphrase, static
}

// LedgerConfig holds EDU token bookkeeping parameters.
type LedgerConfig struct {
	DefaultBalance  string `mapstructure:"default_balance"`
	PriceUSD        string `mapstructure:"price_usd"`
	CertificateCost string `mapstructure:"certificate_cost"`
	ConcurrencyMode string `mapstructure:"concurrency_mode"` // cas, last_write_wins
	MaxCASRetries   int    `mapstructure:"max_cas_retries"`
}

// DefaultBalanceDecimal parses DefaultBalance.
func (l LedgerConfig) DefaultBalanceDecimal() decimal.Decimal {
	return decimal.RequireFromString(l.DefaultBalance)
}

// PriceDecimal parses PriceUSD.
func (l LedgerConfig) PriceDecimal() decimal.Decimal {
	return decimal.RequireFromString(l.PriceUSD)
}

// CertificateCostDecimal parses CertificateCost.
func (l LedgerConfig) CertificateCostDecimal() decimal.Decimal {
	return decimal.RequireFromString(l.CertificateCost)
}

type SyncConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	MergePolicy     string        `mapstructure:"merge_policy"` // versioned, fill_empty
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
}

type CertificatesConfig struct {
	CompensateOnDebitFailure bool   `mapstructure:"compensate_on_debit_failure"`
	HashSecret               string `mapstructure:"hash_secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: EDL_ (EDU Ledger).
// Nested keys use underscore: EDL_DATABASE_HOST, EDL_LEDGER_CERTIFICATE_COST, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "edu_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "edu-ledger")
	v.SetDefault("keystore.aes_key", "")
	v.SetDefault("keystore.mode", KeystorePassphrase)
	v.SetDefault("ledger.default_balance", "100.00")
	v.SetDefault("ledger.price_usd", "0.05")
	v.SetDefault("ledger.certificate_cost", "10")
	v.SetDefault("ledger.concurrency_mode", ConcurrencyCAS)
	v.SetDefault("ledger.max_cas_retries", 5)
	v.SetDefault("sync.interval", "5m")
	v.SetDefault("sync.merge_policy", MergeVersioned)
	v.SetDefault("sync.retry_max_elapsed", "10s")
	v.SetDefault("certificates.compensate_on_debit_failure", true)
	v.SetDefault("certificates.hash_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// EDL_LEDGER_CONCURRENCY_MODE -> ledger.concurrency_mode
	v.SetEnvPrefix("EDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Env vars alone are a valid configuration.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enum values and numeric ranges.
func (c *Config) Validate() error {
	switch c.Ledger.ConcurrencyMode {
	case ConcurrencyCAS, ConcurrencyLastWriteWins:
	default:
		return fmt.Errorf("ledger.concurrency_mode: unknown value %q", c.Ledger.ConcurrencyMode)
	}
	switch c.Sync.MergePolicy {
	case MergeVersioned, MergeFillEmpty:
	default:
		return fmt.Errorf("sync.merge_policy: unknown value %q", c.Sync.MergePolicy)
	}
	switch c.Keystore.Mode {
	case KeystorePassphrase, KeystoreStatic:
	default:
		return fmt.Errorf("keystore.mode: unknown value %q", c.Keystore.Mode)
	}

	for name, raw := range map[string]string{
		"ledger.default_balance":  c.Ledger.DefaultBalance,
		"ledger.price_usd":        c.Ledger.PriceUSD,
		"ledger.certificate_cost": c.Ledger.CertificateCost,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s: must not be negative", name)
		}
	}
	if c.Ledger.CertificateCostDecimal().IsZero() {
		return fmt.Errorf("ledger.certificate_cost: must be positive")
	}
	if c.Ledger.MaxCASRetries < 1 {
		return fmt.Errorf("ledger.max_cas_retries: must be at least 1")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval: must be positive")
	}
	return nil
}
