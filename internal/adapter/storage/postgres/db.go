package postgres

import (
	"context"
	"fmt"
	"time"

	"edu-ledger/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const probeTimeout = 2 * time.Second

// NewPool opens the remote store pool. pgxpool connects lazily, so an
// unreachable server only produces a warning and the ledger runs from the
// local cache until the store answers again.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse remote store dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.ConnConfig.ConnectTimeout = probeTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open remote store pool: %w", err)
	}

	logger := log.With().Str("component", "remote_store").Str("host", cfg.Host).Str("dbname", cfg.DBName).Logger()

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := pool.Ping(probeCtx); err != nil {
		logger.Warn().Err(err).Msg("remote store unreachable, starting degraded")
		return pool, nil
	}
	logger.Info().Int32("max_conns", cfg.MaxConns).Msg("remote store ready")
	return pool, nil
}
