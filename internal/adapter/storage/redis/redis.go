package redis

import (
	"context"
	"time"

	"edu-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const probeTimeout = 2 * time.Second

// NewClient opens the local cache. A cache that does not answer the first
// probe is logged and the client is still returned: go-redis dials on
// demand, and every ledger read falls through to the remote store.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  "edu-ledger",
		DialTimeout: probeTimeout,
	})

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	logger := log.With().Str("component", "local_cache").Str("addr", cfg.Addr()).Logger()
	if err := client.Ping(probeCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("local cache unreachable, starting degraded")
		return client, nil
	}
	logger.Info().Int("db", cfg.DB).Msg("local cache ready")
	return client, nil
}
