package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	idempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second
)

// idempotencyGuard replays completed saga results and rejects a second
// in-flight run under the same key. An unreachable cache is logged and
// the request proceeds unguarded.
type idempotencyGuard struct {
	cache ports.IdempotencyCache
	log   zerolog.Logger
}

// begin returns the cached result for key, if any. Otherwise the caller
// holds the key until release is called. An empty key disables the guard.
func (g idempotencyGuard) begin(ctx context.Context, key string) (cached []byte, release func(), err error) {
	noop := func() {}
	if key == "" || g.cache == nil {
		return nil, noop, nil
	}

	cached, err = g.cache.Get(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("idempotency check failed, proceeding without it")
		return nil, noop, nil
	}
	if cached != nil {
		return cached, noop, nil
	}

	ok, err := g.cache.Reserve(ctx, key, idempotencyLockTTL)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("idempotency reserve failed, proceeding without it")
		return nil, noop, nil
	}
	if !ok {
		// The holder may have finished between the lookup and the reserve.
		if cached, err := g.cache.Get(ctx, key); err == nil && cached != nil {
			return cached, noop, nil
		}
		return nil, noop, apperror.ErrOperationInProgress()
	}

	return nil, func() {
		if err := g.cache.Release(context.WithoutCancel(ctx), key); err != nil {
			g.log.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
		}
	}, nil
}

// complete stores v as the result for key.
func (g idempotencyGuard) complete(ctx context.Context, key string, v any) {
	if key == "" || g.cache == nil {
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to encode idempotent result")
		return
	}
	if err := g.cache.Set(ctx, key, body, idempotencyTTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotent result")
	}
}

func replay[T any](cached []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(cached, &v); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode cached result: %w", err))
	}
	return &v, nil
}
