package postgres

import (
	"context"
	"fmt"
)

// RemoteStoreCheck reports whether the authoritative store answers queries.
type RemoteStoreCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *RemoteStoreCheck {
	return &RemoteStoreCheck{pool: pool}
}

// Ping runs a trivial query and checks its result.
func (h *RemoteStoreCheck) Ping(ctx context.Context) error {
	var one int
	if err := h.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("remote store: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("remote store: unexpected probe result %d", one)
	}
	return nil
}

func (h *RemoteStoreCheck) Name() string { return "remote_store" }
