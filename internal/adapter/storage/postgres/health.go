package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const healthTimeout = 2 * time.Second

// ErrCatalogEmpty means the schema exists but the reward seed migration has not run.
var ErrCatalogEmpty = errors.New("reward catalog is empty")

// HealthCheck reports the database unhealthy when it is unreachable or
// has no rewards to sell.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var seeded bool
	if err := h.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rewards)`).Scan(&seeded); err != nil {
		return fmt.Errorf("query rewards: %w", err)
	}
	if !seeded {
		return ErrCatalogEmpty
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgres"
}
