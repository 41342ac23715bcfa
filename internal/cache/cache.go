package cache

import (
	"context"
	"time"

	"inventario/backend/internal/domain"
)

// SummaryCache fronts the monthly profit report, which is the most
// expensive read in the system.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.PeriodSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.PeriodSummary, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.PeriodSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.PeriodSummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Delete(_ context.Context, _ string) error {
	return nil
}
