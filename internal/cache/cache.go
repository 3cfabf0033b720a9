package cache

import (
	"context"
	"fmt"
	"time"

	"cellarpos/backend/internal/domain"
)

// DefaultForecastTTL is how long a computed forecast is served before it is
// recomputed from fresh records.
const DefaultForecastTTL = 3 * time.Hour

type ForecastCache interface {
	Get(ctx context.Context, key string) (*domain.ForecastResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.ForecastResponse, ttl time.Duration) error
}

// ForecastKey identifies one forecast variant for an organization.
func ForecastKey(organizationID string, months int, historyMonths int) string {
	return fmt.Sprintf("budget-forecast:%s:%d:%d", organizationID, months, historyMonths)
}

type NoopForecastCache struct{}

func (NoopForecastCache) Get(_ context.Context, _ string) (*domain.ForecastResponse, bool, error) {
	return nil, false, nil
}

func (NoopForecastCache) Set(_ context.Context, _ string, _ *domain.ForecastResponse, _ time.Duration) error {
	return nil
}
