package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"vibhanet-auth/backend/internal/telemetry/domain"
)

// MeterName is the instrumentation scope for auth metrics.
const MeterName = "vibhanet.auth"

var counterNames = []string{
	domain.EventSignupSuccess,
	domain.EventSignupConflict,
	domain.EventLoginSuccess,
	domain.EventLoginFailure,
	domain.EventLoginLocked,
	domain.EventLoginRateLimited,
}

// AuthMetrics holds one counter per auth outcome.
type AuthMetrics struct {
	counters map[string]metric.Int64Counter
}

// NewAuthMetrics creates the auth counters on the given meter provider.
func NewAuthMetrics(mp metric.MeterProvider) (*AuthMetrics, error) {
	meter := mp.Meter(MeterName)
	m := &AuthMetrics{counters: make(map[string]metric.Int64Counter, len(counterNames))}
	for _, name := range counterNames {
		c, err := meter.Int64Counter(name, metric.WithUnit("{attempt}"))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", name, err)
		}
		m.counters[name] = c
	}
	return m, nil
}

// Inc adds one to the counter for name. countryCode is attached when non-empty.
// Unknown names and a nil receiver are ignored.
func (m *AuthMetrics) Inc(ctx context.Context, name, countryCode string) {
	if m == nil {
		return
	}
	c, ok := m.counters[name]
	if !ok {
		return
	}
	if countryCode == "" {
		c.Add(ctx, 1)
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("country_code", countryCode)))
}
