package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"vibhanet-auth/backend/internal/telemetry/domain"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Sum[int64])
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != MeterName {
			continue
		}
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				out[m.Name] = sum
			}
		}
	}
	return out
}

func TestAuthMetrics_Inc(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewAuthMetrics(mp)
	if err != nil {
		t.Fatalf("NewAuthMetrics: %v", err)
	}
	ctx := context.Background()
	m.Inc(ctx, domain.EventLoginFailure, "44")
	m.Inc(ctx, domain.EventLoginFailure, "44")
	m.Inc(ctx, domain.EventLoginSuccess, "")
	m.Inc(ctx, "auth.unknown", "1")

	sums := collect(t, reader)
	failure, ok := sums[domain.EventLoginFailure]
	if !ok || len(failure.DataPoints) != 1 {
		t.Fatalf("failure counter missing: %+v", sums)
	}
	dp := failure.DataPoints[0]
	if dp.Value != 2 {
		t.Errorf("failure count = %d, want 2", dp.Value)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("country_code")); !ok || v.AsString() != "44" {
		t.Errorf("country_code attribute = %v, %v", v, ok)
	}
	success := sums[domain.EventLoginSuccess]
	if len(success.DataPoints) != 1 || success.DataPoints[0].Attributes.Len() != 0 {
		t.Errorf("success should be recorded without attributes: %+v", success)
	}
	if _, ok := sums["auth.unknown"]; ok {
		t.Error("unknown names must not create counters")
	}
}

func TestAuthMetrics_NilReceiver(t *testing.T) {
	var m *AuthMetrics
	m.Inc(context.Background(), domain.EventLoginSuccess, "1")
}
