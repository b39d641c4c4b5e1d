package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"vibhanet-auth/backend/internal/telemetry"
	"vibhanet-auth/backend/internal/telemetry/domain"
)

// LoggerName is the instrumentation scope for auth event log records.
const LoggerName = "vibhanet.auth.events"

// recordEmitter is the subset of otellog.Logger used by the emitter.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends auth events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(LoggerName)}
}

// NewEventEmitterWithLogger returns an emitter that writes records to l.
func NewEventEmitterWithLogger(l recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: l}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.AuthEvent) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the auth event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(event.Name))
	rec.AddAttributes(otellog.String("event_name", event.Name))
	if event.AccountID != "" {
		rec.AddAttributes(otellog.String("account_id", event.AccountID))
	}
	if event.CountryCode != "" {
		rec.AddAttributes(otellog.String("country_code", event.CountryCode))
	}
	if event.Reason != "" {
		rec.AddAttributes(otellog.String("reason", event.Reason))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
