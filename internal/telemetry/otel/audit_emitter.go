package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"sentinel-auth/backend/internal/audit"
	auditdomain "sentinel-auth/backend/internal/audit/domain"
)

// logSink is the subset of otellog.Logger the emitter needs; it lets tests
// capture records without a provider.
type logSink interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewAuditEmitter returns an audit.Emitter that sends security events as OTel
// log records via the given LoggerProvider. If provider is nil, a no-op
// emitter is returned.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.Emitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &auditEmitter{logger: provider.Logger("sentinelauth.audit")}
}

// NewAuditEmitterWithLogger wires the emitter to an explicit sink.
func NewAuditEmitterWithLogger(logger logSink) audit.Emitter {
	return &auditEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *auditdomain.Event) error { return nil }

type auditEmitter struct {
	logger logSink
}

// Emit converts the audit event to an OTel log record. Best-effort; the only
// possible error is metadata that fails to marshal, which is dropped rather
// than blocking the event.
func (e *auditEmitter) Emit(ctx context.Context, event *auditdomain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.TS.IsZero() {
		rec.SetTimestamp(event.TS)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if len(event.Metadata) > 0 {
		if body, err := json.Marshal(event.Metadata); err == nil {
			rec.SetBody(otellog.BytesValue(body))
		}
	}
	if event.ID != "" {
		rec.AddAttributes(otellog.String("event_id", event.ID))
	}
	if event.EventType != "" {
		rec.AddAttributes(otellog.String("event_type", event.EventType))
	}
	if event.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", event.UserID))
	}
	if event.IP != "" {
		rec.AddAttributes(otellog.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		rec.AddAttributes(otellog.String("user_agent", event.UserAgent))
	}
	if sev := event.Severity(); sev != "" {
		rec.AddAttributes(otellog.String("severity", sev))
		switch sev {
		case auditdomain.SeverityHigh:
			rec.SetSeverity(otellog.SeverityWarn)
		case auditdomain.SeverityMedium:
			rec.SetSeverity(otellog.SeverityInfo)
		default:
			rec.SetSeverity(otellog.SeverityDebug)
		}
	}
	e.logger.Emit(ctx, rec)
	return nil
}
