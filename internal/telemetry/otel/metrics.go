package otel

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// AuthMetrics counts token issuance outcomes. It satisfies the auth service's
// metrics surface; counters are no-ops when built from a no-op MeterProvider.
type AuthMetrics struct {
	issued   otelmetric.Int64Counter
	rejected otelmetric.Int64Counter
	fallback otelmetric.Int64Counter
}

// NewAuthMetrics registers the auth counters on the given MeterProvider.
// A nil provider returns nil, which callers treat as metrics disabled.
func NewAuthMetrics(provider otelmetric.MeterProvider) *AuthMetrics {
	if provider == nil {
		return nil
	}
	meter := provider.Meter("sentinelauth.auth")

	issued, err := meter.Int64Counter("auth.tokens.issued",
		otelmetric.WithDescription("Token pairs issued, by triggering event"))
	if err != nil {
		log.Printf("telemetry: register issued counter: %v", err)
		return nil
	}
	rejected, err := meter.Int64Counter("auth.requests.rejected",
		otelmetric.WithDescription("Auth requests rejected, by reason"))
	if err != nil {
		log.Printf("telemetry: register rejected counter: %v", err)
		return nil
	}
	fallback, err := meter.Int64Counter("auth.fallback.issued",
		otelmetric.WithDescription("Degraded access-only issuances"))
	if err != nil {
		log.Printf("telemetry: register fallback counter: %v", err)
		return nil
	}
	return &AuthMetrics{issued: issued, rejected: rejected, fallback: fallback}
}

// Issued counts a successful token pair issuance for the given event.
func (m *AuthMetrics) Issued(ctx context.Context, event string) {
	m.issued.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("event", event)))
}

// Rejected counts a rejected auth request with its reason.
func (m *AuthMetrics) Rejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("reason", reason)))
}

// Fallback counts a degraded access-only issuance for the given event.
func (m *AuthMetrics) Fallback(ctx context.Context, event string) {
	m.fallback.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("event", event)))
}
