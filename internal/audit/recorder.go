package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"sentinel-auth/backend/internal/audit/domain"
	auditrepo "sentinel-auth/backend/internal/audit/repository"
)

// dispatchTimeout bounds each async alert or stream dispatch started by Record.
const dispatchTimeout = 5 * time.Second

// Notifier delivers an operator alert. Best-effort; implementations log and
// swallow delivery failures.
type Notifier interface {
	Notify(ctx context.Context, subject, message string, metadata map[string]any)
}

// Emitter streams audit events to an external sink (e.g. Kafka).
type Emitter interface {
	Emit(ctx context.Context, e *domain.Event) error
}

// Recorder persists audit events and dispatches the side channels: an alert
// for medium/high severity events and a copy onto the audit stream.
// Record is best-effort; failures are logged and never surface to the caller.
type Recorder struct {
	repo     auditrepo.Repository
	notifier Notifier
	emitter  Emitter
}

// NewRecorder returns a Recorder. notifier and emitter may be nil to disable
// the respective side channel.
func NewRecorder(repo auditrepo.Repository, notifier Notifier, emitter Emitter) *Recorder {
	return &Recorder{repo: repo, notifier: notifier, emitter: emitter}
}

// Record writes one audit event. ID and TS are assigned here when unset.
// Alert and stream dispatch run in background goroutines on their own
// timeouts, so request cancellation does not abort them.
func (r *Recorder) Record(ctx context.Context, e *domain.Event) {
	if r == nil || e == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}

	if r.repo != nil {
		if err := r.repo.Create(ctx, e); err != nil {
			log.Printf("audit: failed to record event %s: %v", e.EventType, err)
		}
	}

	if r.emitter != nil {
		go func() {
			emitCtx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			defer cancel()
			if err := r.emitter.Emit(emitCtx, e); err != nil {
				log.Printf("audit: stream emit failed for %s: %v", e.EventType, err)
			}
		}()
	}

	if r.notifier != nil && e.Alertworthy() {
		subject := "SentinelAuth alert: " + e.EventType
		message := "Security event detected"
		if reason, ok := e.Metadata["reason"].(string); ok && reason != "" {
			message = reason
		}
		log.Printf("audit: triggering alert for %s severity %s", e.EventType, e.Severity())
		go func() {
			notifyCtx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			defer cancel()
			r.notifier.Notify(notifyCtx, subject, message, e.Metadata)
		}()
	}
}
