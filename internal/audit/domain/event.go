package domain

import "time"

// Event is one audit trail entry. UserID is empty for events with no resolved
// user (e.g. failed login for an unknown email). Metadata carries event-specific
// detail and is stored as JSONB.
type Event struct {
	ID        string
	TS        time.Time
	UserID    string
	EventType string
	IP        string
	UserAgent string
	Metadata  map[string]any
}

// Event types written by the auth and admin flows.
const (
	EventRegister          = "user.register"
	EventLogin             = "user.login"
	EventRefresh           = "user.refresh"
	EventLogout            = "user.logout"
	EventSessionRevoked    = "session.revoked"
	EventSessionRevokedAll = "session.revoked_all"
	EventRoleAssigned      = "user.role.assigned"
	EventRoleRemoved       = "user.role.removed"
	EventUserDisabled      = "user.disabled"
	EventUserEnabled       = "user.enabled"
	EventPasswordChanged   = "user.password.changed"
)

// Severity levels carried in Metadata["severity"].
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Severity returns Metadata["severity"], or empty when unset.
func (e *Event) Severity() string {
	if e.Metadata == nil {
		return ""
	}
	s, _ := e.Metadata["severity"].(string)
	return s
}

// Alertworthy reports whether the event's severity warrants an operator alert.
func (e *Event) Alertworthy() bool {
	s := e.Severity()
	return s == SeverityMedium || s == SeverityHigh
}
