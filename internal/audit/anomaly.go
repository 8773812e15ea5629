// Package audit records security events, scores login anomalies, and fans
// alertworthy events out to the alert channels and the audit stream.
package audit

import (
	"fmt"
	"strings"

	"sentinel-auth/backend/internal/audit/domain"
)

// SuspiciousLoginResult is the outcome of comparing a login's origin against
// the user's previous one.
type SuspiciousLoginResult struct {
	Severity string
	Reason   string
}

// Alertworthy reports whether the result should trigger an operator alert.
func (r SuspiciousLoginResult) Alertworthy() bool {
	return r.Severity == domain.SeverityMedium || r.Severity == domain.SeverityHigh
}

// SuspiciousLoginCheck scores a login against the previous successful one.
// One changed signal (IP or user agent) is medium, both changed is high,
// nothing changed (or no history) is low. Empty values never count as a change.
func SuspiciousLoginCheck(previousIP, previousUA, newIP, newUA string) SuspiciousLoginResult {
	var reasons []string
	if previousIP != "" && newIP != "" && previousIP != newIP {
		reasons = append(reasons, fmt.Sprintf("IP changed from %s to %s", previousIP, newIP))
	}
	if previousUA != "" && newUA != "" && previousUA != newUA {
		reasons = append(reasons, "User agent changed")
	}
	if len(reasons) == 0 {
		return SuspiciousLoginResult{Severity: domain.SeverityLow}
	}
	severity := domain.SeverityMedium
	if len(reasons) > 1 {
		severity = domain.SeverityHigh
	}
	return SuspiciousLoginResult{Severity: severity, Reason: strings.Join(reasons, "; ")}
}
