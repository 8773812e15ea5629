package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns a deterministic device fingerprint for a session: the
// SHA-256 hash of IP, user-agent, and the optional client-supplied device id.
// Empty components are normalized so the hash is stable for repeat visitors.
func Fingerprint(ip, userAgent, deviceID string) string {
	if ip == "" {
		ip = "unknown"
	}
	if userAgent == "" {
		userAgent = "unknown"
	}
	if deviceID == "" {
		deviceID = "na"
	}
	h := sha256.Sum256([]byte(strings.Join([]string{ip, userAgent, deviceID}, "|")))
	return hex.EncodeToString(h[:])
}
