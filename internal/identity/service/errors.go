package service

import "errors"

// Sentinel errors for the auth service; the transport layer maps them to
// status codes. Credential and token failures are deliberately uninformative
// so responses never reveal whether an email or token id exists.
var (
	// ErrValidation covers malformed input (400).
	ErrValidation = errors.New("invalid request")
	// ErrDuplicateEmail is returned when registering an email that exists (400).
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned for unknown email or wrong password alike (401).
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, expired, revoked, and reused tokens alike (401).
	ErrInvalidToken = errors.New("refresh token invalid or revoked")
	// ErrAccountDisabled is returned for valid credentials on a deactivated account (403).
	ErrAccountDisabled = errors.New("account disabled")
	// ErrRateLimited is returned when an admission bucket is empty (429).
	ErrRateLimited = errors.New("too many requests")
	// ErrPersistence is returned when a durable write cannot be completed (503).
	ErrPersistence = errors.New("persistence failure")
	// ErrServiceUnavailable is returned in strict mode when a dependency is down (503).
	ErrServiceUnavailable = errors.New("service unavailable")
)
