package domain

import "time"

// LoginAttempt is one row of the append-only login ledger, recorded for every
// login regardless of outcome. Email is recorded even when no such user exists.
type LoginAttempt struct {
	ID        string
	TS        time.Time
	Email     string
	IP        string
	UserAgent string
	Success   bool
}
