package domain

import "time"

// Session is one device's authenticated presence for a user. A session is
// opened on login and deactivated on logout or administrative revocation;
// rows are kept for audit until purged.
type Session struct {
	ID                string
	UserID            string
	CreatedAt         time.Time
	LastSeenAt        time.Time
	IP                string
	UserAgent         string
	DeviceFingerprint string
	Active            bool
}
