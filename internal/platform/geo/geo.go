// Package geo resolves client IPs to a coarse location for anomaly metadata.
package geo

import "net"

// Location is a coarse origin description for an IP.
type Location struct {
	Country string
	City    string
	Private bool
}

// Resolver maps an IP to a Location. The default implementation classifies
// private and loopback ranges only; a real provider can replace it behind the
// same interface.
type Resolver interface {
	Lookup(ip string) Location
}

type noopResolver struct{}

// NewResolver returns the built-in resolver.
func NewResolver() Resolver {
	return noopResolver{}
}

func (noopResolver) Lookup(ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}
	}
	if parsed.IsLoopback() || parsed.IsPrivate() {
		return Location{Private: true}
	}
	return Location{}
}
