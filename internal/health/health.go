// Package health reports dependency status for readiness probes. The report
// covers the database and, when configured, the refresh cache.
package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// checkTimeout bounds each dependency probe.
const checkTimeout = 2 * time.Second

// Pinger is the database liveness surface (satisfied by *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger is the cache liveness surface (satisfied by *cache.RefreshCache).
type CachePinger interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// Snapshot is one point-in-time dependency report.
type Snapshot struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Healthy reports whether every checked dependency passed.
func (s Snapshot) Healthy() bool { return s.Status == "ok" }

// Checker probes the service's dependencies.
type Checker struct {
	db    Pinger
	cache CachePinger
}

// NewChecker returns a Checker. db and cache may be nil; nil or disabled
// dependencies are skipped rather than reported unhealthy.
func NewChecker(db Pinger, cache CachePinger) *Checker {
	return &Checker{db: db, cache: cache}
}

// Check probes each dependency with a bounded timeout.
func (c *Checker) Check(ctx context.Context) Snapshot {
	snap := Snapshot{Status: "ok", Checks: make(map[string]string)}

	if c.db != nil {
		probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		if err := c.db.PingContext(probeCtx); err != nil {
			snap.Checks["database"] = err.Error()
			snap.Status = "degraded"
		} else {
			snap.Checks["database"] = "ok"
		}
		cancel()
	}

	if c.cache != nil && c.cache.Enabled() {
		probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		if err := c.cache.Ping(probeCtx); err != nil {
			snap.Checks["cache"] = err.Error()
			snap.Status = "degraded"
		} else {
			snap.Checks["cache"] = "ok"
		}
		cancel()
	}

	return snap
}

// Handler serves the snapshot as JSON; 200 when healthy, 503 when degraded.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := c.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !snap.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Printf("health: encode snapshot: %v", err)
		}
	})
}
