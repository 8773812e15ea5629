// Worker prunes expired refresh tokens, stale inactive sessions, and old
// login attempts on a fixed interval. Run one instance alongside the server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	attemptrepo "sentinel-auth/backend/internal/attempt/repository"
	"sentinel-auth/backend/internal/config"
	"sentinel-auth/backend/internal/db"
	refreshrepo "sentinel-auth/backend/internal/refresh/repository"
	sessionrepo "sentinel-auth/backend/internal/session/repository"
)

const (
	sweepInterval = time.Hour
	// Revoked and expired refresh rows are kept for a day so replay attempts
	// still resolve to "revoked" during investigations.
	tokenGrace = 24 * time.Hour
	// Inactive sessions and login attempts age out with their audit value.
	sessionRetention = 30 * 24 * time.Hour
	attemptRetention = 90 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	tokens := refreshrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)
	attempts := attemptrepo.NewPostgresRepository(pool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: sweeping every %s", sweepInterval)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	sweep(ctx, tokens, sessions, attempts)
	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
			sweep(ctx, tokens, sessions, attempts)
		}
	}
}

func sweep(ctx context.Context, tokens *refreshrepo.PostgresRepository, sessions *sessionrepo.PostgresRepository, attempts *attemptrepo.PostgresRepository) {
	now := time.Now().UTC()
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if n, err := tokens.PurgeExpired(sweepCtx, now.Add(-tokenGrace)); err != nil {
		log.Printf("worker: purge refresh tokens: %v", err)
	} else if n > 0 {
		log.Printf("worker: purged %d expired refresh tokens", n)
	}

	if n, err := sessions.PurgeInactive(sweepCtx, now.Add(-sessionRetention)); err != nil {
		log.Printf("worker: purge sessions: %v", err)
	} else if n > 0 {
		log.Printf("worker: purged %d stale sessions", n)
	}

	if n, err := attempts.PurgeBefore(sweepCtx, now.Add(-attemptRetention)); err != nil {
		log.Printf("worker: purge login attempts: %v", err)
	} else if n > 0 {
		log.Printf("worker: purged %d old login attempts", n)
	}
}
