// seed provisions the default roles and the bootstrap admin account from
// SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD. Idempotent: an existing admin user
// is left untouched.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"sentinel-auth/backend/internal/config"
	"sentinel-auth/backend/internal/db"
	"sentinel-auth/backend/internal/security"
	userdomain "sentinel-auth/backend/internal/user/domain"
	userrepo "sentinel-auth/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}
	if err := userdomain.ValidateEmail(cfg.SeedAdminEmail); err != nil {
		log.Fatalf("seed admin email: %v", err)
	}
	if err := userdomain.ValidatePassword(cfg.SeedAdminPassword); err != nil {
		log.Fatalf("seed admin password: %v", err)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	repo := userrepo.NewPostgresRepository(pool)
	ctx := context.Background()

	for _, role := range []string{userdomain.RoleUser, userdomain.RoleAdmin} {
		if _, err := repo.EnsureRole(ctx, role); err != nil {
			log.Fatalf("ensure role %s: %v", role, err)
		}
	}

	existing, err := repo.GetByEmail(ctx, cfg.SeedAdminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("seed already applied (%s exists), skipping", cfg.SeedAdminEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash(cfg.SeedAdminPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	admin := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        cfg.SeedAdminEmail,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, admin); err != nil {
		log.Fatalf("create admin user: %v", err)
	}
	for _, role := range []string{userdomain.RoleUser, userdomain.RoleAdmin} {
		if err := repo.AssignRole(ctx, admin.ID, role); err != nil {
			log.Fatalf("assign role %s: %v", role, err)
		}
	}

	log.Printf("seed completed: admin %s created", cfg.SeedAdminEmail)
}
