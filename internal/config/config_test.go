package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SECRET_KEY", "a-test-secret-key-16+")
	t.Setenv("DATABASE_URL", "postgres://localhost/sentinel_test")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Errorf("Env = %q, want dev", cfg.Env)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 7*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.RefreshTTL())
	}
	if cfg.RefreshPersistence != RefreshPersistenceDB {
		t.Errorf("RefreshPersistence = %q, want db", cfg.RefreshPersistence)
	}
	if !cfg.DevRelaxedMode {
		t.Error("DevRelaxedMode should default to true outside prod")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.RegisterRateCapacity != 3 || cfg.RegisterRatePeriodSec != 60 {
		t.Errorf("register rate = %d/%ds, want 3/60s", cfg.RegisterRateCapacity, cfg.RegisterRatePeriodSec)
	}
	if cfg.LoginRateCapacity != 5 || cfg.LoginRatePeriodSec != 60 {
		t.Errorf("login rate = %d/%ds, want 5/60s", cfg.LoginRateCapacity, cfg.LoginRatePeriodSec)
	}
}

func TestLoad_ShortSecretRejected(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SECRET_KEY", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("secret shorter than 16 chars must be rejected")
	}
}

func TestLoad_ProdForcesStrictMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DEV_RELAXED_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DevRelaxedMode {
		t.Error("prod must force relaxed mode off")
	}
}

func TestLoad_InvalidPersistenceMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("REFRESH_PERSISTENCE", "memcached")

	if _, err := Load(); err == nil {
		t.Fatal("unknown persistence mode must be rejected")
	}
}

func TestLoad_RedisRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("REFRESH_PERSISTENCE", "redis")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.RedisRequired() {
		t.Error("RedisRequired should be true in redis persistence mode")
	}
}

func TestLoad_InvalidTTLsRejected(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "0")
	if _, err := Load(); err == nil {
		t.Fatal("zero access TTL must be rejected")
	}

	setBaseEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("negative refresh TTL must be rejected")
	}
}

func TestAlertChannelList(t *testing.T) {
	cfg := &Config{AlertChannels: "Slack, email ,"}
	got := cfg.AlertChannelList()
	if len(got) != 2 || got[0] != "slack" || got[1] != "email" {
		t.Errorf("AlertChannelList = %v, want [slack email]", got)
	}

	empty := &Config{}
	if empty.AlertChannelList() != nil {
		t.Error("empty channel config should return nil")
	}
}

func TestAuditKafkaBrokersList(t *testing.T) {
	cfg := &Config{AuditKafkaBrokers: "broker1:9092, broker2:9092"}
	got := cfg.AuditKafkaBrokersList()
	if len(got) != 2 || got[0] != "broker1:9092" || got[1] != "broker2:9092" {
		t.Errorf("AuditKafkaBrokersList = %v", got)
	}
}
