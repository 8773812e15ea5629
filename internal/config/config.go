// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RefreshPersistence selects where issued refresh tokens must be persisted.
const (
	// RefreshPersistenceDB keeps the durable Postgres row only.
	RefreshPersistenceDB = "db"
	// RefreshPersistenceRedis additionally requires the Redis mirror of each jti.
	RefreshPersistenceRedis = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment ("dev", "staging", "prod"). prod forces strict mode.
	Env string `mapstructure:"APP_ENV"`
	// HealthAddr is the address the health endpoint listens on (e.g. :8001).
	HealthAddr string `mapstructure:"HEALTH_ADDR"`

	// SecretKey signs access and refresh tokens (HS256). Min 16 characters.
	SecretKey string `mapstructure:"SECRET_KEY"`
	// AccessTokenTTLMin is the access token lifetime in minutes.
	AccessTokenTTLMin int `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	// RefreshTokenTTLDays is the refresh token lifetime in days.
	RefreshTokenTTLDays int `mapstructure:"REFRESH_TOKEN_TTL_DAYS"`

	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis connection URL; empty disables the cache tier.
	RedisURL string `mapstructure:"REDIS_URL"`

	// RefreshPersistence is "db" (durable row only) or "redis" (row + cache mirror required).
	RefreshPersistence string `mapstructure:"REFRESH_PERSISTENCE"`
	// DevRelaxedMode trades consistency for availability when a dependency is down.
	// Forced false when Env is "prod".
	DevRelaxedMode bool `mapstructure:"DEV_RELAXED_MODE"`

	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// AlertChannels is a comma-separated list of enabled alert channels ("slack", "email").
	AlertChannels string `mapstructure:"ALERT_CHANNELS"`
	// SlackWebhookURL receives slack alerts when the "slack" channel is enabled.
	SlackWebhookURL string `mapstructure:"SLACK_WEBHOOK_URL"`
	// ResendAPIKey authenticates the Resend client for email alerts.
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	// AlertEmailFrom is the sender address for email alerts.
	AlertEmailFrom string `mapstructure:"ALERT_EMAIL_FROM"`
	// AlertEmailTo is the recipient address for email alerts.
	AlertEmailTo string `mapstructure:"ALERT_EMAIL_TO"`

	// RegisterRateCapacity/RegisterRatePeriodSec bound registrations per caller bucket.
	RegisterRateCapacity  int `mapstructure:"REGISTER_RATE_CAPACITY"`
	RegisterRatePeriodSec int `mapstructure:"REGISTER_RATE_PERIOD_SEC"`
	// LoginRateCapacity/LoginRatePeriodSec bound login attempts per caller bucket.
	LoginRateCapacity  int `mapstructure:"LOGIN_RATE_CAPACITY"`
	LoginRatePeriodSec int `mapstructure:"LOGIN_RATE_PERIOD_SEC"`

	// SeedAdminEmail/SeedAdminPassword configure cmd/seed's idempotent admin account.
	SeedAdminEmail    string `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS for the OTLP exporter (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// AuditKafkaBrokers is a comma-separated Kafka broker list; empty disables the audit stream.
	AuditKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for streamed audit events.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HEALTH_ADDR", ":8001")
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 15)
	v.SetDefault("REFRESH_TOKEN_TTL_DAYS", 7)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REFRESH_PERSISTENCE", RefreshPersistenceDB)
	v.SetDefault("DEV_RELAXED_MODE", true)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ALERT_CHANNELS", "")
	v.SetDefault("REGISTER_RATE_CAPACITY", 3)
	v.SetDefault("REGISTER_RATE_PERIOD_SEC", 60)
	v.SetDefault("LOGIN_RATE_CAPACITY", 5)
	v.SetDefault("LOGIN_RATE_PERIOD_SEC", 60)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "sentinel-audit")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.SecretKey) < 16 {
		return nil, errors.New("config: SECRET_KEY must be at least 16 characters")
	}
	if cfg.AccessTokenTTLMin <= 0 {
		return nil, errors.New("config: ACCESS_TOKEN_TTL_MIN must be positive")
	}
	if cfg.RefreshTokenTTLDays <= 0 {
		return nil, errors.New("config: REFRESH_TOKEN_TTL_DAYS must be positive")
	}

	cfg.RefreshPersistence = strings.ToLower(strings.TrimSpace(cfg.RefreshPersistence))
	switch cfg.RefreshPersistence {
	case "":
		cfg.RefreshPersistence = RefreshPersistenceDB
	case RefreshPersistenceDB, RefreshPersistenceRedis:
	default:
		return nil, fmt.Errorf("config: REFRESH_PERSISTENCE must be %q or %q", RefreshPersistenceDB, RefreshPersistenceRedis)
	}

	// Relaxed mode must never survive into production deployments.
	if strings.EqualFold(cfg.Env, "prod") {
		cfg.DevRelaxedMode = false
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL returns the access token lifetime as a duration.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

// RefreshTTL returns the refresh token lifetime as a duration.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// RedisRequired reports whether refresh issuance must mirror jtis into Redis.
func (c *Config) RedisRequired() bool {
	return c.RefreshPersistence == RefreshPersistenceRedis
}

// AlertChannelList returns the enabled alert channels from the comma-separated config.
func (c *Config) AlertChannelList() []string {
	if c == nil || c.AlertChannels == "" {
		return nil
	}
	parts := strings.Split(c.AlertChannels, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(strings.ToLower(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AuditKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the audit stream is enabled (non-empty list) and to create the producer.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
