// Server wires the credential authority: Postgres, the optional Redis tier,
// alerting, the audit pipeline, telemetry, and the auth services. The health
// endpoint is the only HTTP surface; the auth API transport is mounted by the
// deployment around AuthService.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"sentinel-auth/backend/internal/alert"
	attemptrepo "sentinel-auth/backend/internal/attempt/repository"
	"sentinel-auth/backend/internal/audit"
	auditrepo "sentinel-auth/backend/internal/audit/repository"
	"sentinel-auth/backend/internal/audit/stream"
	"sentinel-auth/backend/internal/cache"
	"sentinel-auth/backend/internal/config"
	"sentinel-auth/backend/internal/db"
	"sentinel-auth/backend/internal/health"
	identsvc "sentinel-auth/backend/internal/identity/service"
	"sentinel-auth/backend/internal/ratelimit"
	refreshrepo "sentinel-auth/backend/internal/refresh/repository"
	"sentinel-auth/backend/internal/security"
	sessionrepo "sentinel-auth/backend/internal/session/repository"
	sessionsvc "sentinel-auth/backend/internal/session/service"
	"sentinel-auth/backend/internal/telemetry/otel"
	userrepo "sentinel-auth/backend/internal/user/repository"
	usersvc "sentinel-auth/backend/internal/user/service"
)

// services is the composed service graph. The deployment mounts its transport
// over these; the binary itself serves only the health endpoint.
var services struct {
	auth     *identsvc.AuthService
	sessions *sessionsvc.SessionService
	users    *usersvc.UserService
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	redisClient, err := cache.Open(cfg.RedisURL)
	if err != nil {
		if cfg.RedisRequired() && !cfg.DevRelaxedMode {
			log.Fatalf("redis: %v", err)
		}
		log.Printf("redis unavailable, continuing without cache tier: %v", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "sentinel-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	codec := security.NewTokenCodec(cfg.SecretKey, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	var scripter redis.Scripter
	if redisClient != nil {
		scripter = redisClient
	}
	limiter := ratelimit.New(scripter, cfg.DevRelaxedMode)

	var refreshCache identsvc.RefreshCache
	refreshMirror := cache.NewRefreshCache(redisClient)
	if refreshMirror != nil {
		refreshCache = refreshMirror
	}

	recorder := audit.NewRecorder(
		auditrepo.NewPostgresRepository(pool),
		buildNotifier(cfg),
		buildEmitters(cfg, providers),
	)

	var metrics identsvc.Metrics
	if m := otel.NewAuthMetrics(providers.MeterProvider); m != nil {
		metrics = m
	}

	stores := newStores(pool)
	inTx := func(ctx context.Context, fn func(identsvc.Stores) error) error {
		return db.WithTx(ctx, pool, func(tx *sql.Tx) error {
			return fn(newStores(tx))
		})
	}

	authSvc := identsvc.NewAuthService(stores, inTx, codec, hasher, refreshCache, limiter, recorder, metrics, identsvc.Config{
		RedisRequired:    cfg.RedisRequired(),
		Relaxed:          cfg.DevRelaxedMode,
		RegisterCapacity: cfg.RegisterRateCapacity,
		RegisterPeriod:   time.Duration(cfg.RegisterRatePeriodSec) * time.Second,
		LoginCapacity:    cfg.LoginRateCapacity,
		LoginPeriod:      time.Duration(cfg.LoginRatePeriodSec) * time.Second,
	})
	services.auth = authSvc
	services.sessions = sessionsvc.NewSessionService(sessionrepo.NewPostgresRepository(pool), recorder)
	services.users = usersvc.NewUserService(userrepo.NewPostgresRepository(pool), hasher, recorder)

	checker := health.NewChecker(pool, refreshMirror)
	mux := http.NewServeMux()
	mux.Handle("/healthz", checker.Handler())
	healthSrv := &http.Server{Addr: cfg.HealthAddr, Handler: mux}
	go func() {
		log.Printf("health endpoint listening on %s", cfg.HealthAddr)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("health listener: %v", err)
		}
	}()

	log.Printf("sentinel-auth ready (env=%s, persistence=%s, relaxed=%t)",
		cfg.Env, cfg.RefreshPersistence, cfg.DevRelaxedMode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("health shutdown: %v", err)
	}
	log.Println("stopped")
}

// newStores binds the auth repositories to a pool or transaction.
func newStores(q db.Querier) identsvc.Stores {
	return identsvc.Stores{
		Users:    userrepo.NewPostgresRepository(q),
		Tokens:   refreshrepo.NewPostgresRepository(q),
		Sessions: sessionrepo.NewPostgresRepository(q),
		Attempts: attemptrepo.NewPostgresRepository(q),
	}
}

// buildNotifier assembles the alert dispatcher from the configured channels.
// Returns nil (alerts disabled) when no channel is usable.
func buildNotifier(cfg *config.Config) audit.Notifier {
	var channels []alert.Channel
	for _, name := range cfg.AlertChannelList() {
		switch name {
		case "slack":
			if ch := alert.NewSlackChannel(cfg.SlackWebhookURL); ch != nil {
				channels = append(channels, ch)
			} else {
				log.Printf("alert: slack channel enabled but SLACK_WEBHOOK_URL is empty")
			}
		case "email":
			if ch := alert.NewEmailChannel(cfg.ResendAPIKey, cfg.AlertEmailFrom, cfg.AlertEmailTo); ch != nil {
				channels = append(channels, ch)
			} else {
				log.Printf("alert: email channel enabled but resend config is incomplete")
			}
		default:
			log.Printf("alert: unknown channel %q ignored", name)
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return alert.NewDispatcher(channels...)
}

// buildEmitters combines the Kafka stream and the OTel log emitter.
func buildEmitters(cfg *config.Config, providers *otel.Providers) audit.Emitter {
	var emitters []audit.Emitter
	if ke := stream.NewKafkaEmitter(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic); ke != nil {
		emitters = append(emitters, ke)
	}
	if cfg.OTLPEndpoint != "" {
		emitters = append(emitters, otel.NewAuditEmitter(providers.LoggerProvider))
	}
	return audit.CombineEmitters(emitters...)
}
