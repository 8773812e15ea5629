// Package service implements the authentication orchestrator: register,
// login, refresh rotation with replay defense, logout, and the degraded-mode
// policy for cache or store outages.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	attemptdomain "sentinel-auth/backend/internal/attempt/domain"
	"sentinel-auth/backend/internal/audit"
	auditdomain "sentinel-auth/backend/internal/audit/domain"
	"sentinel-auth/backend/internal/ratelimit"
	refreshdomain "sentinel-auth/backend/internal/refresh/domain"
	"sentinel-auth/backend/internal/security"
	sessiondomain "sentinel-auth/backend/internal/session/domain"
	userdomain "sentinel-auth/backend/internal/user/domain"
)

// FallbackRefreshWarning marks responses issued through the access-only
// degraded path so clients can detect it and retry for a full rotation later.
const FallbackRefreshWarning = "DEV relaxed: refresh store unavailable, rotation skipped"

// fallbackAccessTTL is the lifetime of degraded-mode access tokens, shorter
// than the normal access TTL.
const fallbackAccessTTL = 5 * time.Minute

// secondaryWindow is the period of the per-email (register) and per-email+ip
// (login) admission buckets.
const secondaryWindow = 5 * time.Minute

// TokenPair is the response of every issuing operation. Warning is non-empty
// only on degraded-mode responses.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	ExpiresIn        int
	RefreshExpiresIn int
	Warning          string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	AssignRole(ctx context.Context, userID, roleName string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time, ip, userAgent string) error
}

// RefreshRepo is the minimal refresh token repository needed by the auth service.
type RefreshRepo interface {
	Create(ctx context.Context, t *refreshdomain.Token) error
	GetByJTI(ctx context.Context, jti string) (*refreshdomain.Token, error)
	Revoke(ctx context.Context, jti string, at time.Time) (bool, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	DeactivateLatestByUser(ctx context.Context, userID string) (bool, error)
}

// AttemptRepo is the minimal login attempt repository needed by the auth service.
type AttemptRepo interface {
	Create(ctx context.Context, a *attemptdomain.LoginAttempt) error
}

// Stores bundles the repositories the auth flows touch.
type Stores struct {
	Users    UserRepo
	Tokens   RefreshRepo
	Sessions SessionRepo
	Attempts AttemptRepo
}

// TxRunner runs fn with stores bound to one transaction; a returned error
// rolls every write back.
type TxRunner func(ctx context.Context, fn func(Stores) error) error

// Limiter is the admission control surface used by the auth service.
type Limiter interface {
	Consume(ctx context.Context, key string, capacity int, period time.Duration) (float64, error)
}

// RefreshCache is the fast-path mirror of issued refresh jtis.
type RefreshCache interface {
	Enabled() bool
	Mirror(ctx context.Context, jti, userID string, ttl time.Duration) error
	IsCached(ctx context.Context, jti string) (bool, error)
	Evict(ctx context.Context, jti string) error
}

// Recorder receives the audit events the auth flows emit.
type Recorder interface {
	Record(ctx context.Context, e *auditdomain.Event)
}

// Metrics counts auth flow outcomes. Implementations must be safe for concurrent use.
type Metrics interface {
	Issued(ctx context.Context, event string)
	Rejected(ctx context.Context, reason string)
	Fallback(ctx context.Context, event string)
}

// Config carries the orchestrator's policy knobs.
type Config struct {
	// RedisRequired demands the cache mirror for every issued refresh token.
	RedisRequired bool
	// Relaxed trades consistency for availability when a dependency is down.
	// Must be false for anything reachable from the public internet.
	Relaxed bool

	RegisterCapacity int
	RegisterPeriod   time.Duration
	LoginCapacity    int
	LoginPeriod      time.Duration
}

// AuthService coordinates credentials, token issuance, rotation, and the
// audit side effects. It is safe for concurrent use.
type AuthService struct {
	stores   Stores
	inTx     TxRunner
	codec    *security.TokenCodec
	hasher   *security.Hasher
	cache    RefreshCache
	limiter  Limiter
	recorder Recorder
	metrics  Metrics
	cfg      Config
}

// NewAuthService returns an AuthService with the given dependencies.
// cache, limiter, recorder, and metrics may be nil to disable the concern.
func NewAuthService(
	stores Stores,
	inTx TxRunner,
	codec *security.TokenCodec,
	hasher *security.Hasher,
	cache RefreshCache,
	limiter Limiter,
	recorder Recorder,
	metrics Metrics,
	cfg Config,
) *AuthService {
	return &AuthService{
		stores:   stores,
		inTx:     inTx,
		codec:    codec,
		hasher:   hasher,
		cache:    cache,
		limiter:  limiter,
		recorder: recorder,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// Register creates a user with the default role and issues the first token
// pair. The user row, refresh record, and session are committed atomically;
// any persistence failure leaves nothing behind.
func (s *AuthService) Register(ctx context.Context, email, password, deviceFingerprint, ip, userAgent string) (*userdomain.User, *TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if err := s.allow(ctx, "rl:register:ip:"+clientKey(ip), s.cfg.RegisterCapacity, s.cfg.RegisterPeriod); err != nil {
		return nil, nil, err
	}
	if err := s.allow(ctx, "rl:register:email:"+email, s.cfg.RegisterCapacity, secondaryWindow); err != nil {
		return nil, nil, err
	}

	if err := userdomain.ValidateEmail(email); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := userdomain.ValidatePassword(password); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var (
		user *userdomain.User
		pair *TokenPair
	)
	err = s.inTx(ctx, func(st Stores) error {
		existing, err := st.Users.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if existing != nil {
			return ErrDuplicateEmail
		}

		now := time.Now().UTC()
		user = &userdomain.User{
			ID:           uuid.New().String(),
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := st.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("%w: create user: %v", ErrPersistence, err)
		}
		if err := st.Users.AssignRole(ctx, user.ID, userdomain.RoleUser); err != nil {
			return fmt.Errorf("%w: assign default role: %v", ErrPersistence, err)
		}
		user.Roles = []string{userdomain.RoleUser}

		pair, err = s.issueAndPersist(ctx, st, user, ip, userAgent, deviceFingerprint, auditdomain.EventRegister)
		return err
	})
	if err != nil {
		return nil, nil, s.translate(err)
	}
	return user, pair, nil
}

// Login verifies credentials and issues a token pair. Unknown email and wrong
// password fail identically so responses never confirm an account exists.
// Every attempt is appended to the login ledger.
func (s *AuthService) Login(ctx context.Context, email, password, deviceFingerprint, ip, userAgent string) (*userdomain.User, *TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if err := s.allow(ctx, "rl:login:ip:"+clientKey(ip), s.cfg.LoginCapacity, s.cfg.LoginPeriod); err != nil {
		return nil, nil, err
	}
	if err := s.allow(ctx, "rl:login:email:"+email+":"+clientKey(ip), s.cfg.LoginCapacity, secondaryWindow); err != nil {
		return nil, nil, err
	}

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		s.recordAttempt(ctx, email, ip, userAgent, false)
		if s.metrics != nil {
			s.metrics.Rejected(ctx, "invalid_credentials")
		}
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	var pair *TokenPair
	err = s.inTx(ctx, func(st Stores) error {
		if err := st.Attempts.Create(ctx, newAttempt(email, ip, userAgent, true)); err != nil {
			return fmt.Errorf("%w: record login attempt: %v", ErrPersistence, err)
		}
		var err error
		pair, err = s.issueAndPersist(ctx, st, user, ip, userAgent, deviceFingerprint, auditdomain.EventLogin)
		return err
	})
	if err != nil {
		return nil, nil, s.translate(err)
	}
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued in one transaction. A reused or raced token id loses the
// atomic revoke and fails with ErrInvalidToken; in relaxed mode a durable
// store outage degrades into an access-only issuance instead of failing.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ip, userAgent string) (*userdomain.User, *TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	if err := security.EnsureType(claims, security.TokenTypeRefresh); err != nil {
		return nil, nil, ErrInvalidToken
	}
	jti, userID := claims.ID, claims.Subject
	if jti == "" || userID == "" {
		return nil, nil, ErrInvalidToken
	}

	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if user == nil || !user.IsActive {
		return nil, nil, ErrInvalidToken
	}

	didFallback := false
	if s.cfg.RedisRequired {
		if !s.cacheEnabled() {
			if !s.cfg.Relaxed {
				return nil, nil, ErrServiceUnavailable
			}
			log.Printf("auth: refresh cache unavailable, continuing with durable lookup")
		} else if hit, err := s.cache.IsCached(ctx, jti); err != nil {
			if !s.cfg.Relaxed {
				return nil, nil, ErrServiceUnavailable
			}
			log.Printf("auth: cache validation failed for refresh %s: %v", jti, err)
			didFallback = true
		} else if hit {
			log.Printf("auth: refresh %s validated via cache", jti)
		} else {
			log.Printf("auth: refresh %s cache miss, consulting database", jti)
		}
	}

	record, err := s.stores.Tokens.GetByJTI(ctx, jti)
	if err != nil {
		if s.cfg.Relaxed {
			log.Printf("auth: durable lookup failed for refresh %s, issuing access-only fallback: %v", jti, err)
			return s.fallbackAccessOnly(ctx, user, claims, refreshToken, ip, userAgent)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	now := time.Now().UTC()
	if record == nil || record.UserID != user.ID || record.Revoked() || record.Expired(now) {
		if s.metrics != nil {
			s.metrics.Rejected(ctx, "invalid_refresh")
		}
		return nil, nil, ErrInvalidToken
	}

	var pair *TokenPair
	err = s.inTx(ctx, func(st Stores) error {
		revoked, err := st.Tokens.Revoke(ctx, jti, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("%w: revoke refresh token: %v", ErrPersistence, err)
		}
		if !revoked {
			// A concurrent rotation of the same token committed first.
			return ErrInvalidToken
		}
		pair, err = s.issueAndPersist(ctx, st, user, ip, userAgent, "", auditdomain.EventRefresh)
		if err != nil {
			return err
		}
		if s.cfg.RedisRequired && s.cacheEnabled() {
			if err := s.cache.Evict(ctx, jti); err != nil {
				if !s.cfg.Relaxed {
					return fmt.Errorf("%w: evict rotated refresh token: %v", ErrPersistence, err)
				}
				log.Printf("auth: failed to evict cached refresh %s: %v", jti, err)
				didFallback = true
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			if s.metrics != nil {
				s.metrics.Rejected(ctx, "refresh_race_lost")
			}
			return nil, nil, ErrInvalidToken
		}
		if errors.Is(err, ErrPersistence) && s.cfg.Relaxed {
			log.Printf("auth: rotation persistence failed for refresh %s, issuing access-only fallback: %v", jti, err)
			return s.fallbackAccessOnly(ctx, user, claims, refreshToken, ip, userAgent)
		}
		return nil, nil, s.translate(err)
	}
	if didFallback && pair.Warning == "" {
		pair.Warning = FallbackRefreshWarning
	}
	return user, pair, nil
}

// Logout revokes the presented refresh token and deactivates the user's most
// recent session. Logout is idempotent: an already-revoked or unknown token
// id is not an error as long as the token itself verifies.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	if err := security.EnsureType(claims, security.TokenTypeRefresh); err != nil {
		return ErrInvalidToken
	}
	jti, userID := claims.ID, claims.Subject
	if jti == "" || userID == "" {
		return ErrInvalidToken
	}

	if s.cfg.RedisRequired && !s.cacheEnabled() && !s.cfg.Relaxed {
		return ErrServiceUnavailable
	}

	err = s.inTx(ctx, func(st Stores) error {
		if _, err := st.Tokens.Revoke(ctx, jti, time.Now().UTC()); err != nil {
			return fmt.Errorf("%w: revoke refresh token: %v", ErrPersistence, err)
		}
		if s.cfg.RedisRequired && s.cacheEnabled() {
			if err := s.cache.Evict(ctx, jti); err != nil {
				if !s.cfg.Relaxed {
					return fmt.Errorf("%w: evict refresh token: %v", ErrServiceUnavailable, err)
				}
				log.Printf("auth: failed to evict cached refresh %s during logout: %v", jti, err)
			}
		}
		if _, err := st.Sessions.DeactivateLatestByUser(ctx, userID); err != nil {
			return fmt.Errorf("%w: deactivate session: %v", ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return s.translate(err)
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, &auditdomain.Event{UserID: userID, EventType: auditdomain.EventLogout})
	}
	return nil
}

// Me resolves an access token to its user. Disabled accounts and missing
// users fail like any invalid token.
func (s *AuthService) Me(ctx context.Context, accessToken string) (*userdomain.User, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := security.EnsureType(claims, security.TokenTypeAccess); err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.stores.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// TwoFactorStatus reports the MFA rollout state for the user. Second-factor
// enrollment is not implemented yet; the method exists so clients can
// feature-detect.
func (s *AuthService) TwoFactorStatus(ctx context.Context, user *userdomain.User) map[string]string {
	return map[string]string{"status": "not-implemented"}
}

// issueAndPersist is the shared core of register, login, and rotation. It
// runs inside the caller's transaction: token pair generation, refresh record
// and session creation, last-login update, anomaly scoring, the optional
// cache mirror, and the audit event.
func (s *AuthService) issueAndPersist(ctx context.Context, st Stores, user *userdomain.User, ip, userAgent, deviceFingerprint, event string) (*TokenPair, error) {
	roles := user.Roles

	access, _, accessExp, err := s.codec.IssueAccess(user.ID, roles)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token: %v", ErrServiceUnavailable, err)
	}
	refreshTok, refreshJTI, refreshExp, err := s.codec.IssueRefresh(user.ID, roles)
	if err != nil {
		return nil, fmt.Errorf("%w: sign refresh token: %v", ErrServiceUnavailable, err)
	}
	issuedAt := time.Now().UTC()

	if err := st.Tokens.Create(ctx, &refreshdomain.Token{
		JTI:       refreshJTI,
		UserID:    user.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: refreshExp,
		IP:        ip,
		UserAgent: userAgent,
	}); err != nil {
		return nil, fmt.Errorf("%w: store refresh token: %v", ErrPersistence, err)
	}

	sess := &sessiondomain.Session{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		CreatedAt:         issuedAt,
		LastSeenAt:        issuedAt,
		IP:                ip,
		UserAgent:         userAgent,
		DeviceFingerprint: security.Fingerprint(ip, userAgent, deviceFingerprint),
		Active:            true,
	}
	if err := st.Sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: store session: %v", ErrPersistence, err)
	}

	prevIP, prevUA := user.LastLoginIP, user.LastLoginUA
	if err := st.Users.UpdateLastLogin(ctx, user.ID, issuedAt, ip, userAgent); err != nil {
		return nil, fmt.Errorf("%w: update last login: %v", ErrPersistence, err)
	}
	user.LastLoginAt = &issuedAt
	user.LastLoginIP = ip
	user.LastLoginUA = userAgent

	susp := audit.SuspiciousLoginCheck(prevIP, prevUA, ip, userAgent)
	metadata := map[string]any{
		"roles":       roles,
		"session_id":  sess.ID,
		"refresh_jti": refreshJTI,
		"severity":    susp.Severity,
		"reason":      susp.Reason,
		"fallback":    false,
	}

	if s.cfg.RedisRequired {
		if !s.cacheEnabled() {
			if !s.cfg.Relaxed {
				return nil, fmt.Errorf("%w: refresh cache required but unavailable", ErrPersistence)
			}
			log.Printf("auth: refresh cache unavailable, continuing with durable storage only")
		} else if err := s.cache.Mirror(ctx, refreshJTI, user.ID, time.Until(refreshExp)); err != nil {
			if !s.cfg.Relaxed {
				return nil, fmt.Errorf("%w: mirror refresh token: %v", ErrPersistence, err)
			}
			log.Printf("auth: failed to mirror refresh %s: %v", refreshJTI, err)
		}
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, &auditdomain.Event{
			UserID:    user.ID,
			EventType: event,
			IP:        ip,
			UserAgent: userAgent,
			Metadata:  metadata,
		})
	}
	if s.metrics != nil {
		s.metrics.Issued(ctx, event)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refreshTok,
		TokenType:        "bearer",
		ExpiresIn:        secondsUntil(accessExp, issuedAt),
		RefreshExpiresIn: secondsUntil(refreshExp, issuedAt),
	}, nil
}

// fallbackAccessOnly issues a short-lived access token without rotating the
// refresh chain. The presented refresh token is echoed back unchanged and the
// response carries FallbackRefreshWarning. Only reachable in relaxed mode.
func (s *AuthService) fallbackAccessOnly(ctx context.Context, user *userdomain.User, claims *security.Claims, refreshToken, ip, userAgent string) (*userdomain.User, *TokenPair, error) {
	roles := claims.Roles
	if len(roles) == 0 {
		roles = user.Roles
	}
	access, _, _, err := s.codec.IssueAccessWithTTL(user.ID, roles, fallbackAccessTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: sign fallback access token: %v", ErrServiceUnavailable, err)
	}
	issuedAt := time.Now().UTC()

	prevIP, prevUA := user.LastLoginIP, user.LastLoginUA
	// Best-effort; the durable store is already known to be degraded.
	if err := s.stores.Users.UpdateLastLogin(ctx, user.ID, issuedAt, ip, userAgent); err != nil {
		log.Printf("auth: failed to update last login during fallback: %v", err)
	}

	susp := audit.SuspiciousLoginCheck(prevIP, prevUA, ip, userAgent)
	reason := susp.Reason
	if reason == "" {
		reason = "Refresh persistence unavailable; fallback issued"
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, &auditdomain.Event{
			UserID:    user.ID,
			EventType: auditdomain.EventRefresh,
			IP:        ip,
			UserAgent: userAgent,
			Metadata: map[string]any{
				"roles":       roles,
				"session_id":  nil,
				"refresh_jti": nil,
				"severity":    susp.Severity,
				"reason":      reason,
				"fallback":    true,
			},
		})
	}
	if s.metrics != nil {
		s.metrics.Fallback(ctx, auditdomain.EventRefresh)
	}

	refreshExpiresIn := 0
	if claims.ExpiresAt != nil {
		if remaining := int(time.Until(claims.ExpiresAt.Time).Seconds()); remaining > 0 {
			refreshExpiresIn = remaining
		}
	}
	return user, &TokenPair{
		AccessToken:      access,
		RefreshToken:     refreshToken,
		TokenType:        "bearer",
		ExpiresIn:        int(fallbackAccessTTL.Seconds()),
		RefreshExpiresIn: refreshExpiresIn,
		Warning:          FallbackRefreshWarning,
	}, nil
}

func (s *AuthService) allow(ctx context.Context, key string, capacity int, period time.Duration) error {
	if s.limiter == nil || capacity <= 0 {
		return nil
	}
	_, err := s.limiter.Consume(ctx, key, capacity, period)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrRateLimited):
		if s.metrics != nil {
			s.metrics.Rejected(ctx, "rate_limited")
		}
		return ErrRateLimited
	case errors.Is(err, ratelimit.ErrUnavailable):
		return ErrServiceUnavailable
	default:
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
}

func (s *AuthService) recordAttempt(ctx context.Context, email, ip, userAgent string, success bool) {
	if err := s.stores.Attempts.Create(ctx, newAttempt(email, ip, userAgent, success)); err != nil {
		log.Printf("auth: failed to record login attempt for %s: %v", email, err)
	}
}

func (s *AuthService) cacheEnabled() bool {
	return s.cache != nil && s.cache.Enabled()
}

func (s *AuthService) translate(err error) error {
	for _, sentinel := range []error{
		ErrValidation, ErrDuplicateEmail, ErrInvalidCredentials, ErrInvalidToken,
		ErrAccountDisabled, ErrRateLimited, ErrPersistence, ErrServiceUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

func newAttempt(email, ip, userAgent string, success bool) *attemptdomain.LoginAttempt {
	return &attemptdomain.LoginAttempt{
		ID:        uuid.New().String(),
		TS:        time.Now().UTC(),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Success:   success,
	}
}

func clientKey(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}

func secondsUntil(t, from time.Time) int {
	secs := int(t.Sub(from).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}
