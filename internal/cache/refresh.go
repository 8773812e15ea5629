package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// opTimeout bounds each cache round trip. The cache sits on the token
// validation path, so a slow Redis must fail fast into the strict/relaxed
// branching rather than stall the request.
const opTimeout = 500 * time.Millisecond

// refreshKey is the key for a mirrored refresh jti; the value is the owning user id.
func refreshKey(jti string) string { return "refresh:" + jti }

// RefreshCache mirrors issued refresh jtis into Redis. The mirror is an
// accelerator only: the durable row stays authoritative, and callers treat a
// miss as "fall through to the database", never as "invalid".
type RefreshCache struct {
	client *redis.Client
}

// NewRefreshCache returns a RefreshCache over client, or nil when client is
// nil (cache tier disabled). All methods are safe on a nil receiver.
func NewRefreshCache(client *redis.Client) *RefreshCache {
	if client == nil {
		return nil
	}
	return &RefreshCache{client: client}
}

// Enabled reports whether the cache tier is configured.
func (c *RefreshCache) Enabled() bool { return c != nil && c.client != nil }

// Mirror stores the jti with the owning user id for ttl, matching the
// remaining refresh token lifetime.
func (c *RefreshCache) Mirror(ctx context.Context, jti, userID string, ttl time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.client.SetEx(opCtx, refreshKey(jti), userID, ttl).Err()
}

// IsCached reports whether the jti is present in the mirror.
func (c *RefreshCache) IsCached(ctx context.Context, jti string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	n, err := c.client.Exists(opCtx, refreshKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Evict removes the jti from the mirror. Evicting an absent key is not an error.
func (c *RefreshCache) Evict(ctx context.Context, jti string) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.client.Del(opCtx, refreshKey(jti)).Err()
}

// Ping verifies the cache connection, for health reporting.
func (c *RefreshCache) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.client.Ping(opCtx).Err()
}
