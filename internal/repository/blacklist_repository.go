package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// blacklistPrefix namespaces revocation keys inside the shared Redis
// database.
const blacklistPrefix = "bl:"

// BlacklistRepo is the durable revocation store for refresh tokens.  A key
// per revoked jti, expiring together with the token itself, keeps the set
// from growing unboundedly: once the token could no longer pass the expiry
// check anyway, its entry may vanish.  Redis single-key semantics give the
// immediate read-after-write consistency the revoke/refresh race requires.
type BlacklistRepo struct {
	Client *redis.Client
}

func NewBlacklistRepo(client *redis.Client) *BlacklistRepo {
	return &BlacklistRepo{Client: client}
}

// Revoke records the jti as revoked until the token's own expiry.  Revoking
// an already revoked jti is a no-op success.
func (r *BlacklistRepo) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	return r.Client.Set(ctx, blacklistPrefix+jti,
		time.Now().UTC().Format(time.RFC3339), safeTTL(expiresAt)).Err()
}

// IsRevoked reports whether the jti has been blacklisted.  Absence of the
// key means the token is still valid (subject to the independent expiry
// check done by the validator).
func (r *BlacklistRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.Client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// safeTTL clamps the key lifetime to a positive duration so entries for
// already-expired tokens still get written and eventually cleaned up.
func safeTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}
