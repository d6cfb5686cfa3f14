package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/monitoringhub/auth-service/internal/logger"
)

// TokenRevocationRepository tracks a per-user "valid since" watermark in
// Redis. Tokens issued before the watermark are treated as revoked, which
// lets logout invalidate outstanding tokens even though the tokens
// themselves are stateless. Keys expire after the token TTL, by which point
// the tokens they would reject have expired on their own.
type TokenRevocationRepository struct {
	client *redis.Client
	ttl    time.Duration // matches the token TTL
}

// NewTokenRevocationRepository creates a new repository instance.
func NewTokenRevocationRepository(client *redis.Client, ttl time.Duration) *TokenRevocationRepository {
	return &TokenRevocationRepository{
		client: client,
		ttl:    ttl,
	}
}

func revocationKey(userID uuid.UUID) string {
	return fmt.Sprintf("auth:valid_since:%s", userID)
}

// Revoke marks all tokens of the user issued before since as invalid.
func (r *TokenRevocationRepository) Revoke(ctx context.Context, userID uuid.UUID, since time.Time) error {
	key := revocationKey(userID)
	err := r.client.Set(ctx, key, strconv.FormatInt(since.Unix(), 10), r.ttl).Err()

	logger.Log.Debugw("revocation set",
		"key", key,
		"since", since.Unix(),
		"error", err,
	)

	return err
}

// IsRevoked reports whether a token issued at issuedAt has been revoked.
// A missing watermark means nothing was revoked.
func (r *TokenRevocationRepository) IsRevoked(ctx context.Context, userID uuid.UUID, issuedAt time.Time) (bool, error) {
	key := revocationKey(userID)

	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Log.Errorw("revocation lookup failed", "key", key, "error", err)
		return false, err
	}

	since, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		logger.Log.Errorw("revocation watermark malformed", "key", key, "value", val, "error", err)
		return false, err
	}

	return issuedAt.Unix() < since, nil
}
