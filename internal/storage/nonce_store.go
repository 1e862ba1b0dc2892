package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const noncePrefix = "nonce:"

// NonceStore issues single-use sign-in nonces backed by Redis keys with a TTL.
type NonceStore struct {
	redis *RedisClient
	ttl   time.Duration
	now   func() time.Time
}

// NewNonceStore creates a nonce store whose nonces expire after ttl
func NewNonceStore(redis *RedisClient, ttl time.Duration) *NonceStore {
	return &NonceStore{redis: redis, ttl: ttl, now: time.Now}
}

// Issue creates a fresh nonce and returns it with its expiry time.
func (s *NonceStore) Issue(ctx context.Context) (string, time.Time, error) {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	expiresAt := s.now().Add(s.ttl).UTC()

	ok, err := s.redis.Client().SetNX(ctx, noncePrefix+nonce, expiresAt.Unix(), s.ttl).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store nonce: %w", err)
	}
	if !ok {
		return "", time.Time{}, fmt.Errorf("nonce collision")
	}

	return nonce, expiresAt, nil
}

// Consume deletes the nonce and reports whether it was live. A nonce can be
// consumed at most once; expired and unknown nonces return false.
func (s *NonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	nonce = strings.TrimSpace(nonce)
	if nonce == "" {
		return false, nil
	}

	_, err := s.redis.Client().GetDel(ctx, noncePrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return true, nil
}
