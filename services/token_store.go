package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenPurposeVerify = "verify"
	tokenPurposeReset  = "reset"
)

var ErrTokenInvalid = errors.New("token is invalid or has expired")

// TokenStore keeps one-shot email tokens (verification, password reset) in
// Redis so they expire on their own and survive restarts.
type TokenStore struct {
	redis     *redis.Client
	keyPrefix string
}

func NewTokenStore(redis *redis.Client) *TokenStore {
	return &TokenStore{
		redis:     redis,
		keyPrefix: "mathclub:token",
	}
}

func (s *TokenStore) key(purpose, token string) string {
	return fmt.Sprintf("%s:%s:%s", s.keyPrefix, purpose, token)
}

// Issue creates a fresh token bound to a user for the given purpose.
func (s *TokenStore) Issue(ctx context.Context, purpose string, userID uint, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := s.redis.Set(ctx, s.key(purpose, token), userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store %s token: %w", purpose, err)
	}
	return token, nil
}

// Consume resolves a token to its user and deletes it, so each token is
// usable exactly once.
func (s *TokenStore) Consume(ctx context.Context, purpose, token string) (uint, error) {
	val, err := s.redis.GetDel(ctx, s.key(purpose, token)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenInvalid
		}
		return 0, fmt.Errorf("failed to look up %s token: %w", purpose, err)
	}
	return uint(val), nil
}
