package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
	"github.com/mananjary-mi/family-portal/pkg/crypto"
)

const redisKeyPrefix = "family-portal:session:"

// RedisStore keeps sessions in Redis as JSON values that expire with the session,
// so several portal instances can share logins.
type RedisStore struct {
	client *redis.Client
	cipher *crypto.TokenCipher
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTokenCipher seals backend access tokens before they reach Redis.
// Sessions written without a cipher still load.
func WithTokenCipher(c *crypto.TokenCipher) RedisOption {
	return func(r *RedisStore) {
		r.cipher = c
	}
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	r := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func redisKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return apperrors.ErrSessionExpired
	}

	stored := *s
	if r.cipher != nil {
		sealed, err := r.cipher.Seal(s.AccessToken, s.ID[:])
		if err != nil {
			return fmt.Errorf("failed to seal access token: %w", err)
		}
		stored.AccessToken = sealed
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	if crypto.IsSealed(s.AccessToken) {
		if r.cipher == nil {
			return nil, fmt.Errorf("session %s holds a sealed token but no cipher is configured", id)
		}
		token, err := r.cipher.Open(s.AccessToken, s.ID[:])
		if err != nil {
			return nil, fmt.Errorf("failed to open access token: %w", err)
		}
		s.AccessToken = token
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
