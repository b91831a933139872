package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/complaint-service/internal/domain"
)

const keyPrefix = "session:"

type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Redis-backed store. Records carry their own TTL,
// so a crashed process never leaves immortal sessions behind.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Save(ctx context.Context, session *domain.Session) error {
	if err := validate(session); err != nil {
		return err
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	return s.client.Set(ctx, keyPrefix+session.Token, payload, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		_ = s.client.Del(ctx, keyPrefix+token).Err()
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *redisStore) Clear(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}
