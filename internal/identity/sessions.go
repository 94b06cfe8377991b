package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// Sessions keeps anonymous session keys in Redis. Every use extends the TTL.
type Sessions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessions(client *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{client: client, ttl: ttl}
}

// Create registers a fresh session key.
func (s *Sessions) Create(ctx context.Context) (string, error) {
	key := uuid.NewString()
	ok, err := s.client.SetNX(ctx, sessionKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return "", errors.New("create session: key collision")
	}
	return key, nil
}

// Touch reports whether key is a live session and extends it.
func (s *Sessions) Touch(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	ok, err := s.client.Expire(ctx, sessionKeyPrefix+key, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}
	return ok, nil
}

func (s *Sessions) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
