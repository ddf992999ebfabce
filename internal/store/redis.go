package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for identity records.
	recordKeyPrefix = "patient:"
	// Default TTL for record keys. Identity records are operational state,
	// not a registry; stale sessions age out.
	defaultTTL = 30 * 24 * time.Hour
)

// RedisStore implements Store on a Redis instance.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A non-positive ttl falls back
// to the default.
func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, ErrInvalidConfig
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) key(sessionKey string) string { return recordKeyPrefix + sessionKey }

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("redis decode record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Upsert(ctx context.Context, rec *Record) error {
	if rec == nil || rec.SessionKey == "" {
		return ErrMissingKey
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis encode record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.SessionKey), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
