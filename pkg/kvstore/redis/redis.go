// Package redis provides a Redis-backed kvstore.Store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tendant/farmgate/pkg/kvstore"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long an entry survives without being rewritten.
	// Zero keeps entries until removed.
	TTL time.Duration
}

// Store implements kvstore.Store on top of a Redis client.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ kvstore.Store = (*Store)(nil)

// New creates a Store with its own client.
func New(cfg Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Store{client: client, ttl: cfg.TTL}
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	const op = "kvstore.redis.Ping"

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const op = "kvstore.redis.Get"

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%s: %w", op, kvstore.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	const op = "kvstore.redis.Set"

	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	const op = "kvstore.redis.Remove"

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	const op = "kvstore.redis.Close"

	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
