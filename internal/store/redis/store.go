package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/redis/go-redis/v9"
)

// Store implements store.Store on top of a Redis client. Values never
// expire: the collections are the source of truth, not a cache.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore wraps client. An empty prefix falls back to DefaultKeyPrefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

func (s *Store) Get(ctx context.Context, k string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %v", store.ErrUnavailable, k, err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, k string, value []byte) error {
	if err := s.client.Set(ctx, s.key(k), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", store.ErrUnavailable, k, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, k string) error {
	if err := s.client.Del(ctx, s.key(k)).Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %v", store.ErrUnavailable, k, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
