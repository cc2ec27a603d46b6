package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/store"
)

// Store is an in-process key-value store. An optional latency is applied to
// every call so concurrency tests can widen race windows.
type Store struct {
	mu      sync.RWMutex
	data    map[string][]byte
	latency time.Duration
	fail    error
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// WithLatency makes every operation sleep for d before touching the map.
func (s *Store) WithLatency(d time.Duration) *Store {
	s.latency = d
	return s
}

// FailWith makes every subsequent call return err wrapped in
// store.ErrUnavailable. Pass nil to heal the store.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Store) wait(ctx context.Context) error {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, s.fail)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.wait(ctx)
}

// Keys returns the stored keys, for tests and debugging.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
