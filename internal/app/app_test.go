package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
	"github.com/MrSnakeDoc/shelf/internal/store/sqlite"
	"github.com/alicebob/miniredis/v2"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		cfg   config.Config
		check func(store.Store) bool
	}{
		{
			name:  "memory",
			cfg:   config.Config{StoreBackend: config.BackendMemory},
			check: func(s store.Store) bool { _, ok := s.(*memory.Store); return ok },
		},
		{
			name:  "sqlite",
			cfg:   config.Config{StoreBackend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "shelf.db")},
			check: func(s store.Store) bool { _, ok := s.(*sqlite.Store); return ok },
		},
		{
			name: "redis",
			cfg: config.Config{
				StoreBackend:        config.BackendRedis,
				RedisAddr:           mr.Addr(),
				KeyPrefix:           "test:",
				RedisConnectTimeout: 2 * time.Second,
				RedisRetryInterval:  100 * time.Millisecond,
				RedisMaxWait:        time.Second,
				RedisPingTimeout:    time.Second,
			},
			check: func(s store.Store) bool { return s != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := openStore(ctx, &tt.cfg, logger.Nop())
			if err != nil {
				t.Fatalf("openStore() error = %v", err)
			}
			if c, ok := kv.(io.Closer); ok {
				t.Cleanup(func() { _ = c.Close() })
			}
			if !tt.check(kv) {
				t.Errorf("openStore() returned %T", kv)
			}
			if err := kv.Set(ctx, "k", []byte("v")); err != nil {
				t.Errorf("Set() error = %v", err)
			}
			if err := store.Ping(ctx, kv); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
		})
	}

	if _, err := openStore(ctx, &config.Config{StoreBackend: "etcd"}, logger.Nop()); err == nil {
		t.Error("openStore() should reject an unknown backend")
	}
}
