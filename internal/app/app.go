package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/lock"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/repository"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
	"github.com/MrSnakeDoc/shelf/internal/sources"
	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/shelf/internal/store/redis"
	"github.com/MrSnakeDoc/shelf/internal/store/sqlite"
	"github.com/MrSnakeDoc/shelf/internal/syncer"
	"github.com/MrSnakeDoc/shelf/internal/utils"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

type App struct {
	cfg        *config.Config
	logger     logger.Logger
	server     *httpserver.Server
	kv         store.Store
	repo       *repository.Repository
	memIndex   *index.MemoryIndex
	reloader   *scheduler.SyncReloader
	maintainer *scheduler.Maintainer
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the store early - fail fast if unavailable
	kv, err := openStore(context.Background(), cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.StoreBackend, err)
		os.Exit(1)
	}
	loggerClient.Info("store initialized successfully",
		logger.String("backend", cfg.StoreBackend))

	memIndex := index.NewMemoryIndex()
	repo := repository.New(kv, repository.Options{
		Indexer: memIndex,
		Logger:  loggerClient,
		Lock: lock.Options{
			Lease:       cfg.LockLease,
			Heartbeat:   cfg.LockHeartbeat,
			RetryBase:   cfg.LockRetryBase,
			RetryJitter: cfg.LockRetryJitter,
			Timeout:     cfg.LockTimeout,
			Settle:      cfg.LockSettle,
			Logger:      loggerClient,
		},
	})
	loggerClient.Info("repository ready", logger.String("owner", repo.Owner()))

	// Load stored bookmarks into the search index before serving
	warmer := scheduler.NewIndexWarmer(repo, memIndex, loggerClient)
	if err := warmer.Warm(context.Background()); err != nil {
		loggerClient.Warn("failed to warm search index on startup, search starts empty",
			logger.Error(err))
	}

	// Initialize tree sync (if a tree file is configured)
	var reloader *scheduler.SyncReloader
	if cfg.TreeFile != "" {
		loader, err := sources.New(sources.Options{
			Format:        cfg.TreeFormat,
			Path:          cfg.TreeFile,
			IncludeMobile: cfg.SyncIncludeMobile,
		})
		if err != nil {
			loggerClient.Errorf("Invalid tree source: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("tree file configured, initializing sync",
			logger.String("file", cfg.TreeFile),
			logger.String("format", cfg.TreeFormat))
		reloader = scheduler.NewSyncReloader(loader, syncer.New(repo, loggerClient), loggerClient,
			scheduler.SyncReloaderOptions{
				Interval:   cfg.SyncInterval,
				Watch:      cfg.SyncWatch,
				AllowEmpty: cfg.SyncAllowEmpty,
			})
	} else {
		loggerClient.Info("tree file not configured, external sync disabled")
	}

	maintainer := scheduler.NewMaintainer(repo, loggerClient, cfg.MaintenanceInterval)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		RateLimit:    deps.RateLimit{Burst: cfg.RateLimitBurst, PerMinute: cfg.RateLimitPerMin},
		Repo:         repo,
		Index:        memIndex,
		SearchLimit:  cfg.SearchLimit,
	}
	// A nil *SyncReloader in the interface would not compare equal to nil.
	if reloader != nil {
		d.Sync = reloader
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:        cfg,
		logger:     loggerClient,
		server:     server,
		kv:         kv,
		repo:       repo,
		memIndex:   memIndex,
		reloader:   reloader,
		maintainer: maintainer,
	}
}

// openStore builds the configured backend.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		return redisstore.Connect(ctx, redisstore.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			KeyPrefix:      cfg.KeyPrefix,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
	case config.BackendSQLite:
		log.Infof("Opening SQLite database at %s", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath)
	case config.BackendMemory:
		log.Warn("memory store selected, data is lost on exit and not shared between processes")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Shelf v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Shelf %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start tree sync (first sync, then ticker and file watch)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sync reloader: %w", err)
		}
		a.logger.Info("sync reloader started",
			logger.Duration("interval", a.cfg.SyncInterval),
			logger.Bool("watch", a.cfg.SyncWatch))
	}

	// Start maintenance
	if err := a.maintainer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start maintainer: %w", err)
	}
	a.logger.Info("maintainer started",
		logger.Duration("interval", a.cfg.MaintenanceInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Stop schedulers once no request can start a new write
	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.maintainer.Stop()

	if c, ok := a.kv.(io.Closer); ok {
		utils.CloseLogged(c, a.cfg.StoreBackend+" store", a.logger)
	}

	_ = a.logger.Sync()
	a.logger.Info("✅ Shelf stopped cleanly")
	return nil
}
