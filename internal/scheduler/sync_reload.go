package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/sources"
	"github.com/MrSnakeDoc/shelf/internal/syncer"
	"github.com/MrSnakeDoc/shelf/internal/utils"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events a browser emits when it
// rewrites its bookmarks file.
const DefaultDebounce = 500 * time.Millisecond

// ErrEmptyTree is returned when the source has no links and empty trees
// are not allowed. Syncing it would delete every external bookmark.
var ErrEmptyTree = errors.New("external tree is empty")

type SyncReloaderOptions struct {
	Interval   time.Duration
	Watch      bool // re-sync when the tree file changes
	AllowEmpty bool
	Debounce   time.Duration
}

// SyncStatus describes the last completed reload.
type SyncStatus struct {
	At     time.Time     `json:"at"`
	Result syncer.Result `json:"result"`
	Error  string        `json:"error,omitempty"`
}

// SyncReloader feeds the external tree into the sync engine on start, on a
// ticker, on manual trigger and on file change.
type SyncReloader struct {
	loader        sources.TreeLoader
	engine        *syncer.Engine
	logger        logger.Logger
	opts          SyncReloaderOptions
	stopCh        chan struct{}
	doneCh        chan struct{}
	stopOnce      sync.Once
	started       atomic.Bool
	manualTrigger chan struct{}

	mu     sync.RWMutex
	status SyncStatus
}

// NewSyncReloader creates a new sync reloader
func NewSyncReloader(
	loader sources.TreeLoader,
	engine *syncer.Engine,
	log logger.Logger,
	opts SyncReloaderOptions,
) *SyncReloader {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &SyncReloader{
		loader:        loader,
		engine:        engine,
		logger:        log,
		opts:          opts,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		manualTrigger: make(chan struct{}, 1),
	}
}

// Start runs a first reload and then begins the periodic process.
func (sr *SyncReloader) Start(ctx context.Context) error {
	if _, err := sr.Reload(ctx); err != nil {
		sr.logger.Warn("initial tree sync failed",
			logger.String("file", sr.loader.Path()),
			logger.Error(err))
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	var watcher *fsnotify.Watcher
	if sr.opts.Watch {
		w, err := sr.watch()
		if err != nil {
			sr.logger.Warn("file watch disabled", logger.Error(err))
		} else {
			watcher, events, errs = w, w.Events, w.Errors
		}
	}

	target := filepath.Clean(sr.loader.Path())
	sr.started.Store(true)
	go func() {
		defer close(sr.doneCh)
		if watcher != nil {
			defer utils.Close(watcher)
		}

		var tick <-chan time.Time
		if sr.opts.Interval > 0 {
			ticker := time.NewTicker(sr.opts.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		var debounce <-chan time.Time
		for {
			select {
			case <-tick:
				sr.reloadLogged(ctx, "interval")
			case <-sr.manualTrigger:
				sr.logger.Info("manual tree sync triggered")
				sr.reloadLogged(ctx, "manual")
			case ev := <-events:
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				debounce = time.After(sr.opts.Debounce)
			case <-debounce:
				debounce = nil
				sr.reloadLogged(ctx, "file change")
			case err := <-errs:
				sr.logger.Warn("file watcher error", logger.Error(err))
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// watch follows the parent directory: browsers replace the file atomically,
// which drops a watch on the file itself.
func (sr *SyncReloader) watch() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(sr.loader.Path())); err != nil {
		utils.Close(w)
		return nil, fmt.Errorf("failed to watch %s: %w", sr.loader.Path(), err)
	}
	return w, nil
}

// Stop stops the reloader and waits for the loop to exit.
func (sr *SyncReloader) Stop() {
	sr.stopOnce.Do(func() { close(sr.stopCh) })
	if sr.started.Load() {
		<-sr.doneCh
	}
}

// Trigger queues a sync. It returns false when one is already running or
// queued.
func (sr *SyncReloader) Trigger() bool {
	if sr.engine.Running() {
		return false
	}
	select {
	case sr.manualTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (sr *SyncReloader) Status() SyncStatus {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return sr.status
}

func (sr *SyncReloader) reloadLogged(ctx context.Context, reason string) {
	if _, err := sr.Reload(ctx); err != nil {
		sr.logger.Error("failed to sync tree",
			logger.String("reason", reason),
			logger.Error(err))
	}
}

// Reload reads the tree and runs one sync.
func (sr *SyncReloader) Reload(ctx context.Context) (syncer.Result, error) {
	res, err := sr.reload(ctx)
	if errors.Is(err, syncer.ErrInProgress) {
		return res, err
	}

	st := SyncStatus{At: time.Now(), Result: res}
	if err != nil {
		st.Error = err.Error()
	}
	sr.mu.Lock()
	sr.status = st
	sr.mu.Unlock()
	return res, err
}

func (sr *SyncReloader) reload(ctx context.Context) (syncer.Result, error) {
	tree, err := sr.loader.Load(ctx)
	if err != nil {
		return syncer.Result{}, fmt.Errorf("failed to load tree: %w", err)
	}

	links := tree.CountLinks()
	sr.logger.Info("loaded external tree",
		logger.String("file", sr.loader.Path()),
		logger.Int("links", links))

	if links == 0 && !sr.opts.AllowEmpty {
		return syncer.Result{}, ErrEmptyTree
	}

	return sr.engine.Run(ctx, tree)
}
