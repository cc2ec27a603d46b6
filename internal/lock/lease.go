// Package lock serializes writers sharing one key-value store.
//
// WriteQueue orders writers inside a process. Lease extends mutual exclusion
// to every process (or browser context, or service replica) that opens the
// same store, using a lock record stored in the store itself.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
)

// DefaultKey is the reserved store key holding the lock record.
const DefaultKey = "lock"

const releaseTimeout = 2 * time.Second

// ErrLockTimeout is returned by Acquire when Options.Timeout elapses.
var ErrLockTimeout = errors.New("lock: acquisition timed out")

// Record is the JSON value stored under the lock key.
type Record struct {
	Owner     string `json:"owner"`
	ExpiresAt int64  `json:"expiresAt"` // unix milliseconds
}

func (r Record) expired(now time.Time) bool {
	return now.UnixMilli() >= r.ExpiresAt
}

type Options struct {
	Key         string
	Lease       time.Duration
	Heartbeat   time.Duration
	RetryBase   time.Duration
	RetryJitter time.Duration
	Timeout     time.Duration // 0 = wait forever
	Settle      time.Duration // wait between writing the record and confirming it
	Logger      logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.Lease <= 0 {
		o.Lease = 4 * time.Second
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = time.Second
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 20 * time.Millisecond
	}
	if o.RetryJitter < 0 {
		o.RetryJitter = 0
	}
	if o.Settle <= 0 {
		o.Settle = 10 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

// Lease is a best-effort mutual-exclusion lock over a store without
// compare-and-swap. Exclusion holds as long as a competitor's read-then-write
// completes within Settle, and a holder renews before its lease runs out.
type Lease struct {
	kv    store.Store
	owner string
	opts  Options
	log   logger.Logger
}

// NewLease builds a lease for owner, which must be unique per writer context.
func NewLease(kv store.Store, owner string, opts Options) *Lease {
	opts = opts.withDefaults()
	return &Lease{
		kv:    kv,
		owner: owner,
		opts:  opts,
		log:   opts.Logger.With(logger.String("lock_owner", owner)),
	}
}

func (l *Lease) Owner() string { return l.owner }

func (l *Lease) read(ctx context.Context) (*Record, error) {
	raw, err := l.kv.Get(ctx, l.opts.Key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lock: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// An unreadable record cannot be owned by anyone.
		l.log.Warn("ignoring malformed lock record", logger.Error(err))
		return nil, nil
	}
	return &rec, nil
}

func (l *Lease) write(ctx context.Context) error {
	raw, err := json.Marshal(Record{
		Owner:     l.owner,
		ExpiresAt: time.Now().Add(l.opts.Lease).UnixMilli(),
	})
	if err != nil {
		return err
	}
	if err := l.kv.Set(ctx, l.opts.Key, raw); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	return nil
}

// TryAcquire makes a single attempt. It reports false when another live
// owner holds the lock or won a simultaneous attempt.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	rec, err := l.read(ctx)
	if err != nil {
		return false, err
	}
	if rec != nil && rec.Owner != l.owner && !rec.expired(time.Now()) {
		return false, nil
	}

	if err := l.write(ctx); err != nil {
		return false, err
	}

	if err := sleep(ctx, l.opts.Settle); err != nil {
		return false, err
	}

	rec, err = l.read(ctx)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Owner == l.owner, nil
}

// Acquire retries TryAcquire until it succeeds, ctx ends, the store fails,
// or Options.Timeout elapses.
func (l *Lease) Acquire(ctx context.Context) error {
	start := time.Now()
	warned := false

	for {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		waited := time.Since(start)
		if !warned && waited > 3*l.opts.Lease {
			warned = true
			l.log.Warn("still waiting for lock, holder may be stuck",
				logger.Duration("waited", waited),
				logger.Duration("lease", l.opts.Lease))
		}
		if l.opts.Timeout > 0 && waited >= l.opts.Timeout {
			return ErrLockTimeout
		}

		if err := sleep(ctx, l.retryDelay()); err != nil {
			return err
		}
	}
}

func (l *Lease) retryDelay() time.Duration {
	d := l.opts.RetryBase
	if l.opts.RetryJitter > 0 {
		d += time.Duration(rand.Int63n(int64(l.opts.RetryJitter)))
	}
	return d
}

// Renew pushes the expiry forward if this lease still owns the lock.
func (l *Lease) Renew(ctx context.Context) (bool, error) {
	rec, err := l.read(ctx)
	if err != nil {
		return false, err
	}
	if rec == nil || rec.Owner != l.owner {
		return false, nil
	}
	if err := l.write(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Release deletes the lock record if this lease owns it.
func (l *Lease) Release(ctx context.Context) error {
	rec, err := l.read(ctx)
	if err != nil {
		return err
	}
	if rec == nil || rec.Owner != l.owner {
		return nil
	}
	if err := l.kv.Delete(ctx, l.opts.Key); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// WithLock runs fn while holding the lock, renewing it every Heartbeat.
// The heartbeat stops and the lock is released however fn returns.
func (l *Lease) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}

	hbCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.heartbeat(hbCtx)
	}()

	defer func() {
		stop()
		wg.Wait()

		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := l.Release(relCtx); err != nil {
			l.log.Warn("failed to release lock, it will expire", logger.Error(err))
		}
	}()

	return fn(ctx)
}

func (l *Lease) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(l.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := l.Renew(ctx)
			switch {
			case err != nil:
				if ctx.Err() == nil {
					l.log.Warn("lock renewal failed", logger.Error(err))
				}
			case !ok:
				l.log.Warn("lock lost while held")
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
