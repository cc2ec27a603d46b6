// Package repository persists bookmarks, categories and the homepage layout
// in a shared key-value store. Each collection is one JSON value; every
// write is a read-modify-write serialized first by an in-process queue and
// then by a lease lock stored next to the data.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/lock"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/google/uuid"
)

// Store keys. The lock key belongs to the lock package.
const (
	KeyBookmarks  = "bookmarks"
	KeyCategories = "categories"
	KeyLayout     = "layout"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("repository: record not found")

// Indexer is told about every committed bookmark change. Failures are
// logged and never fail the write.
type Indexer interface {
	Add(b domain.Bookmark) error
	Update(b domain.Bookmark) error
	Remove(id string) error
}

type Options struct {
	// Owner identifies this writer context in the lock record.
	// Empty = random UUID.
	Owner   string
	Lock    lock.Options
	Indexer Indexer
	Logger  logger.Logger
	Now     func() time.Time
}

type Repository struct {
	kv      store.Store
	queue   lock.WriteQueue
	lease   *lock.Lease
	indexer Indexer
	log     logger.Logger
	now     func() time.Time

	bookmarks  *Bookmarks
	categories *Categories
	layout     *Layouts
}

func New(kv store.Store, opts Options) *Repository {
	if opts.Owner == "" {
		opts.Owner = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	lockOpts := opts.Lock
	if lockOpts.Logger == nil {
		lockOpts.Logger = opts.Logger
	}

	r := &Repository{
		kv:      kv,
		lease:   lock.NewLease(kv, opts.Owner, lockOpts),
		indexer: opts.Indexer,
		log:     opts.Logger,
		now:     opts.Now,
	}
	r.bookmarks = &Bookmarks{r: r}
	r.categories = &Categories{r: r}
	r.layout = &Layouts{r: r}
	return r
}

func (r *Repository) Bookmarks() *Bookmarks   { return r.bookmarks }
func (r *Repository) Categories() *Categories { return r.categories }
func (r *Repository) Layout() *Layouts        { return r.layout }

// Owner returns the lock owner id of this instance.
func (r *Repository) Owner() string { return r.lease.Owner() }

// SetIndexer replaces the indexer. It must be called before writes start.
func (r *Repository) SetIndexer(idx Indexer) { r.indexer = idx }

// Ping reports whether the backing store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return store.Ping(ctx, r.kv)
}

type changeKind int

const (
	changeAdd changeKind = iota
	changeUpdate
	changeRemove
)

type change struct {
	kind     changeKind
	bookmark domain.Bookmark
	id       string
}

// changes collects the bookmark events of one write.
type changes []change

func (c *changes) added(b domain.Bookmark)   { *c = append(*c, change{kind: changeAdd, bookmark: b, id: b.ID}) }
func (c *changes) updated(b domain.Bookmark) { *c = append(*c, change{kind: changeUpdate, bookmark: b, id: b.ID}) }
func (c *changes) removed(id string)         { *c = append(*c, change{kind: changeRemove, id: id}) }

// write runs fn under the queue and the lock, then notifies the indexer
// (still in queue order, but after the lock is released).
func (r *Repository) write(ctx context.Context, fn func(ctx context.Context, ch *changes) error) error {
	return r.queue.Do(ctx, func(ctx context.Context) error {
		var ch changes
		if err := r.lease.WithLock(ctx, func(ctx context.Context) error {
			return fn(ctx, &ch)
		}); err != nil {
			return err
		}
		r.notify(ch)
		return nil
	})
}

func (r *Repository) notify(ch changes) {
	if r.indexer == nil {
		return
	}
	for _, c := range ch {
		r.notifyOne(c)
	}
}

func (r *Repository) notifyOne(c change) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("indexer panicked",
				logger.String("bookmark_id", c.id),
				logger.String("panic", fmt.Sprint(rec)))
		}
	}()

	var err error
	switch c.kind {
	case changeAdd:
		err = r.indexer.Add(c.bookmark)
	case changeUpdate:
		err = r.indexer.Update(c.bookmark)
	case changeRemove:
		err = r.indexer.Remove(c.id)
	}
	if err != nil {
		r.log.Warn("indexer update failed (best effort)",
			logger.String("bookmark_id", c.id),
			logger.Error(err))
	}
}

// PutOption tunes Put/PutAll.
type PutOption func(*putConfig)

type putConfig struct {
	keepSort bool
	merge    bool
}

// WithExplicitSort keeps the caller's Sort for new records instead of
// appending them at the end of their scope.
func WithExplicitSort() PutOption {
	return func(c *putConfig) { c.keepSort = true }
}

// WithExternalMerge turns PutAll into the tree sync write. Records that
// already exist only take the externally owned fields of the input, merged
// into the copy loaded under the lock, and records the user owns are left
// alone. New bookmarks whose URL is already stored are dropped, and a URL
// change that would collide keeps the stored URL. Sort values are taken
// as given, except that a scope left with a repeated value gets the
// batch's records moved after the others.
func WithExternalMerge() PutOption {
	return func(c *putConfig) {
		c.keepSort = true
		c.merge = true
	}
}

func newPutConfig(opts []PutOption) putConfig {
	var c putConfig
	for _, o := range opts {
		o(&c)
	}
	return c
}

// spreadCollisions finds scopes where two records share a sort value and
// moves the records listed in batch after every other record of that
// scope, keeping their relative order. It returns the indexes it changed.
func spreadCollisions[T any](list []T, batch map[string]struct{}, slot func(*T) (id, scope string, sort *int)) []int {
	used := map[string]map[int]struct{}{}
	clash := map[string]bool{}
	for i := range list {
		_, scope, so := slot(&list[i])
		if used[scope] == nil {
			used[scope] = map[int]struct{}{}
		}
		if _, dup := used[scope][*so]; dup {
			clash[scope] = true
		}
		used[scope][*so] = struct{}{}
	}
	if len(clash) == 0 {
		return nil
	}

	top := map[string]int{}
	moving := map[string][]int{}
	for i := range list {
		id, scope, so := slot(&list[i])
		if !clash[scope] {
			continue
		}
		if _, ok := batch[id]; ok {
			moving[scope] = append(moving[scope], i)
			continue
		}
		if cur, ok := top[scope]; !ok || *so > cur {
			top[scope] = *so
		}
	}

	var changed []int
	for scope, idx := range moving {
		sort.SliceStable(idx, func(a, b int) bool {
			_, _, sa := slot(&list[idx[a]])
			_, _, sb := slot(&list[idx[b]])
			return *sa < *sb
		})
		next := 0
		if cur, ok := top[scope]; ok {
			next = cur + 1
		}
		for _, i := range idx {
			_, _, so := slot(&list[i])
			*so = next
			next++
			changed = append(changed, i)
		}
	}
	return changed
}
