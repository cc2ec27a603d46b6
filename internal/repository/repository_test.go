package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/lock"
	"github.com/MrSnakeDoc/shelf/internal/store"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
)

// countingStore records how often the backend is touched.
type countingStore struct {
	store.Store
	gets atomic.Int64
	sets atomic.Int64
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, key)
}

func (c *countingStore) Set(ctx context.Context, key string, value []byte) error {
	c.sets.Add(1)
	return c.Store.Set(ctx, key, value)
}

func testLockOptions() lock.Options {
	return lock.Options{
		Lease:       time.Second,
		Heartbeat:   200 * time.Millisecond,
		RetryBase:   2 * time.Millisecond,
		RetryJitter: 3 * time.Millisecond,
		Settle:      5 * time.Millisecond,
	}
}

func newTestRepo(t *testing.T, kv store.Store) *Repository {
	t.Helper()
	return New(kv, Options{Lock: testLockOptions()})
}

func bm(id, url string) domain.Bookmark {
	return domain.Bookmark{ID: id, URL: url, Title: id}
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())

	if err := repo.Bookmarks().Put(ctx, bm("a", "https://a.test")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := repo.Bookmarks().Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CategoryID != domain.UncategorizedID {
		t.Errorf("CategoryID = %q, want sentinel", got.CategoryID)
	}
	if got.Source != domain.SourceUser {
		t.Errorf("Source = %q, want user", got.Source)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Errorf("timestamps not stamped: %+v", got)
	}
	if got.Tags == nil {
		t.Error("Tags should be empty, not nil")
	}

	if _, err := repo.Bookmarks().Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPutUpdateKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())

	if err := repo.Bookmarks().Put(ctx, bm("a", "https://a.test")); err != nil {
		t.Fatal(err)
	}
	first, _ := repo.Bookmarks().Get(ctx, "a")

	time.Sleep(2 * time.Millisecond)
	upd := first
	upd.Title = "renamed"
	upd.CreatedAt = time.Time{}
	if err := repo.Bookmarks().Put(ctx, upd); err != nil {
		t.Fatal(err)
	}

	second, _ := repo.Bookmarks().Get(ctx, "a")
	if second.Title != "renamed" {
		t.Errorf("Title = %q", second.Title)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not bumped: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestConcurrentPutsSameInstance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("b-%02d", i)
			if err := repo.Bookmarks().Put(ctx, bm(id, "https://"+id+".test")); err != nil {
				t.Errorf("Put(%s) error = %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	assertUniqueIDs(t, repo, n)
}

func TestConcurrentPutsTwoInstances(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	repos := []*Repository{newTestRepo(t, kv), newTestRepo(t, kv)}
	if repos[0].Owner() == repos[1].Owner() {
		t.Fatal("instances must have distinct lock owners")
	}

	const perInstance = 50
	var wg sync.WaitGroup
	for r, repo := range repos {
		for i := 0; i < perInstance; i++ {
			wg.Add(1)
			go func(repo *Repository, r, i int) {
				defer wg.Done()
				id := fmt.Sprintf("r%d-%02d", r, i)
				if err := repo.Bookmarks().Put(ctx, bm(id, "https://"+id+".test")); err != nil {
					t.Errorf("Put(%s) error = %v", id, err)
				}
			}(repo, r, i)
		}
	}
	wg.Wait()

	assertUniqueIDs(t, repos[0], 2*perInstance)
}

func assertUniqueIDs(t *testing.T, repo *Repository, want int) {
	t.Helper()
	all, err := repo.Bookmarks().GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	seen := map[string]int{}
	for _, b := range all {
		seen[b.ID]++
	}
	if len(all) != want || len(seen) != want {
		t.Fatalf("got %d records / %d unique ids, want %d", len(all), len(seen), want)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("id %s stored %d times", id, n)
		}
	}
}

func TestValidationFailsBeforeStoreAccess(t *testing.T) {
	ctx := context.Background()
	kv := &countingStore{Store: memory.New()}
	repo := newTestRepo(t, kv)

	tests := []struct {
		name string
		call func() error
	}{
		{name: "bookmark without url", call: func() error { return repo.Bookmarks().Put(ctx, domain.Bookmark{ID: "x"}) }},
		{name: "bookmark without id", call: func() error { return repo.Bookmarks().Put(ctx, domain.Bookmark{URL: "https://x.test"}) }},
		{name: "category without name", call: func() error { return repo.Categories().Put(ctx, domain.Category{ID: "c"}) }},
		{name: "category own parent", call: func() error {
			return repo.Categories().Put(ctx, domain.Category{ID: "c", Name: "C", ParentID: "c"})
		}},
		{name: "layout columns", call: func() error { return repo.Layout().SetConfig(ctx, 9, true) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			if kv.gets.Load() != 0 || kv.sets.Load() != 0 {
				t.Errorf("store touched: %d gets, %d sets", kv.gets.Load(), kv.sets.Load())
			}
		})
	}
}

func TestPutRejectsUnknownCategory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())

	b := bm("a", "https://a.test")
	b.CategoryID = "nope"
	if err := repo.Bookmarks().Put(ctx, b); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Put() error = %v, want ErrValidation", err)
	}

	if err := repo.Categories().Put(ctx, domain.Category{ID: "work", Name: "Work"}); err != nil {
		t.Fatal(err)
	}
	b.CategoryID = "work"
	if err := repo.Bookmarks().Put(ctx, b); err != nil {
		t.Fatalf("Put() with known category error = %v", err)
	}
}

func TestNewBookmarksAppendToScope(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())
	_ = repo.Categories().Put(ctx, domain.Category{ID: "work", Name: "Work"})

	put := func(id, cat string) {
		b := bm(id, "https://"+id+".test")
		b.CategoryID = cat
		b.Sort = 99
		if err := repo.Bookmarks().Put(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	put("a", "")
	put("b", "work")
	put("c", "")
	put("d", "work")

	wantSort := map[string]int{"a": 0, "b": 0, "c": 1, "d": 1}
	all, _ := repo.Bookmarks().GetAll(ctx)
	for _, b := range all {
		if b.Sort != wantSort[b.ID] {
			t.Errorf("%s sort = %d, want %d", b.ID, b.Sort, wantSort[b.ID])
		}
	}
}

func TestRemoveKeepsSortThenReindex(t *testing.T) {
	ctx := context.Background()
	kv := &countingStore{Store: memory.New()}
	repo := newTestRepo(t, kv)

	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Bookmarks().Put(ctx, bm(id, "https://"+id+".test")); err != nil {
			t.Fatal(err)
		}
	}

	ok, err := repo.Bookmarks().Remove(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Remove() = %v, %v", ok, err)
	}
	if ok, _ := repo.Bookmarks().Remove(ctx, "a"); ok {
		t.Error("second Remove() should report false")
	}

	all, _ := repo.Bookmarks().GetAll(ctx)
	if all[0].Sort != 1 || all[1].Sort != 2 {
		t.Fatalf("sorts after remove = %d,%d; want 1,2", all[0].Sort, all[1].Sort)
	}

	n, err := repo.Bookmarks().ReindexSort(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ReindexSort() = %d, %v; want 2", n, err)
	}
	all, _ = repo.Bookmarks().GetAll(ctx)
	for i, b := range all {
		if b.Sort != i {
			t.Errorf("%s sort = %d, want %d", b.ID, b.Sort, i)
		}
	}
	if all[0].ID != "b" || all[1].ID != "c" {
		t.Errorf("order = %s,%s; want b,c", all[0].ID, all[1].ID)
	}

	bookmarkSets := func() int64 { return kv.sets.Load() }
	before := bookmarkSets()
	n, err = repo.Bookmarks().ReindexSort(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second ReindexSort() = %d, %v; want 0", n, err)
	}
	// Only the lock record is written (acquire, no collection write).
	if after := bookmarkSets(); after-before != 1 {
		t.Errorf("no-op reindex issued %d sets, want 1 (lock only)", after-before)
	}
}

func TestLegacyRecordsAreNormalized(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	legacy := `[
		{"id":"pinned-no-date","url":"https://a.test","isPinned":true,"createdAt":1700000000000,"updatedAt":"2024-01-02T03:04:05Z"},
		{"id":"stray-date","url":"https://b.test","pinnedAt":"2024-01-01T00:00:00Z","createdAt":"2023-05-05T00:00:00Z"},
		{"id":"bare","url":"https://c.test","tags":["x","x","y"],"categoryId":""},
		"garbage",
		{"id":"epoch-string","url":"https://d.test","isPinned":true,"pinnedAt":"1700000000000","sort":3}
	]`
	if err := kv.Set(ctx, KeyBookmarks, []byte(legacy)); err != nil {
		t.Fatal(err)
	}
	repo := newTestRepo(t, kv)

	all, err := repo.Bookmarks().GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d bookmarks, want 4 (garbage skipped)", len(all))
	}

	byID := map[string]domain.Bookmark{}
	for _, b := range all {
		byID[b.ID] = b
		if b.IsPinned != (b.PinnedAt != nil) {
			t.Errorf("%s: IsPinned=%v PinnedAt=%v", b.ID, b.IsPinned, b.PinnedAt)
		}
		if b.Source != domain.SourceUser {
			t.Errorf("%s: Source = %q, want user", b.ID, b.Source)
		}
	}

	wantPinned := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if p := byID["pinned-no-date"].PinnedAt; p == nil || !p.Equal(wantPinned) {
		t.Errorf("pinnedAt = %v, want updatedAt %v", p, wantPinned)
	}
	if !byID["pinned-no-date"].CreatedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("epoch createdAt not decoded: %v", byID["pinned-no-date"].CreatedAt)
	}
	if byID["stray-date"].IsPinned || byID["stray-date"].PinnedAt != nil {
		t.Errorf("stray pinnedAt kept: %+v", byID["stray-date"])
	}
	if bare := byID["bare"]; bare.CategoryID != domain.UncategorizedID || len(bare.Tags) != 2 {
		t.Errorf("bare = %+v", bare)
	}
	if p := byID["epoch-string"].PinnedAt; p == nil || !p.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("epoch-string pinnedAt = %v", p)
	}

	// Pairing also holds after a write round-trip.
	if _, err := repo.Bookmarks().SetPinned(ctx, "bare", true); err != nil {
		t.Fatal(err)
	}
	all, _ = repo.Bookmarks().GetAll(ctx)
	for _, b := range all {
		if b.IsPinned != (b.PinnedAt != nil) {
			t.Errorf("after write %s: IsPinned=%v PinnedAt=%v", b.ID, b.IsPinned, b.PinnedAt)
		}
	}
}

func TestSetPinnedAndRecordVisit(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())
	_ = repo.Bookmarks().Put(ctx, bm("a", "https://a.test"))

	b, err := repo.Bookmarks().SetPinned(ctx, "a", true)
	if err != nil || !b.IsPinned || b.PinnedAt == nil {
		t.Fatalf("SetPinned(true) = %+v, %v", b, err)
	}
	b, err = repo.Bookmarks().SetPinned(ctx, "a", false)
	if err != nil || b.IsPinned || b.PinnedAt != nil {
		t.Fatalf("SetPinned(false) = %+v, %v", b, err)
	}

	for i := 0; i < 3; i++ {
		if b, err = repo.Bookmarks().RecordVisit(ctx, "a"); err != nil {
			t.Fatal(err)
		}
	}
	if b.ClickCount != 3 || b.LastVisited == nil {
		t.Errorf("after visits: clickCount=%d lastVisited=%v", b.ClickCount, b.LastVisited)
	}

	if _, err := repo.Bookmarks().RecordVisit(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordVisit(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	repo := newTestRepo(t, kv)
	kv.FailWith(errors.New("offline"))

	if err := repo.Bookmarks().Put(ctx, bm("a", "https://a.test")); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Put() error = %v, want ErrUnavailable", err)
	}
	if _, err := repo.Bookmarks().GetAll(ctx); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("GetAll() error = %v, want ErrUnavailable", err)
	}
	if err := repo.Ping(ctx); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Ping() error = %v, want ErrUnavailable", err)
	}

	// The queue is not wedged by the failures.
	kv.FailWith(nil)
	if err := repo.Bookmarks().Put(ctx, bm("a", "https://a.test")); err != nil {
		t.Errorf("Put() after heal error = %v", err)
	}
}

type recordingIndexer struct {
	mu      sync.Mutex
	added   []string
	updated []string
	removed []string
	fail    error
	panics  bool
}

func (r *recordingIndexer) Add(b domain.Bookmark) error {
	r.mu.Lock()
	r.added = append(r.added, b.ID)
	r.mu.Unlock()
	return r.result()
}

func (r *recordingIndexer) Update(b domain.Bookmark) error {
	r.mu.Lock()
	r.updated = append(r.updated, b.ID)
	r.mu.Unlock()
	return r.result()
}

func (r *recordingIndexer) Remove(id string) error {
	r.mu.Lock()
	r.removed = append(r.removed, id)
	r.mu.Unlock()
	return r.result()
}

func (r *recordingIndexer) result() error {
	if r.panics {
		panic("indexer exploded")
	}
	return r.fail
}

func TestIndexerNotifications(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndexer{}
	repo := New(memory.New(), Options{Lock: testLockOptions(), Indexer: idx})

	_ = repo.Bookmarks().Put(ctx, bm("a", "https://a.test"))
	_ = repo.Bookmarks().Put(ctx, bm("a", "https://a2.test"))
	_, _ = repo.Bookmarks().Remove(ctx, "a")

	if len(idx.added) != 1 || len(idx.updated) != 1 || len(idx.removed) != 1 {
		t.Errorf("events: added=%v updated=%v removed=%v", idx.added, idx.updated, idx.removed)
	}
}

func TestIndexerFailureNeverFailsWrite(t *testing.T) {
	tests := []struct {
		name string
		idx  *recordingIndexer
	}{
		{name: "error", idx: &recordingIndexer{fail: errors.New("index down")}},
		{name: "panic", idx: &recordingIndexer{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := New(memory.New(), Options{Lock: testLockOptions(), Indexer: tt.idx})

			if err := repo.Bookmarks().Put(ctx, bm("a", "https://a.test")); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if _, err := repo.Bookmarks().Get(ctx, "a"); err != nil {
				t.Fatalf("write not committed: %v", err)
			}
			if _, err := repo.Bookmarks().Remove(ctx, "a"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
		})
	}
}

func TestPutAfterRemoveGetsFreshSort(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())

	for _, id := range []string{"a", "b"} {
		if err := repo.Bookmarks().Put(ctx, bm(id, "https://"+id+".test")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.Bookmarks().Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Bookmarks().Put(ctx, bm("c", "https://c.test")); err != nil {
		t.Fatal(err)
	}

	b, _ := repo.Bookmarks().Get(ctx, "b")
	c, _ := repo.Bookmarks().Get(ctx, "c")
	if b.Sort != 1 || c.Sort != 2 {
		t.Errorf("sorts b=%d c=%d, want 1 and 2", b.Sort, c.Sort)
	}

	// Moving into a category lands after its last bookmark.
	_ = repo.Categories().Put(ctx, domain.Category{ID: "work", Name: "Work"})
	b.CategoryID = "work"
	if err := repo.Bookmarks().Put(ctx, b); err != nil {
		t.Fatal(err)
	}
	c.CategoryID = "work"
	if err := repo.Bookmarks().Put(ctx, c); err != nil {
		t.Fatal(err)
	}
	b, _ = repo.Bookmarks().Get(ctx, "b")
	c, _ = repo.Bookmarks().Get(ctx, "c")
	if b.Sort != 0 || c.Sort != 1 {
		t.Errorf("sorts in work b=%d c=%d, want 0 and 1", b.Sort, c.Sort)
	}
}

func TestPutAllExternalMerge(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())
	bs := repo.Bookmarks()

	ext := bm("ext", "https://ext.test")
	ext.Source = domain.SourceExternal
	ext.ExternalID = "1"
	user := bm("user", "https://user.test")
	if _, _, err := bs.PutAll(ctx, []domain.Bookmark{ext, user}); err != nil {
		t.Fatal(err)
	}
	if _, err := bs.SetPinned(ctx, "ext", true); err != nil {
		t.Fatal(err)
	}

	// A stale copy: unpinned, no tags.
	stale := ext
	stale.Title = "renamed"
	stale.Tags = []string{"lost"}
	touchUser := user
	touchUser.Title = "overwritten"
	late := bm("late", "https://USER.test/")
	late.Source = domain.SourceExternal
	late.ExternalID = "2"

	added, updated, err := bs.PutAll(ctx, []domain.Bookmark{stale, touchUser, late}, WithExternalMerge())
	if err != nil {
		t.Fatalf("PutAll() error = %v", err)
	}
	if added != 0 || updated != 1 {
		t.Errorf("PutAll() = %d added %d updated, want 0 and 1", added, updated)
	}

	got, _ := bs.Get(ctx, "ext")
	if got.Title != "renamed" || !got.IsPinned || len(got.Tags) != 0 {
		t.Errorf("ext = %+v, want new title, still pinned, no tags", got)
	}
	if got, _ := bs.Get(ctx, "user"); got.Title != "user" {
		t.Errorf("user bookmark title = %q, want untouched", got.Title)
	}
	if _, err := bs.Get(ctx, "late"); !errors.Is(err, ErrNotFound) {
		t.Errorf("late addition stored despite taken URL: err = %v", err)
	}
}

func TestPutAllExternalMergeSpreadsCollisions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())
	bs := repo.Bookmarks()

	if err := bs.Put(ctx, bm("u0", "https://u0.test")); err != nil {
		t.Fatal(err)
	}
	if err := bs.Put(ctx, bm("u1", "https://u1.test")); err != nil {
		t.Fatal(err)
	}

	var batch []domain.Bookmark
	for i, id := range []string{"e0", "e1"} {
		b := bm(id, "https://"+id+".test")
		b.Source = domain.SourceExternal
		b.ExternalID = id
		b.Sort = 1 + i
		batch = append(batch, b)
	}
	if _, _, err := bs.PutAll(ctx, batch, WithExternalMerge()); err != nil {
		t.Fatal(err)
	}

	want := map[string]int{"u0": 0, "u1": 1, "e0": 2, "e1": 3}
	all, _ := bs.GetAll(ctx)
	for _, b := range all {
		if b.Sort != want[b.ID] {
			t.Errorf("%s sort = %d, want %d", b.ID, b.Sort, want[b.ID])
		}
	}
}
