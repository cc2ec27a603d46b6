package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
)

func gridIDs(l domain.Layout) []string {
	out := make([]string, len(l.Items))
	for i, it := range l.Items {
		out[i] = it.BookmarkID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLayoutDefaultWhenAbsentOrStale(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	repo := newTestRepo(t, kv)

	l, err := repo.Layout().Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if l.Config.Version != domain.LayoutVersion || l.Config.Columns != domain.DefaultColumns || len(l.Items) != 0 {
		t.Errorf("default layout = %+v", l)
	}

	_ = kv.Set(ctx, KeyLayout, []byte(`{"config":{"version":0,"columns":5},"items":[{"bookmarkId":"x","gridIndex":0}]}`))
	l, _ = repo.Layout().Get(ctx)
	if l.Config.Columns != domain.DefaultColumns || len(l.Items) != 0 {
		t.Errorf("stale layout not replaced by default: %+v", l)
	}
}

func TestLayoutAddMoveRemove(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())
	for _, id := range []string{"a", "b", "c"} {
		_ = repo.Bookmarks().Put(ctx, bm(id, "https://"+id+".test"))
	}
	lay := repo.Layout()

	_ = lay.Add(ctx, "a", nil)
	_ = lay.Add(ctx, "b", nil)
	zero := 0
	_ = lay.Add(ctx, "c", &zero)
	_ = lay.Add(ctx, "a", nil) // already present

	l, _ := lay.Get(ctx)
	if got := gridIDs(l); !equalIDs(got, []string{"c", "a", "b"}) {
		t.Fatalf("grid = %v, want [c a b]", got)
	}

	if err := lay.Add(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Add(missing) error = %v, want ErrNotFound", err)
	}

	if err := lay.Move(ctx, 0, 2); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	l, _ = lay.Get(ctx)
	if got := gridIDs(l); !equalIDs(got, []string{"a", "b", "c"}) {
		t.Fatalf("grid after move = %v, want [a b c]", got)
	}
	if err := lay.Move(ctx, 0, 5); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Move(out of range) error = %v, want ErrValidation", err)
	}

	ok, err := lay.Remove(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("Remove() = %v, %v", ok, err)
	}
	l, _ = lay.Get(ctx)
	for i, it := range l.Items {
		if it.GridIndex != i {
			t.Errorf("item %s gridIndex = %d, want %d", it.BookmarkID, it.GridIndex, i)
		}
	}
}

func TestLayoutSetConfig(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, memory.New())

	if err := repo.Layout().SetConfig(ctx, 5, false); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	l, _ := repo.Layout().Get(ctx)
	if l.Config.Columns != 5 || l.Config.ShowEmptyGuide {
		t.Errorf("config = %+v", l.Config)
	}
}

func TestLayoutRepairAndReindex(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	repo := newTestRepo(t, kv)
	_ = repo.Bookmarks().Put(ctx, bm("a", "https://a.test"))
	_ = repo.Bookmarks().Put(ctx, bm("c", "https://c.test"))

	stored := `{"config":{"version":1,"columns":3},"items":[
		{"bookmarkId":"a","gridIndex":0},
		{"bookmarkId":"gone","gridIndex":4},
		{"bookmarkId":"c","gridIndex":9},
		{"bookmarkId":"a","gridIndex":12}
	]}`
	_ = kv.Set(ctx, KeyLayout, []byte(stored))

	wrote, err := repo.Layout().ReindexSort(ctx)
	if err != nil || !wrote {
		t.Fatalf("ReindexSort() = %v, %v; want a write", wrote, err)
	}
	if wrote, _ := repo.Layout().ReindexSort(ctx); wrote {
		t.Error("second ReindexSort() should not write")
	}

	n, err := repo.Layout().Repair(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Repair() = %d, %v; want 1", n, err)
	}
	l, _ := repo.Layout().Get(ctx)
	if got := gridIDs(l); !equalIDs(got, []string{"a", "c"}) {
		t.Errorf("grid after repair = %v, want [a c]", got)
	}
}
