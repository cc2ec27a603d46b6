package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLayoutDensify(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	l := Layout{Items: []LayoutItem{
		{BookmarkID: "c", GridIndex: 7, AddedAt: t0},
		{BookmarkID: "a", GridIndex: 2, AddedAt: t0},
		{BookmarkID: "b", GridIndex: 2, AddedAt: t0.Add(time.Second)},
		{BookmarkID: "a", GridIndex: 9, AddedAt: t0},
	}}

	if !l.Densify() {
		t.Fatal("Densify() should report a change")
	}

	want := []string{"a", "b", "c"}
	if len(l.Items) != len(want) {
		t.Fatalf("items = %+v, want %v", l.Items, want)
	}
	for i, id := range want {
		if l.Items[i].BookmarkID != id || l.Items[i].GridIndex != i {
			t.Errorf("item %d = %+v, want %s@%d", i, l.Items[i], id, i)
		}
	}

	if l.Densify() {
		t.Error("second Densify() should be a no-op")
	}
}

func TestValidateColumns(t *testing.T) {
	for _, c := range []int{1, 3, 6} {
		if err := ValidateColumns(c); err != nil {
			t.Errorf("ValidateColumns(%d) error = %v", c, err)
		}
	}
	for _, c := range []int{0, 7, -1} {
		if err := ValidateColumns(c); !errors.Is(err, ErrValidation) {
			t.Errorf("ValidateColumns(%d) error = %v, want ErrValidation", c, err)
		}
	}
}

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout(time.Now())
	if l.Config.Version != LayoutVersion || l.Config.Columns != DefaultColumns {
		t.Errorf("config = %+v", l.Config)
	}
	if l.Items == nil || len(l.Items) != 0 {
		t.Errorf("items = %v, want empty slice", l.Items)
	}
}
