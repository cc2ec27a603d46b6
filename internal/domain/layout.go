package domain

import (
	"sort"
	"time"
)

const (
	LayoutVersion  = 1
	DefaultColumns = 3
	MinColumns     = 1
	MaxColumns     = 6
)

// Layout is the homepage grid: an ordered selection of bookmarks.
type Layout struct {
	Config LayoutConfig `json:"config"`
	Items  []LayoutItem `json:"items"`
}

type LayoutConfig struct {
	Version        int       `json:"version"`
	Columns        int       `json:"columns"`
	LastModified   time.Time `json:"lastModified"`
	ShowEmptyGuide bool      `json:"showEmptyGuide"`
}

type LayoutItem struct {
	BookmarkID string    `json:"bookmarkId"`
	GridIndex  int       `json:"gridIndex"`
	AddedAt    time.Time `json:"addedAt"`
}

func DefaultLayout(now time.Time) Layout {
	return Layout{
		Config: LayoutConfig{
			Version:        LayoutVersion,
			Columns:        DefaultColumns,
			LastModified:   now,
			ShowEmptyGuide: true,
		},
		Items: []LayoutItem{},
	}
}

func ValidateColumns(columns int) error {
	if columns < MinColumns || columns > MaxColumns {
		return invalid("columns must be between %d and %d, got %d", MinColumns, MaxColumns, columns)
	}
	return nil
}

// Densify orders items by GridIndex (then AddedAt), drops repeated
// bookmark ids and renumbers GridIndex from zero. It reports whether
// anything changed.
func (l *Layout) Densify() bool {
	items := make([]LayoutItem, len(l.Items))
	copy(items, l.Items)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].GridIndex != items[j].GridIndex {
			return items[i].GridIndex < items[j].GridIndex
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})

	out := make([]LayoutItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.BookmarkID]; ok {
			continue
		}
		seen[it.BookmarkID] = struct{}{}
		it.GridIndex = len(out)
		out = append(out, it)
	}

	changed := len(out) != len(l.Items)
	if !changed {
		for i := range out {
			if out[i] != l.Items[i] {
				changed = true
				break
			}
		}
	}
	l.Items = out
	return changed
}

func (l Layout) Index(bookmarkID string) int {
	for i, it := range l.Items {
		if it.BookmarkID == bookmarkID {
			return i
		}
	}
	return -1
}
