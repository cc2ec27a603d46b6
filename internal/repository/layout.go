package repository

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Layouts manages the single homepage layout record.
type Layouts struct {
	r *Repository
}

// Get returns the stored layout, falling back to the default one.
func (s *Layouts) Get(ctx context.Context) (domain.Layout, error) {
	return s.r.loadLayout(ctx)
}

func (s *Layouts) modify(ctx context.Context, fn func(ctx context.Context, l *domain.Layout) (bool, error)) error {
	return s.r.write(ctx, func(ctx context.Context, _ *changes) error {
		l, err := s.r.loadLayout(ctx)
		if err != nil {
			return err
		}
		changed, err := fn(ctx, &l)
		if err != nil || !changed {
			return err
		}
		l.Densify()
		l.Config.LastModified = s.r.now()
		return s.r.saveLayout(ctx, l)
	})
}

// Add places a bookmark on the grid at gridIndex, or at the end when
// gridIndex is nil. Adding a bookmark already on the grid is a no-op.
func (s *Layouts) Add(ctx context.Context, bookmarkID string, gridIndex *int) error {
	return s.modify(ctx, func(ctx context.Context, l *domain.Layout) (bool, error) {
		if l.Index(bookmarkID) >= 0 {
			return false, nil
		}
		list, err := s.r.loadBookmarks(ctx)
		if err != nil {
			return false, err
		}
		if bookmarkIndex(list, bookmarkID) < 0 {
			return false, fmt.Errorf("bookmark %s: %w", bookmarkID, ErrNotFound)
		}

		pos := len(l.Items)
		if gridIndex != nil && *gridIndex >= 0 && *gridIndex < pos {
			pos = *gridIndex
		}
		item := domain.LayoutItem{BookmarkID: bookmarkID, AddedAt: s.r.now()}
		l.Items = append(l.Items, domain.LayoutItem{})
		copy(l.Items[pos+1:], l.Items[pos:])
		l.Items[pos] = item
		renumber(l)
		return true, nil
	})
}

func (s *Layouts) Remove(ctx context.Context, bookmarkID string) (bool, error) {
	removed := false
	err := s.modify(ctx, func(_ context.Context, l *domain.Layout) (bool, error) {
		i := l.Index(bookmarkID)
		if i < 0 {
			return false, nil
		}
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		renumber(l)
		removed = true
		return true, nil
	})
	return removed, err
}

// Move shifts the item at grid position from to position to.
func (s *Layouts) Move(ctx context.Context, from, to int) error {
	return s.modify(ctx, func(_ context.Context, l *domain.Layout) (bool, error) {
		n := len(l.Items)
		if from < 0 || from >= n || to < 0 || to >= n {
			return false, fmt.Errorf("%w: move %d -> %d outside grid of %d", domain.ErrValidation, from, to, n)
		}
		if from == to {
			return false, nil
		}
		item := l.Items[from]
		l.Items = append(l.Items[:from], l.Items[from+1:]...)
		l.Items = append(l.Items, domain.LayoutItem{})
		copy(l.Items[to+1:], l.Items[to:])
		l.Items[to] = item
		renumber(l)
		return true, nil
	})
}

func (s *Layouts) SetConfig(ctx context.Context, columns int, showEmptyGuide bool) error {
	if err := domain.ValidateColumns(columns); err != nil {
		return err
	}
	return s.modify(ctx, func(_ context.Context, l *domain.Layout) (bool, error) {
		if l.Config.Columns == columns && l.Config.ShowEmptyGuide == showEmptyGuide {
			return false, nil
		}
		l.Config.Columns = columns
		l.Config.ShowEmptyGuide = showEmptyGuide
		return true, nil
	})
}

// ReindexSort persists a densified grid if the stored one had gaps or
// duplicates. It reports whether a write happened.
func (s *Layouts) ReindexSort(ctx context.Context) (bool, error) {
	wrote := false
	err := s.r.write(ctx, func(ctx context.Context, _ *changes) error {
		l, ok, err := s.r.readLayout(ctx)
		if err != nil || !ok {
			return err
		}
		if !l.Densify() {
			return nil
		}
		l.Config.LastModified = s.r.now()
		wrote = true
		return s.r.saveLayout(ctx, l)
	})
	return wrote, err
}

// Repair drops grid items whose bookmark no longer exists and returns how
// many were dropped.
func (s *Layouts) Repair(ctx context.Context) (int, error) {
	dropped := 0
	err := s.modify(ctx, func(ctx context.Context, l *domain.Layout) (bool, error) {
		list, err := s.r.loadBookmarks(ctx)
		if err != nil {
			return false, err
		}
		exists := make(map[string]struct{}, len(list))
		for _, b := range list {
			exists[b.ID] = struct{}{}
		}

		kept := l.Items[:0]
		n := 0
		for _, it := range l.Items {
			if _, ok := exists[it.BookmarkID]; !ok {
				n++
				continue
			}
			kept = append(kept, it)
		}
		if n == 0 {
			return false, nil
		}
		l.Items = kept
		renumber(l)
		dropped = n
		return true, nil
	})
	return dropped, err
}

func renumber(l *domain.Layout) {
	for i := range l.Items {
		l.Items[i].GridIndex = i
	}
}
