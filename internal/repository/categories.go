package repository

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Categories is the category collection.
type Categories struct {
	r *Repository
}

func (s *Categories) GetAll(ctx context.Context) ([]domain.Category, error) {
	return s.r.loadCategories(ctx)
}

func (s *Categories) Get(ctx context.Context, id string) (domain.Category, error) {
	list, err := s.r.loadCategories(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	if i := categoryIndex(list, id); i >= 0 {
		return list[i], nil
	}
	return domain.Category{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
}

func (s *Categories) Put(ctx context.Context, c domain.Category, opts ...PutOption) error {
	_, _, err := s.PutAll(ctx, []domain.Category{c}, opts...)
	return err
}

// PutAll upserts categories in one guarded write. Parents may be part of
// the same batch. A missing parent or a cycle rejects the whole batch.
func (s *Categories) PutAll(ctx context.Context, cs []domain.Category, opts ...PutOption) (added, updated int, err error) {
	if len(cs) == 0 {
		return 0, 0, nil
	}
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return 0, 0, err
		}
	}
	cfg := newPutConfig(opts)

	err = s.r.write(ctx, func(ctx context.Context, _ *changes) error {
		list, err := s.r.loadCategories(ctx)
		if err != nil {
			return err
		}

		next := nextCategorySorts(list)
		written := map[string]struct{}{}
		var a, u int
		for _, c := range cs {
			if c.Source == "" {
				c.Source = domain.SourceUser
			}
			if i := categoryIndex(list, c.ID); i >= 0 {
				existing := list[i]
				if cfg.merge {
					if !existing.IsExternal() {
						continue
					}
					merged, changed := domain.MergeExternalCategory(existing, c)
					if !changed {
						continue
					}
					c = merged
				}
				if c.ParentID != existing.ParentID && !cfg.keepSort {
					c.Sort = next[c.ParentID]
				}
				bump(next, c.ParentID, c.Sort)
				list[i] = c
				written[c.ID] = struct{}{}
				u++
				continue
			}
			if !cfg.keepSort {
				c.Sort = next[c.ParentID]
			}
			bump(next, c.ParentID, c.Sort)
			list = append(list, c)
			written[c.ID] = struct{}{}
			a++
		}
		if a+u == 0 {
			return nil
		}

		parents := parentMap(list)
		for _, c := range cs {
			if c.ParentID == "" {
				continue
			}
			if _, ok := parents[c.ParentID]; !ok {
				return fmt.Errorf("%w: category %s: parent %s not found", domain.ErrValidation, c.ID, c.ParentID)
			}
			if domain.CreatesCycle(parents, c.ID, c.ParentID) {
				return fmt.Errorf("category %s under %s: %w", c.ID, c.ParentID, domain.ErrCycle)
			}
		}

		if cfg.merge {
			spreadCollisions(list, written, categorySlot)
		}
		if err := s.r.saveCategories(ctx, list); err != nil {
			return err
		}
		added, updated = a, u
		return nil
	})
	return added, updated, err
}

// Move re-parents a category and appends it to its new siblings.
func (s *Categories) Move(ctx context.Context, id, newParentID string) error {
	if id == newParentID {
		return domain.ErrCycle
	}
	return s.r.write(ctx, func(ctx context.Context, _ *changes) error {
		list, err := s.r.loadCategories(ctx)
		if err != nil {
			return err
		}
		i := categoryIndex(list, id)
		if i < 0 {
			return fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		if list[i].ParentID == newParentID {
			return nil
		}

		parents := parentMap(list)
		if newParentID != "" {
			if _, ok := parents[newParentID]; !ok {
				return fmt.Errorf("%w: parent %s not found", domain.ErrValidation, newParentID)
			}
			if domain.CreatesCycle(parents, id, newParentID) {
				return fmt.Errorf("category %s under %s: %w", id, newParentID, domain.ErrCycle)
			}
		}

		sortAt := nextCategorySorts(list)[newParentID]
		list[i].ParentID = newParentID
		list[i].Sort = sortAt
		return s.r.saveCategories(ctx, list)
	})
}

func (s *Categories) Remove(ctx context.Context, id string) (bool, error) {
	n, err := s.RemoveAll(ctx, []string{id})
	return n > 0, err
}

// RemoveAll deletes categories. Children of a removed category move up to
// the nearest surviving ancestor and its bookmarks move to the
// uncategorized sentinel, all under the same lock hold.
func (s *Categories) RemoveAll(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	removed := 0
	err := s.r.write(ctx, func(ctx context.Context, ch *changes) error {
		list, err := s.r.loadCategories(ctx)
		if err != nil {
			return err
		}

		drop := map[string]struct{}{}
		for _, id := range ids {
			if categoryIndex(list, id) >= 0 {
				drop[id] = struct{}{}
			}
		}
		if len(drop) == 0 {
			return nil
		}

		parents := parentMap(list)
		survivor := func(p string) string {
			seen := map[string]struct{}{}
			for p != "" {
				if _, gone := drop[p]; !gone {
					return p
				}
				if _, loop := seen[p]; loop {
					return ""
				}
				seen[p] = struct{}{}
				p = parents[p]
			}
			return ""
		}

		kept := make([]domain.Category, 0, len(list))
		for _, c := range list {
			if _, gone := drop[c.ID]; gone {
				continue
			}
			if _, gone := drop[c.ParentID]; gone {
				c.ParentID = survivor(c.ParentID)
			}
			kept = append(kept, c)
		}

		bookmarks, err := s.r.loadBookmarks(ctx)
		if err != nil {
			return err
		}
		now := s.r.now()
		var events changes
		for i := range bookmarks {
			if _, gone := drop[bookmarks[i].CategoryID]; gone {
				bookmarks[i].CategoryID = domain.UncategorizedID
				bookmarks[i].UpdatedAt = now
				events.updated(bookmarks[i])
			}
		}
		if len(events) > 0 {
			if err := s.r.saveBookmarks(ctx, bookmarks); err != nil {
				return err
			}
			*ch = append(*ch, events...)
		}

		if err := s.r.saveCategories(ctx, kept); err != nil {
			return err
		}
		removed = len(drop)
		return nil
	})
	return removed, err
}

// ReindexSort renumbers sort densely from 0 among siblings and returns the
// number of categories changed.
func (s *Categories) ReindexSort(ctx context.Context) (int, error) {
	changed := 0
	err := s.r.write(ctx, func(ctx context.Context, _ *changes) error {
		list, err := s.r.loadCategories(ctx)
		if err != nil {
			return err
		}
		next := map[string]int{}
		n := 0
		for i := range list {
			scope := list[i].ParentID
			if list[i].Sort != next[scope] {
				list[i].Sort = next[scope]
				n++
			}
			next[scope]++
		}
		if n == 0 {
			return nil
		}
		if err := s.r.saveCategories(ctx, list); err != nil {
			return err
		}
		changed = n
		return nil
	})
	return changed, err
}

// categoryIDs returns the ids a bookmark may reference, sentinel included.
func (r *Repository) categoryIDs(ctx context.Context) (map[string]bool, error) {
	list, err := r.loadCategories(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(list)+1)
	known[domain.UncategorizedID] = true
	for _, c := range list {
		known[c.ID] = true
	}
	return known, nil
}

func categoryIndex(list []domain.Category, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// nextCategorySorts returns, per parent, one past the highest sort in use.
func nextCategorySorts(list []domain.Category) map[string]int {
	next := map[string]int{}
	for _, c := range list {
		bump(next, c.ParentID, c.Sort)
	}
	return next
}

func categorySlot(c *domain.Category) (string, string, *int) {
	return c.ID, c.ParentID, &c.Sort
}

func parentMap(list []domain.Category) map[string]string {
	m := make(map[string]string, len(list))
	for _, c := range list {
		m[c.ID] = c.ParentID
	}
	return m
}
