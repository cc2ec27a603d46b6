package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Bookmarks is the bookmark collection.
type Bookmarks struct {
	r *Repository
}

// GetAll returns every bookmark, normalized and ordered by
// (sort, createdAt, id). It takes no lock.
func (s *Bookmarks) GetAll(ctx context.Context) ([]domain.Bookmark, error) {
	return s.r.loadBookmarks(ctx)
}

func (s *Bookmarks) Get(ctx context.Context, id string) (domain.Bookmark, error) {
	list, err := s.r.loadBookmarks(ctx)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if i := bookmarkIndex(list, id); i >= 0 {
		return list[i], nil
	}
	return domain.Bookmark{}, fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
}

// Put inserts or replaces b by id.
func (s *Bookmarks) Put(ctx context.Context, b domain.Bookmark, opts ...PutOption) error {
	_, _, err := s.PutAll(ctx, []domain.Bookmark{b}, opts...)
	return err
}

// PutAll upserts every bookmark in one guarded read-modify-write and
// returns how many were added and updated. Input is validated before the
// store is touched. New bookmarks must reference a known category and are
// placed after the highest sort of their category unless WithExplicitSort
// is given.
func (s *Bookmarks) PutAll(ctx context.Context, bs []domain.Bookmark, opts ...PutOption) (added, updated int, err error) {
	if len(bs) == 0 {
		return 0, 0, nil
	}
	for _, b := range bs {
		if err := b.Validate(); err != nil {
			return 0, 0, err
		}
	}
	cfg := newPutConfig(opts)

	err = s.r.write(ctx, func(ctx context.Context, ch *changes) error {
		list, err := s.r.loadBookmarks(ctx)
		if err != nil {
			return err
		}
		known, err := s.r.categoryIDs(ctx)
		if err != nil {
			return err
		}

		now := s.r.now()
		next := nextSorts(list)
		var owners map[string]domain.Bookmark
		if cfg.merge {
			owners = urlOwners(list)
		}
		written := map[string]struct{}{}
		var a, u int
		var events changes

		for _, b := range bs {
			if b.CategoryID == "" {
				b.CategoryID = domain.UncategorizedID
			}

			if i := bookmarkIndex(list, b.ID); i >= 0 {
				existing := list[i]
				if cfg.merge {
					merged, ok := mergeExternal(existing, b, owners)
					if !ok {
						continue
					}
					b = merged
				} else {
					b.CreatedAt = existing.CreatedAt
				}
				if b.CategoryID != existing.CategoryID {
					if !known[b.CategoryID] {
						return fmt.Errorf("%w: bookmark %s: unknown category %s", domain.ErrValidation, b.ID, b.CategoryID)
					}
					if !cfg.keepSort {
						b.Sort = next[b.CategoryID]
					}
				}
				bump(next, b.CategoryID, b.Sort)
				b.UpdatedAt = now
				b.Normalize(now)
				list[i] = b
				written[b.ID] = struct{}{}
				events.updated(b)
				u++
				continue
			}

			if !known[b.CategoryID] {
				return fmt.Errorf("%w: bookmark %s: unknown category %s", domain.ErrValidation, b.ID, b.CategoryID)
			}
			if cfg.merge {
				norm := domain.NormalizeURL(b.URL)
				if claimed(owners, norm, b) {
					continue
				}
				owners[norm] = b
			}
			if !cfg.keepSort {
				b.Sort = next[b.CategoryID]
			}
			bump(next, b.CategoryID, b.Sort)
			if b.CreatedAt.IsZero() {
				b.CreatedAt = now
			}
			b.UpdatedAt = now
			b.Normalize(now)
			list = append(list, b)
			written[b.ID] = struct{}{}
			events.added(b)
			a++
		}

		if a+u == 0 {
			return nil
		}
		if cfg.merge {
			for _, i := range spreadCollisions(list, written, bookmarkSlot) {
				events.updated(list[i])
			}
		}
		if err := s.r.saveBookmarks(ctx, list); err != nil {
			return err
		}
		*ch = append(*ch, events...)
		added, updated = a, u
		return nil
	})
	return added, updated, err
}

// mergeExternal applies the externally owned fields of incoming to the
// stored copy. It reports false when nothing changed or the stored record
// belongs to the user.
func mergeExternal(existing, incoming domain.Bookmark, owners map[string]domain.Bookmark) (domain.Bookmark, bool) {
	if !existing.IsExternal() {
		return existing, false
	}
	oldNorm := domain.NormalizeURL(existing.URL)
	norm := domain.NormalizeURL(incoming.URL)
	if claimed(owners, norm, existing) {
		incoming.URL = existing.URL
		norm = oldNorm
	}
	merged, changed := domain.MergeExternalBookmark(existing, incoming)
	if !changed {
		return existing, false
	}
	if norm != oldNorm {
		if owners[oldNorm].ID == existing.ID {
			delete(owners, oldNorm)
		}
		owners[norm] = merged
	}
	return merged, true
}

// claimed reports whether a tree sync must keep off url because another
// stored bookmark holds it: any user bookmark, or an external one
// mirroring the same node. External bookmarks of other nodes belong to the
// sync itself, which updates or deletes them in the same run.
func claimed(owners map[string]domain.Bookmark, norm string, self domain.Bookmark) bool {
	o, ok := owners[norm]
	if !ok || o.ID == self.ID {
		return false
	}
	return !o.IsExternal() || o.ExternalID == self.ExternalID
}

// Remove deletes a bookmark. Other bookmarks keep their sort values.
func (s *Bookmarks) Remove(ctx context.Context, id string) (bool, error) {
	n, err := s.RemoveAll(ctx, []string{id})
	return n > 0, err
}

// RemoveAll deletes every listed id that exists and returns the count.
func (s *Bookmarks) RemoveAll(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	removed := 0
	err := s.r.write(ctx, func(ctx context.Context, ch *changes) error {
		list, err := s.r.loadBookmarks(ctx)
		if err != nil {
			return err
		}
		kept := list[:0]
		var gone []string
		for _, b := range list {
			if _, ok := drop[b.ID]; ok {
				gone = append(gone, b.ID)
				continue
			}
			kept = append(kept, b)
		}
		if len(gone) == 0 {
			return nil
		}
		if err := s.r.saveBookmarks(ctx, kept); err != nil {
			return err
		}
		for _, id := range gone {
			ch.removed(id)
		}
		removed = len(gone)
		return nil
	})
	return removed, err
}

// ReindexSort renumbers sort densely from 0 inside each category, keeping
// the current relative order. It returns the number of bookmarks whose
// sort changed and writes nothing when that number is zero.
func (s *Bookmarks) ReindexSort(ctx context.Context) (int, error) {
	changed := 0
	err := s.r.write(ctx, func(ctx context.Context, ch *changes) error {
		list, err := s.r.loadBookmarks(ctx)
		if err != nil {
			return err
		}

		next := map[string]int{}
		var events changes
		for i := range list {
			scope := list[i].CategoryID
			if list[i].Sort != next[scope] {
				list[i].Sort = next[scope]
				events.updated(list[i])
			}
			next[scope]++
		}
		if len(events) == 0 {
			return nil
		}
		if err := s.r.saveBookmarks(ctx, list); err != nil {
			return err
		}
		*ch = append(*ch, events...)
		changed = len(events)
		return nil
	})
	return changed, err
}

// SetPinned pins or unpins a bookmark.
func (s *Bookmarks) SetPinned(ctx context.Context, id string, pinned bool) (domain.Bookmark, error) {
	return s.update(ctx, id, func(b *domain.Bookmark, now time.Time) {
		b.SetPinned(pinned, now)
	})
}

// RecordVisit bumps the click counter and the last visit time.
func (s *Bookmarks) RecordVisit(ctx context.Context, id string) (domain.Bookmark, error) {
	return s.update(ctx, id, func(b *domain.Bookmark, now time.Time) {
		b.ClickCount++
		b.LastVisited = &now
	})
}

func (s *Bookmarks) update(ctx context.Context, id string, mutate func(b *domain.Bookmark, now time.Time)) (domain.Bookmark, error) {
	var out domain.Bookmark
	err := s.r.write(ctx, func(ctx context.Context, ch *changes) error {
		list, err := s.r.loadBookmarks(ctx)
		if err != nil {
			return err
		}
		i := bookmarkIndex(list, id)
		if i < 0 {
			return fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
		}
		now := s.r.now()
		mutate(&list[i], now)
		list[i].UpdatedAt = now
		list[i].Normalize(now)
		updated := list[i]
		if err := s.r.saveBookmarks(ctx, list); err != nil {
			return err
		}
		out = updated
		ch.updated(out)
		return nil
	})
	return out, err
}

func bookmarkIndex(list []domain.Bookmark, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// nextSorts returns, per category, one past the highest sort in use.
func nextSorts(list []domain.Bookmark) map[string]int {
	next := map[string]int{}
	for _, b := range list {
		bump(next, b.CategoryID, b.Sort)
	}
	return next
}

func bump(next map[string]int, scope string, sort int) {
	if sort+1 > next[scope] {
		next[scope] = sort + 1
	}
}

// urlOwners maps each normalized URL to a bookmark holding it, preferring
// user bookmarks.
func urlOwners(list []domain.Bookmark) map[string]domain.Bookmark {
	owners := make(map[string]domain.Bookmark, len(list))
	for _, b := range list {
		norm := domain.NormalizeURL(b.URL)
		if o, ok := owners[norm]; ok && !o.IsExternal() {
			continue
		}
		owners[norm] = b
	}
	return owners
}

func bookmarkSlot(b *domain.Bookmark) (string, string, *int) {
	return b.ID, b.CategoryID, &b.Sort
}
