package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/store"
)

// flexTime decodes RFC3339 strings, epoch-millisecond numbers (or numeric
// strings) and null. Older records used all three.
type flexTime struct {
	t   time.Time
	set bool
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			f.t, f.set = t, true
			return nil
		}
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			f.t, f.set = time.UnixMilli(int64(ms)), true
		}
		// Unparseable timestamps are treated as missing.
		return nil
	}

	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil
	}
	f.t, f.set = time.UnixMilli(int64(ms)), true
	return nil
}

func (f flexTime) ptr() *time.Time {
	if !f.set {
		return nil
	}
	t := f.t
	return &t
}

// storedBookmark mirrors domain.Bookmark with lenient types for decoding.
type storedBookmark struct {
	ID          string        `json:"id"`
	URL         string        `json:"url"`
	Title       string        `json:"title"`
	CategoryID  string        `json:"categoryId"`
	Sort        float64       `json:"sort"`
	Description string        `json:"description"`
	Tags        []string      `json:"tags"`
	IsPinned    *bool         `json:"isPinned"`
	PinnedAt    flexTime      `json:"pinnedAt"`
	ClickCount  float64       `json:"clickCount"`
	LastVisited flexTime      `json:"lastVisited"`
	Source      domain.Source `json:"source"`
	ExternalID  string        `json:"externalId"`
	CreatedAt   flexTime      `json:"createdAt"`
	UpdatedAt   flexTime      `json:"updatedAt"`
}

func (s storedBookmark) toDomain(now time.Time) domain.Bookmark {
	b := domain.Bookmark{
		ID:          s.ID,
		URL:         s.URL,
		Title:       s.Title,
		CategoryID:  s.CategoryID,
		Sort:        int(s.Sort),
		Description: s.Description,
		Tags:        s.Tags,
		IsPinned:    s.IsPinned != nil && *s.IsPinned,
		PinnedAt:    s.PinnedAt.ptr(),
		ClickCount:  int64(s.ClickCount),
		LastVisited: s.LastVisited.ptr(),
		Source:      s.Source,
		ExternalID:  s.ExternalID,
		CreatedAt:   s.CreatedAt.t,
		UpdatedAt:   s.UpdatedAt.t,
	}
	b.Normalize(now)
	return b
}

// decodeList splits a stored JSON array into elements so one bad record
// does not hide the others.
func decodeList(raw []byte) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return raw, nil
}

func (r *Repository) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (r *Repository) loadBookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	raw, err := r.get(ctx, KeyBookmarks)
	if err != nil || raw == nil {
		return []domain.Bookmark{}, err
	}
	items, err := decodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyBookmarks, err)
	}

	now := r.now()
	out := make([]domain.Bookmark, 0, len(items))
	for i, item := range items {
		var s storedBookmark
		if err := json.Unmarshal(item, &s); err != nil || s.ID == "" {
			r.log.Warn("skipping unreadable bookmark record", logger.Int("index", i), logger.Error(err))
			continue
		}
		out = append(out, s.toDomain(now))
	}
	sortBookmarks(out)
	return out, nil
}

func (r *Repository) saveBookmarks(ctx context.Context, list []domain.Bookmark) error {
	sortBookmarks(list)
	return r.put(ctx, KeyBookmarks, list)
}

func sortBookmarks(list []domain.Bookmark) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Sort != b.Sort {
			return a.Sort < b.Sort
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

type storedCategory struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	ParentID   *string       `json:"parentId"`
	Sort       float64       `json:"sort"`
	Icon       string        `json:"icon"`
	Color      string        `json:"color"`
	IsPinned   bool          `json:"isPinned"`
	Source     domain.Source `json:"source"`
	ExternalID string        `json:"externalId"`
}

func (s storedCategory) toDomain() domain.Category {
	c := domain.Category{
		ID:         s.ID,
		Name:       s.Name,
		Sort:       int(s.Sort),
		Icon:       s.Icon,
		Color:      s.Color,
		IsPinned:   s.IsPinned,
		Source:     s.Source,
		ExternalID: s.ExternalID,
	}
	if s.ParentID != nil {
		c.ParentID = *s.ParentID
	}
	if c.Source == "" {
		c.Source = domain.SourceUser
	}
	return c
}

func (r *Repository) loadCategories(ctx context.Context) ([]domain.Category, error) {
	raw, err := r.get(ctx, KeyCategories)
	if err != nil || raw == nil {
		return []domain.Category{}, err
	}
	items, err := decodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyCategories, err)
	}

	out := make([]domain.Category, 0, len(items))
	for i, item := range items {
		var s storedCategory
		if err := json.Unmarshal(item, &s); err != nil || s.ID == "" {
			r.log.Warn("skipping unreadable category record", logger.Int("index", i), logger.Error(err))
			continue
		}
		out = append(out, s.toDomain())
	}
	sortCategories(out)
	return out, nil
}

func (r *Repository) saveCategories(ctx context.Context, list []domain.Category) error {
	sortCategories(list)
	return r.put(ctx, KeyCategories, list)
}

func sortCategories(list []domain.Category) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Sort != list[j].Sort {
			return list[i].Sort < list[j].Sort
		}
		return list[i].ID < list[j].ID
	})
}

// readLayout decodes the stored layout as is. ok is false when it is
// absent, unreadable or written by another layout version.
func (r *Repository) readLayout(ctx context.Context) (l domain.Layout, ok bool, err error) {
	raw, err := r.get(ctx, KeyLayout)
	if err != nil || raw == nil {
		return domain.Layout{}, false, err
	}
	if err := json.Unmarshal(raw, &l); err != nil {
		r.log.Warn("stored layout unreadable, using default", logger.Error(err))
		return domain.Layout{}, false, nil
	}
	if l.Config.Version != domain.LayoutVersion {
		r.log.Info("stored layout version mismatch, using default",
			logger.Int("version", l.Config.Version))
		return domain.Layout{}, false, nil
	}
	if l.Items == nil {
		l.Items = []domain.LayoutItem{}
	}
	if domain.ValidateColumns(l.Config.Columns) != nil {
		l.Config.Columns = domain.DefaultColumns
	}
	return l, true, nil
}

// loadLayout returns the stored layout densified, or the default layout.
func (r *Repository) loadLayout(ctx context.Context) (domain.Layout, error) {
	l, ok, err := r.readLayout(ctx)
	if err != nil {
		return domain.Layout{}, err
	}
	if !ok {
		return domain.DefaultLayout(r.now()), nil
	}
	l.Densify()
	return l, nil
}

func (r *Repository) saveLayout(ctx context.Context, l domain.Layout) error {
	return r.put(ctx, KeyLayout, l)
}
