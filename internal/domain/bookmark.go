package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source tells who created a record and therefore who may delete it.
type Source string

const (
	SourceUser     Source = "user"
	SourceExternal Source = "external"
)

// UncategorizedID is the sentinel category every orphan bookmark belongs to.
const UncategorizedID = "uncategorized"

// Bookmark is the persisted bookmark record.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	ID string `json:"id"`

	// ─────────────────────────────
	// External-owned
	// (overwritten by tree sync)
	// ─────────────────────────────

	URL        string `json:"url"`
	Title      string `json:"title"`
	CategoryID string `json:"categoryId"`
	Sort       int    `json:"sort"`

	// ─────────────────────────────
	// User-owned
	// (never touched by tree sync)
	// ─────────────────────────────

	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	IsPinned    bool       `json:"isPinned"`
	PinnedAt    *time.Time `json:"pinnedAt,omitempty"`
	ClickCount  int64      `json:"clickCount"`
	LastVisited *time.Time `json:"lastVisited,omitempty"`

	// ─────────────────────────────
	// Provenance & metadata
	// ─────────────────────────────

	Source     Source    `json:"source"`
	ExternalID string    `json:"externalId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewBookmark returns a user bookmark with a fresh id, ready to Put.
func NewBookmark(rawURL, title, categoryID string) Bookmark {
	return Bookmark{
		ID:         uuid.NewString(),
		URL:        strings.TrimSpace(rawURL),
		Title:      title,
		CategoryID: categoryID,
		Tags:       []string{},
		Source:     SourceUser,
	}
}

func (b Bookmark) IsExternal() bool { return b.Source == SourceExternal }

func (b Bookmark) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return invalid("bookmark id is required")
	}
	if strings.TrimSpace(b.URL) == "" {
		return invalid("bookmark %s: url is required", b.ID)
	}
	switch b.Source {
	case "", SourceUser, SourceExternal:
	default:
		return invalid("bookmark %s: unknown source %q", b.ID, b.Source)
	}
	return nil
}

// Normalize fills defaults and enforces the pin pairing: PinnedAt is set
// exactly when IsPinned is true.
func (b *Bookmark) Normalize(now time.Time) {
	if b.Source == "" {
		b.Source = SourceUser
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		b.CategoryID = UncategorizedID
	}
	b.Tags = DedupeTags(b.Tags)

	if !b.IsPinned {
		b.PinnedAt = nil
		return
	}
	if b.PinnedAt == nil {
		var at time.Time
		switch {
		case !b.UpdatedAt.IsZero():
			at = b.UpdatedAt
		case !b.CreatedAt.IsZero():
			at = b.CreatedAt
		default:
			at = now
		}
		b.PinnedAt = &at
	}
}

// SetPinned toggles the pin and keeps PinnedAt in step.
func (b *Bookmark) SetPinned(pinned bool, now time.Time) {
	b.IsPinned = pinned
	if pinned {
		if b.PinnedAt == nil {
			b.PinnedAt = &now
		}
		return
	}
	b.PinnedAt = nil
}

// DedupeTags trims tags and drops empties and repeats, keeping first-seen
// order. It never returns nil.
func DedupeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
