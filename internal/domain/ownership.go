package domain

// Field ownership decides what a tree sync may overwrite. External fields
// mirror the tree; user fields are only ever changed by the user.

type bookmarkField struct {
	name  string
	merge func(dst *Bookmark, src Bookmark) bool
}

type categoryField struct {
	name  string
	merge func(dst *Category, src Category) bool
}

var bookmarkExternal = []bookmarkField{
	{"title", func(d *Bookmark, s Bookmark) bool { return assign(&d.Title, s.Title) }},
	{"url", func(d *Bookmark, s Bookmark) bool { return assign(&d.URL, s.URL) }},
	{"categoryId", func(d *Bookmark, s Bookmark) bool { return assign(&d.CategoryID, s.CategoryID) }},
	{"sort", func(d *Bookmark, s Bookmark) bool { return assign(&d.Sort, s.Sort) }},
}

var categoryExternal = []categoryField{
	{"name", func(d *Category, s Category) bool { return assign(&d.Name, s.Name) }},
	{"parentId", func(d *Category, s Category) bool { return assign(&d.ParentID, s.ParentID) }},
	{"sort", func(d *Category, s Category) bool { return assign(&d.Sort, s.Sort) }},
}

var (
	BookmarkExternalFields = bookmarkFieldNames(bookmarkExternal)
	BookmarkUserFields     = []string{"tags", "description", "isPinned", "pinnedAt", "clickCount", "lastVisited"}

	CategoryExternalFields = categoryFieldNames(categoryExternal)
	CategoryUserFields     = []string{"icon", "color", "isPinned"}
)

// MergeExternalBookmark copies the external-owned fields of incoming onto
// existing and reports whether any of them changed. Everything else,
// including identity and provenance, is kept from existing.
func MergeExternalBookmark(existing, incoming Bookmark) (Bookmark, bool) {
	changed := false
	for _, f := range bookmarkExternal {
		if f.merge(&existing, incoming) {
			changed = true
		}
	}
	return existing, changed
}

// MergeExternalCategory is MergeExternalBookmark for categories.
func MergeExternalCategory(existing, incoming Category) (Category, bool) {
	changed := false
	for _, f := range categoryExternal {
		if f.merge(&existing, incoming) {
			changed = true
		}
	}
	return existing, changed
}

func assign[T comparable](dst *T, v T) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func bookmarkFieldNames(fs []bookmarkField) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.name
	}
	return out
}

func categoryFieldNames(fs []categoryField) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.name
	}
	return out
}
