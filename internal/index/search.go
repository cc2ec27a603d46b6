package index

import (
	"cmp"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/sahilm/fuzzy"
)

// Hit is a ranked search result.
type Hit struct {
	Bookmark       domain.Bookmark `json:"bookmark"`
	Score          float64         `json:"score"`
	MatchedIndexes []int           `json:"matchedIndexes,omitempty"` // into Title, fuzzy matches only
}

// candidates implements fuzzy.Source over bookmark titles and URLs.
type candidates []domain.Bookmark

func (c candidates) String(i int) string { return c[i].Title + " " + c[i].URL }
func (c candidates) Len() int            { return len(c) }

// Search ranks bookmarks against query, deduplicated by normalized URL.
// limit <= 0 returns every hit.
func (idx *MemoryIndex) Search(query string, limit int) []Hit {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	all := candidates(idx.All())
	hits := make(map[string]*Hit, len(all))

	for _, b := range all {
		if s := lexicalScore(query, b); s > 0 {
			hits[b.ID] = &Hit{Bookmark: b, Score: s}
		}
	}

	for _, m := range fuzzy.FindFrom(query, all) {
		b := all[m.Index]
		if _, ok := hits[b.ID]; ok {
			continue
		}
		hits[b.ID] = &Hit{
			Bookmark:       b,
			Score:          fuzzyScore(m.Score),
			MatchedIndexes: titleIndexes(m.MatchedIndexes, len(b.Title)),
		}
	}

	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		h.Score += usageScore(h.Bookmark)
		out = append(out, *h)
	}
	slices.SortFunc(out, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Bookmark.ID, b.Bookmark.ID)
	})

	out = DedupeByURL(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func titleIndexes(idx []int, titleLen int) []int {
	var out []int
	for _, i := range idx {
		if i < titleLen {
			out = append(out, i)
		}
	}
	return out
}

// DedupeByURL keeps one hit per normalized URL: the pinned one, else the
// most recently updated. The survivor takes the best score of its group and
// the position of the first hit. Storage is never affected.
func DedupeByURL(hits []Hit) []Hit {
	out := make([]Hit, 0, len(hits))
	seen := make(map[string]int, len(hits))

	for _, h := range hits {
		key := domain.NormalizeURL(h.Bookmark.URL)
		i, ok := seen[key]
		if !ok {
			seen[key] = len(out)
			out = append(out, h)
			continue
		}
		if preferred(h.Bookmark, out[i].Bookmark) {
			score := max(h.Score, out[i].Score)
			out[i] = h
			out[i].Score = score
		}
	}
	return out
}

func preferred(a, b domain.Bookmark) bool {
	if a.IsPinned != b.IsPinned {
		return a.IsPinned
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}
