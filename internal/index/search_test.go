package index

import (
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func TestScoreText(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		want  float64
	}{
		{name: "exact", query: "grafana", text: "grafana", want: ScoreExactMatch},
		{name: "prefix", query: "graf", text: "grafana", want: ScorePrefixMatch},
		{name: "substring at start of word", query: "docs", text: "go docs", want: ScoreSubstringMatch + ScorePositionBonus*(1.0-3.0/7.0)},
		{name: "all words", query: "go ref", text: "reference for go", want: ScoreFuzzyMatch},
		{name: "no match", query: "zzz", text: "grafana", want: 0},
		{name: "empty text", query: "a", text: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreText(tt.query, tt.text); got != tt.want {
				t.Errorf("scoreText(%q, %q) = %v, want %v", tt.query, tt.text, got, tt.want)
			}
		})
	}
}

func TestLexicalScoreHostBonus(t *testing.T) {
	b := domain.Bookmark{Title: "Where code lives", URL: "https://www.github.com/"}
	if got := lexicalScore("github", b); got != ScoreExactMatch+ScoreExactHostBonus {
		t.Errorf("lexicalScore() = %v, want host bonus", got)
	}
}

func TestSearchRanking(t *testing.T) {
	index := NewMemoryIndex()
	index.Warm([]domain.Bookmark{
		{ID: "1", Title: "Grafana", URL: "https://grafana.lan"},
		{ID: "2", Title: "My Grafana dashboards", URL: "https://dash.lan/grafana"},
		{ID: "3", Title: "Gitea", URL: "https://git.lan"},
		{ID: "4", Title: "Go reference", URL: "https://pkg.go.dev"},
	})

	hits := index.Search("grafana", 0)
	if len(hits) < 2 {
		t.Fatalf("Search() = %d hits, want at least 2", len(hits))
	}
	if hits[0].Bookmark.ID != "1" {
		t.Errorf("top hit = %s, want exact host match 1", hits[0].Bookmark.ID)
	}
	if hits[1].Bookmark.ID != "2" {
		t.Errorf("second hit = %s, want substring match 2", hits[1].Bookmark.ID)
	}
	for _, h := range hits {
		if h.Bookmark.ID == "3" || h.Bookmark.ID == "4" {
			t.Errorf("unrelated bookmark %s matched", h.Bookmark.ID)
		}
	}

	if got := index.Search("   ", 10); got != nil {
		t.Errorf("blank query = %v, want nil", got)
	}
	if got := index.Search("grafana", 1); len(got) != 1 {
		t.Errorf("limit 1 returned %d hits", len(got))
	}
}

func TestSearchFuzzyFallback(t *testing.T) {
	index := NewMemoryIndex()
	index.Warm([]domain.Bookmark{
		{ID: "1", Title: "Home Assistant", URL: "https://ha.lan"},
	})

	hits := index.Search("hass", 0)
	if len(hits) != 1 {
		t.Fatalf("Search() = %d hits, want 1 fuzzy hit", len(hits))
	}
	if hits[0].Score <= 0 || hits[0].Score >= ScoreSubstringMatch {
		t.Errorf("fuzzy score = %v, want in (0, %v)", hits[0].Score, ScoreSubstringMatch)
	}
}

func TestSearchUsageBreaksTies(t *testing.T) {
	index := NewMemoryIndex()
	index.Warm([]domain.Bookmark{
		{ID: "a", Title: "Wiki", URL: "https://wiki-a.lan"},
		{ID: "b", Title: "Wiki", URL: "https://wiki-b.lan", ClickCount: 40},
	})

	hits := index.Search("wiki", 0)
	if len(hits) != 2 || hits[0].Bookmark.ID != "b" {
		t.Errorf("Search() = %+v, want frequently clicked b first", hits)
	}
}

func TestDedupeByURL(t *testing.T) {
	now := time.Now()
	older := now.Add(-time.Hour)

	tests := []struct {
		name   string
		hits   []Hit
		wantID []string
	}{
		{
			name: "pinned wins",
			hits: []Hit{
				{Bookmark: domain.Bookmark{ID: "a", URL: "https://example.com/page/", UpdatedAt: now}, Score: 90},
				{Bookmark: domain.Bookmark{ID: "b", URL: "http://EXAMPLE.com/page", IsPinned: true, UpdatedAt: older}, Score: 50},
			},
			wantID: []string{"b"},
		},
		{
			name: "most recent wins",
			hits: []Hit{
				{Bookmark: domain.Bookmark{ID: "a", URL: "https://example.com", UpdatedAt: older}},
				{Bookmark: domain.Bookmark{ID: "b", URL: "https://example.com/", UpdatedAt: now}},
			},
			wantID: []string{"b"},
		},
		{
			name: "distinct urls kept in order",
			hits: []Hit{
				{Bookmark: domain.Bookmark{ID: "a", URL: "https://a.test"}},
				{Bookmark: domain.Bookmark{ID: "b", URL: "https://b.test"}},
			},
			wantID: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupeByURL(tt.hits)
			if len(got) != len(tt.wantID) {
				t.Fatalf("DedupeByURL() = %d hits, want %d", len(got), len(tt.wantID))
			}
			for i, id := range tt.wantID {
				if got[i].Bookmark.ID != id {
					t.Errorf("hit[%d] = %s, want %s", i, got[i].Bookmark.ID, id)
				}
			}
		})
	}

	got := DedupeByURL([]Hit{
		{Bookmark: domain.Bookmark{ID: "a", URL: "https://x.test"}, Score: 90},
		{Bookmark: domain.Bookmark{ID: "b", URL: "https://x.test", IsPinned: true}, Score: 10},
	})
	if got[0].Score != 90 {
		t.Errorf("survivor score = %v, want best of group 90", got[0].Score)
	}
}
