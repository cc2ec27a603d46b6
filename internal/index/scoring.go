package index

import (
	"math"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Query equals the first host label ("github" for github.com)
	ScoreExactHostBonus = 200.0

	// Click counter contribution (logarithmic)
	ScoreUsageWeight = 0.1

	ScorePinnedBonus = 5.0
)

// lexicalScore ranks a bookmark by tiered matching on its title and host.
// Zero means no tier matched; the fuzzy pass may still pick it up.
func lexicalScore(query string, b domain.Bookmark) float64 {
	host := hostOf(b.URL)
	if label, _, _ := strings.Cut(host, "."); label != "" && label == query {
		return ScoreExactMatch + ScoreExactHostBonus
	}

	return max(scoreText(query, strings.ToLower(b.Title)), scoreText(query, host))
}

func scoreText(query, text string) float64 {
	if query == "" || text == "" {
		return 0.0
	}

	if query == text {
		return ScoreExactMatch
	}

	if strings.HasPrefix(text, query) {
		return ScorePrefixMatch
	}

	if i := strings.Index(text, query); i >= 0 {
		bonus := ScorePositionBonus * (1.0 - float64(i)/float64(len(text)))
		return ScoreSubstringMatch + bonus
	}

	// Every query word present somewhere
	words := strings.Fields(query)
	if len(words) > 1 {
		for _, w := range words {
			if !strings.Contains(text, w) {
				return 0.0
			}
		}
		return ScoreFuzzyMatch
	}

	return 0.0
}

// fuzzyScore maps a sahilm/fuzzy score into the band below substring matches.
func fuzzyScore(raw int) float64 {
	v := ScoreFuzzyMatch + float64(raw)/10
	return max(1, min(v, ScoreSubstringMatch-1))
}

func usageScore(b domain.Bookmark) float64 {
	s := 0.0
	if b.ClickCount > 0 {
		s = math.Log10(float64(b.ClickCount)+1) * ScoreUsageWeight * 100
	}
	if b.IsPinned {
		s += ScorePinnedBonus
	}
	return s
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
