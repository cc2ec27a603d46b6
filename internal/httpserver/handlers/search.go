package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const defaultSearchLimit = 20

type searchResponse struct {
	Query string      `json:"query"`
	Hits  []index.Hit `json:"hits"`
}

// Search ranks indexed bookmarks against ?q=. ?limit= caps the hits.
func Search(d deps.Deps) http.HandlerFunc {
	limit := d.SearchLimit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "missing query parameter q")
			return
		}

		n := limit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			n = v
		}

		hits := d.Index.Search(query, n)
		d.Logger.Debug("search request",
			logger.String("query", query),
			logger.Int("hits", len(hits)))

		if hits == nil {
			hits = []index.Hit{}
		}
		writeJSON(w, http.StatusOK, searchResponse{Query: query, Hits: hits})
	}
}
