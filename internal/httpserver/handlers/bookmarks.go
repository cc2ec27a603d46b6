package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type createBookmarkRequest struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	CategoryID  string   `json:"categoryId"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	IsPinned    bool     `json:"isPinned"`
	// OnGrid also places the bookmark on the homepage grid, at GridIndex
	// when given.
	OnGrid    bool `json:"onGrid"`
	GridIndex *int `json:"gridIndex"`
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

type countResponse struct {
	Changed int `json:"changed"`
}

// ListBookmarks returns every bookmark, optionally filtered by ?category=.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := d.Repo.Bookmarks().GetAll(r.Context())
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}

		if cat := r.URL.Query().Get("category"); cat != "" {
			filtered := make([]domain.Bookmark, 0, len(all))
			for _, b := range all {
				if b.CategoryID == cat {
					filtered = append(filtered, b)
				}
			}
			all = filtered
		}
		writeJSON(w, http.StatusOK, all)
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookmarkRequest
		if !decodeBody(w, r, &req) {
			return
		}

		ctx := r.Context()
		b := domain.NewBookmark(req.URL, req.Title, req.CategoryID)
		b.Description = req.Description
		b.Tags = domain.DedupeTags(req.Tags)
		b.IsPinned = req.IsPinned

		if err := d.Repo.Bookmarks().Put(ctx, b); err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		if req.OnGrid {
			if err := d.Repo.Layout().Add(ctx, b.ID, req.GridIndex); err != nil {
				d.Logger.Warn("bookmark saved but not placed on grid",
					logger.String("bookmark_id", b.ID),
					logger.Error(err))
			}
		}

		stored, err := d.Repo.Bookmarks().Get(ctx, b.ID)
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

// DeleteBookmark removes a bookmark and its grid entry.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")

		removed, err := d.Repo.Bookmarks().Remove(ctx, id)
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, "bookmark not found")
			return
		}

		if _, err := d.Repo.Layout().Remove(ctx, id); err != nil {
			d.Logger.Warn("failed to drop bookmark from grid",
				logger.String("bookmark_id", id),
				logger.Error(err))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ReindexBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := d.Repo.Bookmarks().ReindexSort(r.Context())
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, countResponse{Changed: n})
	}
}

func PinBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pinRequest
		if !decodeBody(w, r, &req) {
			return
		}
		b, err := d.Repo.Bookmarks().SetPinned(r.Context(), chi.URLParam(r, "id"), req.Pinned)
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// VisitBookmark counts a click and returns the updated bookmark.
func VisitBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := d.Repo.Bookmarks().RecordVisit(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}
