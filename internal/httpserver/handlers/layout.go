package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type layoutItemRequest struct {
	BookmarkID string `json:"bookmarkId"`
	GridIndex  *int   `json:"gridIndex"`
}

type layoutMoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type layoutConfigRequest struct {
	Columns        int  `json:"columns"`
	ShowEmptyGuide bool `json:"showEmptyGuide"`
}

func GetLayout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := d.Repo.Layout().Get(r.Context())
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// modifyLayout runs fn and answers with the resulting layout.
func modifyLayout(d deps.Deps, w http.ResponseWriter, r *http.Request, fn func() error) {
	if err := fn(); err != nil {
		writeFailure(w, d.Logger, err)
		return
	}
	GetLayout(d)(w, r)
}

func AddLayoutItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req layoutItemRequest
		if !decodeBody(w, r, &req) {
			return
		}
		modifyLayout(d, w, r, func() error {
			return d.Repo.Layout().Add(r.Context(), req.BookmarkID, req.GridIndex)
		})
	}
}

func RemoveLayoutItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modifyLayout(d, w, r, func() error {
			_, err := d.Repo.Layout().Remove(r.Context(), chi.URLParam(r, "id"))
			return err
		})
	}
}

func MoveLayoutItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req layoutMoveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		modifyLayout(d, w, r, func() error {
			return d.Repo.Layout().Move(r.Context(), req.From, req.To)
		})
	}
}

func SetLayoutConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req layoutConfigRequest
		if !decodeBody(w, r, &req) {
			return
		}
		modifyLayout(d, w, r, func() error {
			return d.Repo.Layout().SetConfig(r.Context(), req.Columns, req.ShowEmptyGuide)
		})
	}
}
