package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type categoryRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
}

type moveCategoryRequest struct {
	ParentID string `json:"parentId"`
}

func ListCategories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := d.Repo.Categories().GetAll(r.Context())
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, all)
	}
}

func CreateCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if !decodeBody(w, r, &req) {
			return
		}

		c := domain.Category{
			ID:       uuid.NewString(),
			Name:     req.Name,
			ParentID: req.ParentID,
			Icon:     req.Icon,
			Color:    req.Color,
			Source:   domain.SourceUser,
		}
		if err := d.Repo.Categories().Put(r.Context(), c); err != nil {
			writeFailure(w, d.Logger, err)
			return
		}

		stored, err := d.Repo.Categories().Get(r.Context(), c.ID)
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

func MoveCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveCategoryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := d.Repo.Categories().Move(r.Context(), chi.URLParam(r, "id"), req.ParentID); err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteCategory removes a category. Its children move up to its parent
// and its bookmarks become uncategorized.
func DeleteCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := d.Repo.Categories().Remove(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(w, d.Logger, err)
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
