package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps, guard Middleware) {
	r.Route("/bookmarks", func(r chi.Router) {
		r.Get("/", handlers.ListBookmarks(d))

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/", handlers.CreateBookmark(d))
			r.Post("/reindex", handlers.ReindexBookmarks(d))
			r.Delete("/{id}", handlers.DeleteBookmark(d))
			r.Put("/{id}/pin", handlers.PinBookmark(d))
			r.Post("/{id}/visit", handlers.VisitBookmark(d))
		})
	})
}
