package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerCategories) }

func registerCategories(r chi.Router, d deps.Deps, guard Middleware) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", handlers.ListCategories(d))

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/", handlers.CreateCategory(d))
			r.Put("/{id}/parent", handlers.MoveCategory(d))
			r.Delete("/{id}", handlers.DeleteCategory(d))
		})
	})
}
