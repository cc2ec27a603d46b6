package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerLayout) }

func registerLayout(r chi.Router, d deps.Deps, guard Middleware) {
	r.Route("/layout", func(r chi.Router) {
		r.Get("/", handlers.GetLayout(d))

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Put("/config", handlers.SetLayoutConfig(d))
			r.Post("/items", handlers.AddLayoutItem(d))
			r.Post("/move", handlers.MoveLayoutItem(d))
			r.Delete("/items/{id}", handlers.RemoveLayoutItem(d))
		})
	})
}
