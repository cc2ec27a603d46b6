package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerSync) }

func registerSync(r chi.Router, d deps.Deps, guard Middleware) {
	r.Get("/sync", handlers.SyncStatus(d))
	r.With(guard).Post("/sync", handlers.TriggerSync(d))
}
