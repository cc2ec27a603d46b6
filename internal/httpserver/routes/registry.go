package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

type (
	// Registrar mounts routes. guard wraps every mutating endpoint.
	Registrar  func(r chi.Router, d deps.Deps, guard Middleware)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var registry []entry

// Register a registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// Called once from server.New()
func RegisterAll(r chi.Router, d deps.Deps) {
	guard := mutatingGuard(d)
	for _, e := range registry {
		if len(e.mws) == 0 {
			e.reg(r, d, guard)
			continue
		}
		sub := r.With(e.mws...) // apply per-route middlewares
		e.reg(sub, d, guard)
	}
}

// mutatingGuard builds the CIDR allow-list and the per-IP rate limit once
// so every mutating route shares the same buckets.
func mutatingGuard(d deps.Deps) Middleware {
	allow := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	if d.RateLimit.Burst <= 0 {
		return allow
	}
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimit.Burst,
		RefillPerIPPerMin: d.RateLimit.PerMinute,
		MaxEntries:        4096,
		TrustProxy:        d.TrustProxy,
	}, d.Logger)
	return func(next http.Handler) http.Handler { return allow(limit(next)) }
}
