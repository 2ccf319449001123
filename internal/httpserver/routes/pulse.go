package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pulse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pulse/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/pulse/internal/httpserver/mw"
)

func init() { Register(registerPulse) }

func registerPulse(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(d.RateLimitRequests, d.RateLimitWindow, d.TrustProxy)

	r.With(limit).Post("/api/pulse", handlers.CreatePulse(d))
	r.Get("/api/pulse", handlers.ListPulses(d))
	r.Get("/api/pulse/nearby", handlers.Nearby(d))
	r.Get("/api/pulse/trending", handlers.Trending(d))
	r.Get("/api/pulse/geojson", handlers.GeoJSON(d))
	if d.Live != nil {
		r.Get("/api/pulse/live", handlers.Live(d))
	}
}
