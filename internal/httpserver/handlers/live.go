package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/pulse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pulse/internal/live"
)

// Live upgrades the connection and streams new pulses to it.
func Live(d deps.Deps) http.HandlerFunc {
	upgrader := live.NewUpgrader(d.CORSOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		d.Live.Serve(w, r, upgrader)
	}
}
