package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pulse/internal/pulse"
)

type nearbyResponse struct {
	Nearby []domain.NearbyItem `json:"nearby"`
}

// Nearby lists the objects pulsing around lat/lng.
func Nearby(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat := coordinate(r, "lat")
		lng := coordinate(r, "lng")

		radius, err := queryFloat(r, "radius", d.Pulses.DefaultRadiusKm())
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to fetch nearby pulses")
			return
		}
		limit, err := queryInt(r, "limit", pulse.DefaultNearbyLimit)
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to fetch nearby pulses")
			return
		}

		items, err := d.Pulses.Nearby(r.Context(), lat, lng, radius, limit)
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to fetch nearby pulses")
			return
		}

		writeJSON(w, http.StatusOK, nearbyResponse{Nearby: items})
	}
}

// coordinate reads a coordinate parameter. Missing or unparsable values
// read as 0, which the service treats as missing.
func coordinate(r *http.Request, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get(name)), 64)
	if err != nil {
		return 0
	}
	return v
}
