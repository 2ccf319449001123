package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/pulse/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	Kind      string `json:"kind,omitempty"`
	Objects   *int64 `json:"objects,omitempty"`
	Pulses    *int64 `json:"pulses,omitempty"`
	Locations *int64 `json:"locations,omitempty"`
	Clients   *int   `json:"clients,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of each component. The overall status is
// "critical" when the store fails and "ok" otherwise.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"store": storeStatus(ctx, d),
		}
		if d.RedisClient != nil {
			components["redis"] = redisStatus(ctx, d)
		}
		if d.Live != nil {
			n := d.Live.ClientCount()
			components["live"] = componentStatus{OK: true, Clients: &n}
		}

		status := "ok"
		if !components["store"].OK {
			status = "critical"
		}

		writeJSON(w, http.StatusOK, infraResponse{Status: status, Components: components})
	}
}

func storeStatus(ctx context.Context, d deps.Deps) componentStatus {
	stats, err := d.Pulses.Stats(ctx)
	if err != nil {
		return componentStatus{OK: false, Kind: d.StoreKind, Error: "unavailable"}
	}
	return componentStatus{
		OK:        true,
		Kind:      d.StoreKind,
		Objects:   &stats.Objects,
		Pulses:    &stats.Pulses,
		Locations: &stats.Locations,
	}
}

func redisStatus(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Error: "timeout"}
	}
	return componentStatus{OK: true}
}
