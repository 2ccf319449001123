package handlers

import (
	"errors"
	"net/http"

	gojson "github.com/goccy/go-json"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pulse/internal/pulse"
)

const maxPulseBody = 64 << 10

type createPulseResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type pulsesResponse struct {
	Pulses []domain.PulseView `json:"pulses"`
}

// CreatePulse records one pulse.
func CreatePulse(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in pulse.Submission
		body := http.MaxBytesReader(w, r.Body, maxPulseBody)
		if err := gojson.NewDecoder(body).Decode(&in); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		p, err := d.Pulses.Submit(r.Context(), in)
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to create pulse")
			return
		}

		writeJSON(w, http.StatusCreated, createPulseResponse{Success: true, ID: p.ID})
	}
}

// ListPulses returns the latest pulses, newest first.
func ListPulses(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", d.Pulses.FeedLimit())
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to fetch pulses")
			return
		}

		views, err := d.Pulses.Latest(r.Context(), limit)
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to fetch pulses")
			return
		}

		writeJSON(w, http.StatusOK, pulsesResponse{Pulses: views})
	}
}
