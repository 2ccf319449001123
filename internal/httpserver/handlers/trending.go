package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pulse/internal/pulse"
)

type trendingResponse struct {
	Trending []domain.TrendingItem `json:"trending"`
}

// Trending ranks objects by pulse count over a trailing window given in
// seconds.
func Trending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		windowSeconds, err := queryInt(r, "window", int(d.Pulses.TrendingWindow()/time.Second))
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to fetch trending pulses")
			return
		}
		// bounded before the conversion to time.Duration can overflow
		maxSeconds := int(pulse.MaxTrendingWindow / time.Second)
		if windowSeconds <= 0 || windowSeconds > maxSeconds {
			writeFailure(w, r, d.Logger, &domain.FieldError{
				Field:   "window",
				Message: fmt.Sprintf("window must be between 1 and %d seconds", maxSeconds),
			}, "Failed to fetch trending pulses")
			return
		}
		limit, err := queryInt(r, "limit", pulse.DefaultTrendingLimit)
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to fetch trending pulses")
			return
		}

		items, err := d.Pulses.Trending(r.Context(), time.Duration(windowSeconds)*time.Second, limit)
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to fetch trending pulses")
			return
		}

		writeJSON(w, http.StatusOK, trendingResponse{Trending: items})
	}
}
