package mw

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	gojson "github.com/goccy/go-json"

	"github.com/MrSnakeDoc/pulse/internal/utils"
)

// RateLimit limits each client IP to requests per window. A non-positive
// requests disables limiting.
func RateLimit(requests int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return utils.ClientIP(r, trustProxy), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = gojson.NewEncoder(w).Encode(map[string]string{"error": "Too many requests"})
		}),
	)
}
