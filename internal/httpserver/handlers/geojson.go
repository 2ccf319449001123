package handlers

import (
	"net/http"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/httpserver/deps"
)

// GeoJSON renders the latest pulses as a FeatureCollection of points.
// Pulses on the (0,0) sentinel are left out.
func GeoJSON(d deps.Deps) http.HandlerFunc {
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

		body, err := pulseFeatures(views).MarshalJSON()
		if err != nil {
			writeFailure(w, r, d.Logger, err, "Failed to encode pulses")
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func pulseFeatures(views []domain.PulseView) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, v := range views {
		if v.IsSentinelLocation() {
			continue
		}
		// GeoJSON positions are [lng, lat].
		f := geojson.NewPointFeature([]float64{v.Longitude, v.Latitude})
		f.ID = v.ID
		f.SetProperty("objectId", v.ObjectID)
		f.SetProperty("title", v.Title)
		f.SetProperty("type", string(v.Type))
		f.SetProperty("reactionType", string(v.ReactionType))
		f.SetProperty("createdAt", v.CreatedAt.UTC().Format(time.RFC3339))
		if v.Comment != "" {
			f.SetProperty("comment", v.Comment)
		}
		if v.Link != "" {
			f.SetProperty("link", v.Link)
		}
		fc.AddFeature(f)
	}
	return fc
}
