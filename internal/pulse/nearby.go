package pulse

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/metrics"
)

type nearbyParams struct {
	Lat      float64 `json:"lat" validate:"latitude"`
	Lng      float64 `json:"lng" validate:"longitude"`
	RadiusKm float64 `json:"radius" validate:"gte=0"`
	Limit    int     `json:"limit" validate:"min=1,max=100"`
}

// Nearby returns the (object, coordinate) groups within radiusKm of
// (lat, lng), nearest first, at most limit of them.
//
// A lat or lng of exactly 0 counts as missing. Only the first
// NearbyCandidateLimit groups are considered: with the scan strategy these
// are the earliest seen groups, with the geo strategy the nearest ones.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]domain.NearbyItem, error) {
	if lat == 0 || lng == 0 {
		return nil, domain.ErrMissingCoordinates
	}
	if err := checkParams(&nearbyParams{Lat: lat, Lng: lng, RadiusKm: radiusKm, Limit: limit}); err != nil {
		return nil, err
	}

	center := domain.Point{Lat: lat, Lng: lng}
	start := time.Now()

	var (
		candidates []domain.LocationCandidate
		err        error
	)
	if s.geo != nil {
		candidates, err = s.geo.QueryCandidatesNear(ctx, center, radiusKm, s.opts.NearbyCandidateLimit)
	} else {
		candidates, err = s.store.QueryObjectLocationCandidates(ctx, s.opts.NearbyCandidateLimit)
	}
	metrics.ObserveQuery("nearby", start, err)
	if err != nil {
		return nil, err
	}
	metrics.NearbyCandidates.Observe(float64(len(candidates)))

	return domain.RankNearby(candidates, center, radiusKm, limit), nil
}
