package pulse

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/metrics"
)

// max is MaxTrendingWindow in seconds.
type trendingParams struct {
	WindowSeconds int64 `json:"window" validate:"gt=0,max=31536000"`
	Limit         int   `json:"limit" validate:"min=1,max=100"`
}

// Trending ranks objects by the number of pulses created within window of
// now. Ties are broken by title.
func (s *Service) Trending(ctx context.Context, window time.Duration, limit int) ([]domain.TrendingItem, error) {
	params := trendingParams{WindowSeconds: int64(window / time.Second), Limit: limit}
	if err := checkParams(&params); err != nil {
		return nil, err
	}

	cutoff := s.opts.Now().UTC().Add(-window)
	start := time.Now()

	views, err := s.store.QueryPulsesSince(ctx, cutoff)
	metrics.ObserveQuery("trending", start, err)
	if err != nil {
		return nil, err
	}

	return domain.RankTrending(views, cutoff, limit), nil
}
