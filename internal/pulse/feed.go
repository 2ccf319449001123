package pulse

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/metrics"
)

type feedParams struct {
	Limit int `json:"limit" validate:"min=1,max=500"`
}

// Latest returns the newest pulses joined with their objects, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]domain.PulseView, error) {
	if err := checkParams(&feedParams{Limit: limit}); err != nil {
		return nil, err
	}

	start := time.Now()
	views, err := s.store.LatestPulses(ctx, limit)
	metrics.ObserveQuery("latest", start, err)
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = []domain.PulseView{}
	}
	return views, nil
}
