package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/logger"
)

// Refresher is implemented by catalog.GenreCache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// GenreRefresher refreshes the genre table on a ticker and on demand.
type GenreRefresher struct {
	cache         Refresher
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewGenreRefresher(cache Refresher, log logger.Logger, interval time.Duration, manualTrigger chan struct{}) *GenreRefresher {
	return &GenreRefresher{
		cache:         cache,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start refreshes once, then keeps refreshing in the background until Stop
// or ctx is done. A failed first refresh is not fatal: the cache serves its
// fallback table until a refresh succeeds.
func (gr *GenreRefresher) Start(ctx context.Context) error {
	gr.refresh(ctx, "initial")

	ticker := time.NewTicker(gr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gr.refresh(ctx, "scheduled")
			case <-gr.manualTrigger:
				gr.refresh(ctx, "manual")
			case <-gr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the background loop. It must be called at most once.
func (gr *GenreRefresher) Stop() {
	close(gr.stopCh)
}

func (gr *GenreRefresher) refresh(ctx context.Context, reason string) {
	if err := gr.cache.Refresh(ctx); err != nil {
		gr.logger.Warn("genre refresh failed",
			logger.String("reason", reason),
			logger.Error(err))
		return
	}
	gr.logger.Info("genre table refreshed", logger.String("reason", reason))
}
