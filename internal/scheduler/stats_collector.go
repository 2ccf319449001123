package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/metrics"
)

// StatsSource is implemented by every store.
type StatsSource interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// StatsCollector publishes store counters as Prometheus gauges.
type StatsCollector struct {
	source   StatsSource
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewStatsCollector(source StatsSource, log logger.Logger, interval time.Duration) *StatsCollector {
	return &StatsCollector{
		source:   source,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start collects once, then on every tick until Stop or ctx is done.
func (sc *StatsCollector) Start(ctx context.Context) error {
	if err := sc.Collect(ctx); err != nil {
		sc.logger.Warn("initial stats collection failed", logger.Error(err))
	}

	ticker := time.NewTicker(sc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sc.Collect(ctx); err != nil {
					sc.logger.Error("stats collection failed", logger.Error(err))
				}
			case <-sc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the collector. It must be called at most once.
func (sc *StatsCollector) Stop() {
	close(sc.stopCh)
}

// Collect reads the store counters and updates the gauges.
func (sc *StatsCollector) Collect(ctx context.Context) error {
	stats, err := sc.source.Stats(ctx)
	if err != nil {
		return err
	}
	metrics.SetStoreStats(stats.Objects, stats.Pulses, stats.Locations)
	sc.logger.Debug("store stats collected",
		logger.Int64("objects", stats.Objects),
		logger.Int64("pulses", stats.Pulses),
		logger.Int64("locations", stats.Locations))
	return nil
}
