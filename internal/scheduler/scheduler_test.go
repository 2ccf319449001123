package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/metrics"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGenreRefresherManualTrigger(t *testing.T) {
	ref := &countingRefresher{}
	trigger := make(chan struct{}, 1)
	gr := NewGenreRefresher(ref, logger.NewNop(), time.Hour, trigger)

	if err := gr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer gr.Stop()

	if n := ref.calls.Load(); n != 1 {
		t.Fatalf("expected an initial refresh, got %d calls", n)
	}

	trigger <- struct{}{}
	waitFor(t, func() bool { return ref.calls.Load() == 2 })
}

func TestGenreRefresherTicks(t *testing.T) {
	ref := &countingRefresher{err: errors.New("tmdb down")}
	gr := NewGenreRefresher(ref, logger.NewNop(), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := gr.Start(ctx); err != nil {
		t.Fatalf("a failed first refresh must not fail Start: %v", err)
	}
	waitFor(t, func() bool { return ref.calls.Load() >= 3 })

	cancel()
	time.Sleep(30 * time.Millisecond)
	settled := ref.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if ref.calls.Load() != settled {
		t.Error("refresher kept running after cancel")
	}
}

type fixedStats struct {
	stats domain.Stats
	err   error
}

func (f fixedStats) Stats(context.Context) (domain.Stats, error) { return f.stats, f.err }

func TestStatsCollectorCollect(t *testing.T) {
	sc := NewStatsCollector(fixedStats{stats: domain.Stats{Objects: 4, Pulses: 9, Locations: 6}}, logger.NewNop(), time.Hour)

	if err := sc.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if got := testutil.ToFloat64(metrics.StorePulses); got != 9 {
		t.Errorf("pulses gauge = %v, want 9", got)
	}
	if got := testutil.ToFloat64(metrics.StoreLocations); got != 6 {
		t.Errorf("locations gauge = %v, want 6", got)
	}
}

func TestStatsCollectorError(t *testing.T) {
	boom := errors.New("boom")
	sc := NewStatsCollector(fixedStats{err: boom}, logger.NewNop(), time.Hour)

	if err := sc.Collect(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if err := sc.Start(context.Background()); err != nil {
		t.Errorf("Start must tolerate a failing store: %v", err)
	}
	sc.Stop()
}
