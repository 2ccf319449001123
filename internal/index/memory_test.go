package index

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/store"
	"github.com/MrSnakeDoc/pulse/internal/store/storetest"
)

func TestMemoryIndexContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return NewMemoryIndex()
	})
}

func TestFindObjectReturnsCopy(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	if err := idx.InsertObject(ctx, &domain.PulseObject{ID: "o", Type: domain.ObjectTopic, Title: "Rain"}); err != nil {
		t.Fatalf("InsertObject() error = %v", err)
	}

	got, _ := idx.FindObjectByID(ctx, "o")
	got.Title = "changed"

	again, _ := idx.FindObjectByID(ctx, "o")
	if again.Title != "Rain" {
		t.Errorf("stored object was mutated through a returned pointer: %q", again.Title)
	}
}

func TestAppendPulseUnknownObject(t *testing.T) {
	idx := NewMemoryIndex()

	err := idx.AppendPulse(context.Background(), nil, &domain.Pulse{ID: "p", ObjectID: "ghost"})
	if err == nil {
		t.Fatal("expected an error for a pulse referencing a missing object")
	}

	stats, _ := idx.Stats(context.Background())
	if stats.Pulses != 0 {
		t.Errorf("rejected pulse was stored: %+v", stats)
	}
}

func TestFirstSeenUsesEarliestPulse(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"a", "b"} {
		_ = idx.InsertObject(ctx, &domain.PulseObject{ID: id, Type: domain.ObjectTopic, Title: id})
	}
	_ = idx.InsertPulse(ctx, &domain.Pulse{ID: "p1", ObjectID: "a", Latitude: 1, Longitude: 1, CreatedAt: base})
	_ = idx.InsertPulse(ctx, &domain.Pulse{ID: "p2", ObjectID: "b", Latitude: 2, Longitude: 2, CreatedAt: base.Add(time.Hour)})
	// backdated pulse, as written by the seeder
	_ = idx.InsertPulse(ctx, &domain.Pulse{ID: "p3", ObjectID: "b", Latitude: 2, Longitude: 2, CreatedAt: base.Add(-time.Hour)})

	candidates, err := idx.QueryObjectLocationCandidates(ctx, 10)
	if err != nil {
		t.Fatalf("QueryObjectLocationCandidates() error = %v", err)
	}
	if len(candidates) != 2 || candidates[0].ObjectID != "b" || candidates[0].PulseCount != 2 {
		t.Errorf("candidates = %+v, want b first with 2 pulses", candidates)
	}
}

func TestConcurrentAppend(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	var wg sync.WaitGroup

	// Concurrent creations racing on the same catalog id
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			obj := &domain.PulseObject{ID: fmt.Sprintf("obj-%d", i), Type: domain.ObjectMovie, Title: "Inception", ExternalID: "27205"}
			p := &domain.Pulse{ID: fmt.Sprintf("pulse-%d", i), ObjectID: obj.ID, Latitude: 40.7128, Longitude: -74.0060}
			if err := idx.AppendPulse(ctx, obj, p); err != nil {
				t.Errorf("AppendPulse() error = %v", err)
			}
		}(i)
	}

	// Concurrent reads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = idx.QueryObjectLocationCandidates(ctx, 100)
			_, _ = idx.LatestPulses(ctx, 10)
		}()
	}

	wg.Wait()

	stats, _ := idx.Stats(ctx)
	if stats.Objects != 1 || stats.Pulses != 100 {
		t.Errorf("Stats() = %+v, want 1 object and 100 pulses", stats)
	}

	candidates, _ := idx.QueryObjectLocationCandidates(ctx, 100)
	if len(candidates) != 1 || candidates[0].PulseCount != 100 {
		t.Errorf("candidates = %+v, want a single group of 100", candidates)
	}
}
