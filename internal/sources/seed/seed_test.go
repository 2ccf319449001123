package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/index"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/pulse"
)

const validSeed = `
locations:
  - name: Paris
    lat: 48.8566
    lng: 2.3522
  - name: Tokyo
    lat: 35.6762
    lng: 139.6503
content:
  - type: MOVIE
    id: "27205"
    title: Inception
    metadata:
      year: 2010
      genre_ids: [28, 878]
  - type: TOPIC
    title: Climate Change
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestLoader_Load(t *testing.T) {
	f, err := NewLoader(writeSeed(t, validSeed)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Locations) != 2 || len(f.Content) != 2 {
		t.Fatalf("got %d locations and %d items, want 2 and 2", len(f.Locations), len(f.Content))
	}
	if f.Locations[1].Name != "Tokyo" || f.Locations[1].Lng != 139.6503 {
		t.Errorf("unexpected location: %+v", f.Locations[1])
	}
	movie := f.Content[0]
	if movie.ID != "27205" || movie.Title != "Inception" {
		t.Errorf("unexpected movie: %+v", movie)
	}
	if movie.Metadata["year"] != 2010 {
		t.Errorf("metadata year = %v, want 2010", movie.Metadata["year"])
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "invalid yaml",
			content: "locations: [",
			want:    "failed to parse seed yaml",
		},
		{
			name:    "no locations",
			content: "content:\n  - type: TOPIC\n    title: Music\n",
			want:    "no locations",
		},
		{
			name:    "unknown type",
			content: "locations:\n  - {name: A, lat: 1, lng: 1}\ncontent:\n  - type: BOOK\n    title: Dune\n",
			want:    `unknown type "BOOK"`,
		},
		{
			name:    "movie without id",
			content: "locations:\n  - {name: A, lat: 1, lng: 1}\ncontent:\n  - type: MOVIE\n    title: Dune\n",
			want:    "movies need a catalog id",
		},
		{
			name:    "latitude out of range",
			content: "locations:\n  - {name: A, lat: 91, lng: 1}\ncontent:\n  - type: TOPIC\n    title: Music\n",
			want:    "coordinates out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeSeed(t, tt.content)).Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	if err == nil || !strings.Contains(err.Error(), "failed to read seed file") {
		t.Errorf("Load() error = %v", err)
	}
}

type submitted struct {
	in pulse.Submission
	at time.Time
}

type recordingSubmitter struct {
	mu    sync.Mutex
	calls []submitted
	err   error
}

func (r *recordingSubmitter) SubmitAt(_ context.Context, in pulse.Submission, at time.Time) (domain.Pulse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.Pulse{}, r.err
	}
	r.calls = append(r.calls, submitted{in: in, at: at})
	return domain.Pulse{}, nil
}

func TestSeeder_Run(t *testing.T) {
	f, err := NewLoader(writeSeed(t, validSeed)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	opts := Options{Min: 2, Max: 4, Days: 30, Variance: 0.045, Seed: 42, Now: func() time.Time { return now }}
	sub := &recordingSubmitter{}
	s, err := NewSeeder(sub, opts, logger.NewNop())
	if err != nil {
		t.Fatalf("NewSeeder() error = %v", err)
	}

	res, err := s.Run(context.Background(), f)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Items != 2 {
		t.Errorf("Items = %d, want 2", res.Items)
	}
	if res.Pulses != len(sub.calls) || res.Pulses < 4 || res.Pulses > 8 {
		t.Fatalf("Pulses = %d with %d calls, want 4..8", res.Pulses, len(sub.calls))
	}

	oldest := now.Add(-30 * 24 * time.Hour)
	for _, c := range sub.calls {
		if c.at.After(now) || c.at.Before(oldest) {
			t.Errorf("timestamp %v outside the last 30 days", c.at)
		}
		if _, coerced := domain.NormalizeReaction(c.in.ReactionType); coerced {
			t.Errorf("reaction %q is not a known reaction", c.in.ReactionType)
		}
		nearParis := abs(*c.in.Latitude-48.8566) <= 0.045 && abs(*c.in.Longitude-2.3522) <= 0.045
		nearTokyo := abs(*c.in.Latitude-35.6762) <= 0.045 && abs(*c.in.Longitude-139.6503) <= 0.045
		if !nearParis && !nearTokyo {
			t.Errorf("pulse at (%v, %v) is not near any location", *c.in.Latitude, *c.in.Longitude)
		}

		switch c.in.Title {
		case "Inception":
			if c.in.ObjectID != "27205" || c.in.ObjectType != "MOVIE" {
				t.Errorf("movie submission = %+v", c.in)
			}
			if !strings.Contains(string(c.in.Metadata), `"year":2010`) {
				t.Errorf("metadata = %s", c.in.Metadata)
			}
		case "Climate Change":
			if c.in.ObjectID != "" || c.in.ObjectType != "TOPIC" {
				t.Errorf("topic submission = %+v", c.in)
			}
		default:
			t.Errorf("unexpected title %q", c.in.Title)
		}
	}
}

func TestSeeder_Deterministic(t *testing.T) {
	f, err := NewLoader(writeSeed(t, validSeed)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	run := func() []submitted {
		sub := &recordingSubmitter{}
		s, err := NewSeeder(sub, Options{Min: 2, Max: 8, Days: 30, Variance: 0.045, Seed: 7, Now: func() time.Time { return now }}, logger.NewNop())
		if err != nil {
			t.Fatalf("NewSeeder() error = %v", err)
		}
		if _, err := s.Run(context.Background(), f); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return sub.calls
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("runs produced %d and %d pulses", len(a), len(b))
	}
	for i := range a {
		if *a[i].in.Latitude != *b[i].in.Latitude || !a[i].at.Equal(b[i].at) || a[i].in.ReactionType != b[i].in.ReactionType {
			t.Fatalf("pulse %d differs between runs with the same seed", i)
		}
	}
}

func TestSeeder_StopsOnError(t *testing.T) {
	f, err := NewLoader(writeSeed(t, validSeed)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	boom := errors.New("store down")
	s, err := NewSeeder(&recordingSubmitter{err: boom}, Options{Min: 1, Max: 1, Days: 1, Seed: 1}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewSeeder() error = %v", err)
	}

	res, err := s.Run(context.Background(), f)
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if res.Pulses != 0 || res.Items != 0 {
		t.Errorf("Result = %+v, want zero", res)
	}
}

func TestNewSeeder_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"min zero", Options{Min: 0, Max: 2, Days: 1}},
		{"max below min", Options{Min: 3, Max: 2, Days: 1}},
		{"no days", Options{Min: 1, Max: 2, Days: 0}},
		{"negative variance", Options{Min: 1, Max: 2, Days: 1, Variance: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSeeder(&recordingSubmitter{}, tt.opts, logger.NewNop()); err == nil {
				t.Error("NewSeeder() error = nil")
			}
		})
	}
}

// Seeding twice through the real ingestion path reuses movie objects.
func TestSeeder_RepeatedRunsReuseMovies(t *testing.T) {
	f, err := NewLoader(writeSeed(t, validSeed)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	idx := index.NewMemoryIndex()
	svc := pulse.NewService(idx, logger.NewNop(), pulse.Options{})

	for i := range 2 {
		s, err := NewSeeder(svc, Options{Min: 1, Max: 2, Days: 5, Variance: 0.01, Seed: uint64(i + 1)}, logger.NewNop())
		if err != nil {
			t.Fatalf("NewSeeder() error = %v", err)
		}
		if _, err := s.Run(context.Background(), f); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	movie, err := idx.FindObjectByExternalID(context.Background(), domain.ObjectMovie, "27205")
	if err != nil {
		t.Fatalf("movie not found by catalog id: %v", err)
	}
	if movie.Title != "Inception" {
		t.Errorf("movie title = %q", movie.Title)
	}

	stats, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	// one movie plus one topic per run
	if stats.Objects != 3 {
		t.Errorf("Objects = %d, want 3", stats.Objects)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
