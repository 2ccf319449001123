// Package storetest holds the behavior every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/store"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) store.Store

// Base is a fixed, second-aligned instant the fixtures are built around.
var Base = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

// Run executes the shared contract tests against the backend.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"InsertAndFindObject", testInsertAndFindObject},
		{"ExternalIDUniqueness", testExternalIDUniqueness},
		{"AppendPulseCreatesObject", testAppendPulseCreatesObject},
		{"AppendPulseReusesExternalID", testAppendPulseReusesExternalID},
		{"AppendPulseExistingObject", testAppendPulseExistingObject},
		{"QueryPulsesSince", testQueryPulsesSince},
		{"LocationCandidates", testLocationCandidates},
		{"LatestPulses", testLatestPulses},
		{"EmptyStore", testEmptyStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func object(id string, typ domain.ObjectType, title, externalID string) *domain.PulseObject {
	return &domain.PulseObject{
		ID:         id,
		Type:       typ,
		Title:      title,
		ExternalID: externalID,
		CreatedAt:  Base,
	}
}

func pulse(id, objectID string, lat, lng float64, at time.Time) *domain.Pulse {
	return &domain.Pulse{
		ID:           id,
		ObjectID:     objectID,
		Latitude:     lat,
		Longitude:    lng,
		ReactionType: domain.ReactionHeart,
		CreatedAt:    at,
	}
}

func mustInsertObject(t *testing.T, s store.Store, obj *domain.PulseObject) {
	t.Helper()
	if err := s.InsertObject(context.Background(), obj); err != nil {
		t.Fatalf("InsertObject(%s) error = %v", obj.ID, err)
	}
}

func mustInsertPulse(t *testing.T, s store.Store, p *domain.Pulse) {
	t.Helper()
	if err := s.InsertPulse(context.Background(), p); err != nil {
		t.Fatalf("InsertPulse(%s) error = %v", p.ID, err)
	}
}

func testInsertAndFindObject(t *testing.T, s store.Store) {
	ctx := context.Background()
	obj := object("obj-1", domain.ObjectMovie, "Inception", "27205")
	obj.Metadata = []byte(`{"genre_ids":[28]}`)
	mustInsertObject(t, s, obj)

	got, err := s.FindObjectByID(ctx, "obj-1")
	if err != nil {
		t.Fatalf("FindObjectByID() error = %v", err)
	}
	if got.Title != "Inception" || got.Type != domain.ObjectMovie || got.ExternalID != "27205" {
		t.Errorf("FindObjectByID() = %+v", got)
	}
	if string(got.Metadata) != `{"genre_ids":[28]}` {
		t.Errorf("metadata = %s", got.Metadata)
	}
	if got.CreatedAt.Unix() != Base.Unix() {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, Base)
	}

	if _, err := s.FindObjectByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindObjectByID(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.InsertObject(ctx, object("obj-1", domain.ObjectTopic, "Other", "")); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("duplicate id error = %v, want ErrDuplicateKey", err)
	}
}

func testExternalIDUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsertObject(t, s, object("m-1", domain.ObjectMovie, "Inception", "27205"))

	if err := s.InsertObject(ctx, object("m-2", domain.ObjectMovie, "Inception again", "27205")); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("duplicate (type, externalId) error = %v, want ErrDuplicateKey", err)
	}

	// same external id under another type is a different object
	mustInsertObject(t, s, object("t-1", domain.ObjectTopic, "27205", "27205"))

	// objects without an external id never clash
	mustInsertObject(t, s, object("t-2", domain.ObjectTopic, "Coffee", ""))
	mustInsertObject(t, s, object("t-3", domain.ObjectTopic, "Coffee", ""))

	got, err := s.FindObjectByExternalID(ctx, domain.ObjectMovie, "27205")
	if err != nil || got.ID != "m-1" {
		t.Errorf("FindObjectByExternalID() = %v, %v; want m-1", got, err)
	}
	if _, err := s.FindObjectByExternalID(ctx, domain.ObjectMovie, "550"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindObjectByExternalID(550) error = %v, want ErrNotFound", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Objects != 4 {
		t.Errorf("Stats().Objects = %d, want 4", stats.Objects)
	}
}

func testAppendPulseCreatesObject(t *testing.T, s store.Store) {
	ctx := context.Background()
	obj := object("new-1", domain.ObjectTopic, "Coffee", "")
	p := pulse("p-1", "new-1", 48.8566, 2.3522, Base)
	p.Comment = "best flat white"

	if err := s.AppendPulse(ctx, obj, p); err != nil {
		t.Fatalf("AppendPulse() error = %v", err)
	}
	if p.ObjectID != "new-1" {
		t.Errorf("ObjectID = %s, want new-1", p.ObjectID)
	}
	if _, err := s.FindObjectByID(ctx, "new-1"); err != nil {
		t.Errorf("object not created: %v", err)
	}

	views, err := s.QueryPulsesSince(ctx, Base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("QueryPulsesSince() error = %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 pulse, got %d", len(views))
	}
	v := views[0]
	if v.Title != "Coffee" || v.Type != domain.ObjectTopic || v.Comment != "best flat white" || v.ReactionType != domain.ReactionHeart {
		t.Errorf("view = %+v", v)
	}
}

func testAppendPulseReusesExternalID(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsertObject(t, s, object("winner", domain.ObjectMovie, "Inception", "27205"))

	p := pulse("p-1", "loser", 40.7128, -74.0060, Base)
	if err := s.AppendPulse(ctx, object("loser", domain.ObjectMovie, "Inception", "27205"), p); err != nil {
		t.Fatalf("AppendPulse() error = %v", err)
	}
	if p.ObjectID != "winner" {
		t.Errorf("ObjectID = %s, want winner", p.ObjectID)
	}
	if _, err := s.FindObjectByID(ctx, "loser"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("losing object must not be stored, got %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Objects != 1 || stats.Pulses != 1 {
		t.Errorf("Stats() = %+v, want 1 object and 1 pulse", stats)
	}
}

func testAppendPulseExistingObject(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsertObject(t, s, object("obj", domain.ObjectMovie, "Heat", ""))

	for i, id := range []string{"p-1", "p-2"} {
		if err := s.AppendPulse(ctx, nil, pulse(id, "obj", 34.05, -118.24, Base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("AppendPulse(%s) error = %v", id, err)
		}
	}

	if err := s.AppendPulse(ctx, nil, pulse("p-1", "obj", 1, 1, Base)); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("duplicate pulse id error = %v, want ErrDuplicateKey", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Objects != 1 || stats.Pulses != 2 || stats.Locations != 1 {
		t.Errorf("Stats() = %+v, want 1 object, 2 pulses, 1 location", stats)
	}
}

func testQueryPulsesSince(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsertObject(t, s, object("a", domain.ObjectMovie, "Arrival", ""))

	cutoff := Base.Add(-7 * 24 * time.Hour)
	mustInsertPulse(t, s, pulse("old", "a", 1, 1, cutoff.Add(-time.Second)))
	mustInsertPulse(t, s, pulse("edge", "a", 1, 1, cutoff))
	mustInsertPulse(t, s, pulse("new", "a", 1, 1, Base))

	views, err := s.QueryPulsesSince(ctx, cutoff)
	if err != nil {
		t.Fatalf("QueryPulsesSince() error = %v", err)
	}

	got := make(map[string]bool)
	for _, v := range views {
		got[v.ID] = true
		if v.Title != "Arrival" {
			t.Errorf("pulse %s joined with title %q", v.ID, v.Title)
		}
	}
	if len(views) != 2 || !got["edge"] || !got["new"] {
		t.Errorf("QueryPulsesSince() returned %v, want edge and new", got)
	}
}

func testLocationCandidates(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsertObject(t, s, object("in", domain.ObjectMovie, "Inception", ""))
	mustInsertObject(t, s, object("fc", domain.ObjectMovie, "Fight Club", ""))

	mustInsertPulse(t, s, pulse("p1", "in", 40.7128, -74.0060, Base))
	mustInsertPulse(t, s, pulse("p2", "in", 40.7128, -74.0060, Base.Add(time.Minute)))
	mustInsertPulse(t, s, pulse("p3", "fc", 51.5074, -0.1278, Base.Add(2*time.Minute)))
	mustInsertPulse(t, s, pulse("p4", "in", 40.7306, -73.9352, Base.Add(3*time.Minute)))
	mustInsertPulse(t, s, pulse("p5", "in", 40.7128, -74.0060, Base.Add(4*time.Minute)))

	candidates, err := s.QueryObjectLocationCandidates(ctx, 100)
	if err != nil {
		t.Fatalf("QueryObjectLocationCandidates() error = %v", err)
	}

	want := []domain.LocationCandidate{
		{ObjectID: "in", Title: "Inception", Type: domain.ObjectMovie, Latitude: 40.7128, Longitude: -74.0060, PulseCount: 3},
		{ObjectID: "fc", Title: "Fight Club", Type: domain.ObjectMovie, Latitude: 51.5074, Longitude: -0.1278, PulseCount: 1},
		{ObjectID: "in", Title: "Inception", Type: domain.ObjectMovie, Latitude: 40.7306, Longitude: -73.9352, PulseCount: 1},
	}
	if len(candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %+v", len(want), len(candidates), candidates)
	}
	for i, w := range want {
		if candidates[i] != w {
			t.Errorf("candidate %d = %+v, want %+v", i, candidates[i], w)
		}
	}

	capped, err := s.QueryObjectLocationCandidates(ctx, 2)
	if err != nil {
		t.Fatalf("QueryObjectLocationCandidates(2) error = %v", err)
	}
	if len(capped) != 2 || capped[1].ObjectID != "fc" {
		t.Errorf("capped candidates = %+v", capped)
	}
}

func testLatestPulses(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsertObject(t, s, object("obj", domain.ObjectTopic, "Rain", ""))

	for i, id := range []string{"first", "second", "third"} {
		mustInsertPulse(t, s, pulse(id, "obj", 52.52, 13.405, Base.Add(time.Duration(i)*time.Hour)))
	}

	latest, err := s.LatestPulses(ctx, 2)
	if err != nil {
		t.Fatalf("LatestPulses() error = %v", err)
	}
	if len(latest) != 2 || latest[0].ID != "third" || latest[1].ID != "second" {
		t.Errorf("LatestPulses(2) = %+v", latest)
	}
	if latest[0].Title != "Rain" {
		t.Errorf("latest pulse not joined with its object: %+v", latest[0])
	}
}

func testEmptyStore(t *testing.T, s store.Store) {
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	views, err := s.QueryPulsesSince(ctx, time.Time{})
	if err != nil || len(views) != 0 {
		t.Errorf("QueryPulsesSince() on empty store = %v, %v", views, err)
	}
	candidates, err := s.QueryObjectLocationCandidates(ctx, 100)
	if err != nil || len(candidates) != 0 {
		t.Errorf("QueryObjectLocationCandidates() on empty store = %v, %v", candidates, err)
	}
	latest, err := s.LatestPulses(ctx, 10)
	if err != nil || len(latest) != 0 {
		t.Errorf("LatestPulses() on empty store = %v, %v", latest, err)
	}
	stats, err := s.Stats(ctx)
	if err != nil || stats != (domain.Stats{}) {
		t.Errorf("Stats() on empty store = %+v, %v", stats, err)
	}
}
