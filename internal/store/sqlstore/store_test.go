package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/store"
	"github.com/MrSnakeDoc/pulse/internal/store/storetest"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTestStore(t, "")
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.duckdb")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	obj := &domain.PulseObject{ID: "in", Type: domain.ObjectMovie, Title: "Inception", ExternalID: "27205", CreatedAt: time.Now()}
	p := &domain.Pulse{ID: "p", ObjectID: "in", Latitude: 40.7128, Longitude: -74.006, ReactionType: domain.ReactionFire, Comment: "dreams", CreatedAt: time.Now()}
	if err := s.AppendPulse(ctx, obj, p); err != nil {
		t.Fatalf("AppendPulse() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// migrations must be safe to run against an existing database
	reopened := openTestStore(t, path)

	latest, err := reopened.LatestPulses(ctx, 10)
	if err != nil {
		t.Fatalf("LatestPulses() error = %v", err)
	}
	if len(latest) != 1 || latest[0].ReactionType != domain.ReactionFire || latest[0].Comment != "dreams" {
		t.Errorf("LatestPulses() after reopen = %+v", latest)
	}
}

func TestAppendPulseRollsBack(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	if err := s.InsertObject(ctx, &domain.PulseObject{ID: "obj", Type: domain.ObjectTopic, Title: "Rain"}); err != nil {
		t.Fatalf("InsertObject() error = %v", err)
	}
	if err := s.InsertPulse(ctx, &domain.Pulse{ID: "taken", ObjectID: "obj", Latitude: 1, Longitude: 1}); err != nil {
		t.Fatalf("InsertPulse() error = %v", err)
	}

	// pulse id clash: the new object must not be left behind
	err := s.AppendPulse(ctx,
		&domain.PulseObject{ID: "orphan", Type: domain.ObjectTopic, Title: "Snow"},
		&domain.Pulse{ID: "taken", ObjectID: "orphan", Latitude: 2, Longitude: 2})
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("AppendPulse() error = %v, want ErrDuplicateKey", err)
	}
	if _, err := s.FindObjectByID(ctx, "orphan"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("object from a failed append was persisted: %v", err)
	}

	// unknown object: nothing is written
	err = s.AppendPulse(ctx, nil, &domain.Pulse{ID: "p2", ObjectID: "ghost", Latitude: 1, Longitude: 1})
	var se *domain.StoreError
	if !errors.As(err, &se) || !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AppendPulse(ghost) error = %v, want StoreError wrapping ErrNotFound", err)
	}
}

// Databases created before comment and link existed are upgraded on Open.
func TestOpenUpgradesV1Schema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.duckdb")
	ctx := context.Background()

	db, err := sql.Open("duckdb", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE pulse_objects (
			id TEXT PRIMARY KEY, type TEXT NOT NULL, external_id TEXT,
			title TEXT NOT NULL, metadata TEXT, created_at BIGINT)`,
		`CREATE TABLE pulses (
			id TEXT PRIMARY KEY, object_id TEXT NOT NULL REFERENCES pulse_objects(id),
			latitude DOUBLE NOT NULL, longitude DOUBLE NOT NULL,
			reaction_type TEXT DEFAULT 'HEART', created_at BIGINT)`,
		`INSERT INTO pulse_objects VALUES ('old', 'TOPIC', NULL, 'Rain', NULL, 1700000000)`,
		`INSERT INTO pulses VALUES ('p-old', 'old', 48.85, 2.35, 'SAD', 1700000000)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("v1 setup %q: %v", stmt, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s := openTestStore(t, path)

	obj := &domain.PulseObject{ID: "in", Type: domain.ObjectMovie, Title: "Inception", ExternalID: "27205", CreatedAt: time.Now()}
	p := &domain.Pulse{
		ID: "p-new", ObjectID: "in", Latitude: 40.7128, Longitude: -74.006,
		ReactionType: domain.ReactionFire, Comment: "dreams", Link: "https://example.com/inception",
		CreatedAt: time.Now(),
	}
	if err := s.AppendPulse(ctx, obj, p); err != nil {
		t.Fatalf("AppendPulse() on upgraded schema error = %v", err)
	}

	latest, err := s.LatestPulses(ctx, 10)
	if err != nil {
		t.Fatalf("LatestPulses() error = %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("LatestPulses() returned %d pulses, want 2", len(latest))
	}
	if latest[0].ID != "p-new" || latest[0].Comment != "dreams" || latest[0].Link != "https://example.com/inception" {
		t.Errorf("new pulse = %+v", latest[0])
	}
	if latest[1].ID != "p-old" || latest[1].Comment != "" || latest[1].Link != "" {
		t.Errorf("v1 pulse = %+v", latest[1])
	}

	// a second Open finds the columns and leaves them alone
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	openTestStore(t, path)
}
