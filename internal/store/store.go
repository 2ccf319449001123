// Package store defines the persistence contract shared by the memory,
// Redis and DuckDB backends.
package store

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
)

// Store is the append-only pulse log plus the objects pulses reference.
//
// Lookups return domain.ErrNotFound, inserts return domain.ErrDuplicateKey on
// clashes, and every other failure is a *domain.StoreError.
type Store interface {
	InsertObject(ctx context.Context, obj *domain.PulseObject) error
	FindObjectByID(ctx context.Context, id string) (*domain.PulseObject, error)
	FindObjectByExternalID(ctx context.Context, typ domain.ObjectType, externalID string) (*domain.PulseObject, error)

	InsertPulse(ctx context.Context, p *domain.Pulse) error

	// AppendPulse inserts newObject when it is not nil and p as one unit.
	// If an object with the same (type, externalId) already exists, p is
	// attached to it instead and p.ObjectID is rewritten accordingly.
	AppendPulse(ctx context.Context, newObject *domain.PulseObject, p *domain.Pulse) error

	// QueryPulsesSince returns pulses with CreatedAt >= cutoff, joined with
	// their objects. Order is unspecified.
	QueryPulsesSince(ctx context.Context, cutoff time.Time) ([]domain.PulseView, error)

	// QueryObjectLocationCandidates groups pulses by (object, exact
	// coordinate) and returns at most limit groups, ordered by when each
	// group was first seen.
	QueryObjectLocationCandidates(ctx context.Context, limit int) ([]domain.LocationCandidate, error)

	// LatestPulses returns at most limit pulses, newest first.
	LatestPulses(ctx context.Context, limit int) ([]domain.PulseView, error)

	Stats(ctx context.Context) (domain.Stats, error)
	Ping(ctx context.Context) error
}

// GeoCandidateSource is implemented by stores with a spatial index. It
// returns at most limit location groups within radiusKm of center, nearest
// first.
type GeoCandidateSource interface {
	QueryCandidatesNear(ctx context.Context, center domain.Point, radiusKm float64, limit int) ([]domain.LocationCandidate, error)
}

// LocationKey identifies an (object, exact coordinate) group.
type LocationKey struct {
	ObjectID  string
	Latitude  float64
	Longitude float64
}
