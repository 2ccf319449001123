// Package pulse is the aggregation engine: it validates and records pulse
// submissions and serves the nearby, trending and latest views.
package pulse

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/store"
	"github.com/MrSnakeDoc/pulse/internal/validation"
)

const (
	DefaultRadiusKm        = 50.0
	DefaultNearbyLimit     = 10
	DefaultTrendingLimit   = 10
	DefaultTrendingWindow  = 7 * 24 * time.Hour
	MaxTrendingWindow      = 365 * 24 * time.Hour
	DefaultCandidateLimit  = 100
	DefaultFeedLimit       = 100
	MaxResultLimit         = 100
	MaxFeedLimit           = 500
	strategyGeo            = "geo"
	reasonStore            = "store"
	reasonMissingLocation  = "missing_location"
	reasonCommentTooLong   = "comment_too_long"
	reasonObjectReference  = "missing_object_reference"
	reasonInvalidField     = "invalid_field"
	reasonUnknownObjectTyp = "unknown_object_type"
)

// Publisher receives every pulse once it is stored.
type Publisher interface {
	Publish(view domain.PulseView)
}

// GenreNamer maps catalog genre ids to a display name.
type GenreNamer interface {
	GenreName(ctx context.Context, ids []int) string
}

// Options tunes a Service. Zero values fall back to the package defaults.
type Options struct {
	NearbyStrategy       string // "scan" or "geo"
	NearbyCandidateLimit int
	DefaultRadiusKm      float64
	TrendingWindow       time.Duration
	FeedLimit            int

	Publisher Publisher
	Genres    GenreNamer

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

// Service wires the store to the ingestion and aggregation rules.
type Service struct {
	store store.Store
	geo   store.GeoCandidateSource
	log   logger.Logger
	opts  Options
}

func NewService(st store.Store, log logger.Logger, opts Options) *Service {
	if opts.NearbyCandidateLimit <= 0 {
		opts.NearbyCandidateLimit = DefaultCandidateLimit
	}
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = DefaultRadiusKm
	}
	if opts.TrendingWindow <= 0 {
		opts.TrendingWindow = DefaultTrendingWindow
	}
	if opts.FeedLimit <= 0 || opts.FeedLimit > MaxFeedLimit {
		opts.FeedLimit = DefaultFeedLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &Service{store: st, log: log, opts: opts}
	if opts.NearbyStrategy == strategyGeo {
		if geo, ok := st.(store.GeoCandidateSource); ok {
			s.geo = geo
		} else {
			log.Warn("store has no spatial index, nearby falls back to scanning")
		}
	}
	return s
}

// DefaultRadiusKm is the radius applied when a nearby query omits one.
func (s *Service) DefaultRadiusKm() float64 { return s.opts.DefaultRadiusKm }

// TrendingWindow is the window applied when a trending query omits one.
func (s *Service) TrendingWindow() time.Duration { return s.opts.TrendingWindow }

// FeedLimit is the size of the latest feed when a query omits one.
func (s *Service) FeedLimit() int { return s.opts.FeedLimit }

// Ping reports whether the store answers.
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// Stats returns store counters.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) { return s.store.Stats(ctx) }

// checkParams runs struct validation and reports the first failure as a
// domain.FieldError.
func checkParams(v interface{}) error {
	err := validation.Struct(v)
	if err == nil {
		return nil
	}
	var ve validation.Errors
	if errors.As(err, &ve) {
		first := ve.First()
		return &domain.FieldError{Field: first.Field, Message: first.Message}
	}
	return &domain.FieldError{Message: err.Error()}
}

// rejectReason labels ingestion failures for metrics.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingLocation):
		return reasonMissingLocation
	case errors.Is(err, domain.ErrCommentTooLong):
		return reasonCommentTooLong
	case errors.Is(err, domain.ErrMissingObjectReference):
		return reasonObjectReference
	case errors.Is(err, domain.ErrUnknownObjectType):
		return reasonUnknownObjectTyp
	case domain.IsValidation(err):
		return reasonInvalidField
	default:
		return reasonStore
	}
}
