package pulse

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/metrics"
)

// Submission is a raw pulse as received from a client. Latitude and
// Longitude are pointers so that a missing coordinate can be told apart
// from 0.
type Submission struct {
	ObjectID   string          `json:"objectId"`
	ObjectType string          `json:"objectType"`
	Title      string          `json:"title"`
	ExternalID string          `json:"externalId"`
	Metadata   json.RawMessage `json:"metadata"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	ReactionType string `json:"reactionType"`
	Comment      string `json:"comment"`
	Link         string `json:"link"`
}

// Accepted is a submission that passed validation.
type Accepted struct {
	Ref          domain.ReactableRef
	Latitude     float64
	Longitude    float64
	ReactionType domain.ReactionType
	Comment      string
	Link         string

	// ReactionCoerced is set when an unknown reaction type was replaced
	// by the default.
	ReactionCoerced bool
}

type submissionFields struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Title     string  `json:"title" validate:"max=200"`
	Link      string  `json:"link" validate:"omitempty,http_url,max=2048"`
	Metadata  string  `json:"metadata" validate:"omitempty,json"`
}

// Validate checks a submission in a fixed order: location, comment length,
// field formats, object reference. The first failure is returned. Unknown
// reaction types never fail; they are coerced to the default.
func Validate(in Submission) (Accepted, error) {
	if in.Latitude == nil || in.Longitude == nil {
		return Accepted{}, domain.ErrMissingLocation
	}

	// counted as submitted, surrounding whitespace included
	if utf8.RuneCountInString(in.Comment) > domain.MaxCommentLength {
		return Accepted{}, domain.ErrCommentTooLong
	}
	comment := strings.TrimSpace(in.Comment)

	fields := submissionFields{
		Latitude:  *in.Latitude,
		Longitude: *in.Longitude,
		Title:     strings.TrimSpace(in.Title),
		Link:      strings.TrimSpace(in.Link),
		Metadata:  string(in.Metadata),
	}
	if isJSONNull(in.Metadata) {
		fields.Metadata = ""
	}
	if err := checkParams(&fields); err != nil {
		return Accepted{}, err
	}

	var metadata json.RawMessage
	if fields.Metadata != "" {
		metadata = in.Metadata
	}
	ref, err := domain.NewReactableRef(in.ObjectID, in.ObjectType, fields.Title, in.ExternalID, metadata)
	if err != nil {
		return Accepted{}, err
	}

	reaction, coerced := domain.NormalizeReaction(in.ReactionType)

	return Accepted{
		Ref:             ref,
		Latitude:        fields.Latitude,
		Longitude:       fields.Longitude,
		ReactionType:    reaction,
		Comment:         comment,
		Link:            fields.Link,
		ReactionCoerced: coerced,
	}, nil
}

// Submit validates in, resolves its object and appends the pulse. The
// object creation, if any, and the pulse are stored as one unit.
func (s *Service) Submit(ctx context.Context, in Submission) (domain.Pulse, error) {
	return s.SubmitAt(ctx, in, s.opts.Now())
}

// SubmitAt is Submit with an explicit pulse timestamp, used to backfill
// history. Objects it creates are still stamped with the current time.
func (s *Service) SubmitAt(ctx context.Context, in Submission, at time.Time) (domain.Pulse, error) {
	start := time.Now()

	acc, err := Validate(in)
	if err != nil {
		metrics.IngestRejected.WithLabelValues(rejectReason(err)).Inc()
		return domain.Pulse{}, err
	}
	if acc.ReactionCoerced {
		metrics.ReactionsCoerced.Inc()
		s.log.Debug("unknown reaction type coerced", logger.String("reaction", in.ReactionType))
	}

	res, err := s.Plan(ctx, acc.Ref)
	if err != nil {
		metrics.IngestRejected.WithLabelValues(rejectReason(err)).Inc()
		return domain.Pulse{}, err
	}

	var create *domain.PulseObject
	if res.Create {
		create = res.Object
		s.enrichGenre(ctx, create)
	}

	p := domain.Pulse{
		ID:           s.opts.NewID(),
		ObjectID:     res.ObjectID,
		Latitude:     acc.Latitude,
		Longitude:    acc.Longitude,
		ReactionType: acc.ReactionType,
		Comment:      acc.Comment,
		Link:         acc.Link,
		CreatedAt:    at.UTC().Truncate(time.Second),
	}

	err = s.store.AppendPulse(ctx, create, &p)
	metrics.ObserveQuery("append", start, err)
	if err != nil {
		metrics.IngestRejected.WithLabelValues(rejectReason(err)).Inc()
		s.log.Error("failed to append pulse", logger.String("object_id", res.ObjectID), logger.Error(err))
		return domain.Pulse{}, err
	}

	metrics.PulsesIngested.WithLabelValues(string(p.ReactionType)).Inc()
	if create != nil && p.ObjectID == create.ID {
		metrics.ObjectsCreated.WithLabelValues(string(create.Type)).Inc()
		s.log.Info("object created",
			logger.String("object_id", create.ID),
			logger.String("type", string(create.Type)),
			logger.String("external_id", create.ExternalID),
		)
	}

	s.publish(res.Object, p)
	return p, nil
}

func (s *Service) publish(obj *domain.PulseObject, p domain.Pulse) {
	if s.opts.Publisher == nil {
		return
	}
	view := domain.PulseView{Pulse: p}
	if obj != nil {
		view.Title = obj.Title
		view.Type = obj.Type
		view.Metadata = obj.Metadata
	}
	s.opts.Publisher.Publish(view)
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
