package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ObjectType classifies what a pulse reacts to.
type ObjectType string

const (
	ObjectMovie ObjectType = "MOVIE"
	ObjectTopic ObjectType = "TOPIC"
)

// ParseObjectType is case-insensitive. ok is false for unknown types.
func ParseObjectType(s string) (ObjectType, bool) {
	switch t := ObjectType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ObjectMovie, ObjectTopic:
		return t, true
	default:
		return "", false
	}
}

// PulseObject is the reactable entity (movie or topic) that pulses reference.
type PulseObject struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the internal identifier, generated on creation.
	ID string `json:"id"`

	// Type is MOVIE or TOPIC.
	Type ObjectType `json:"type"`

	// ExternalID is the catalog reference (ex: a TMDB movie id).
	// (Type, ExternalID) is unique when ExternalID is set.
	ExternalID string `json:"externalId,omitempty"`

	// ─────────────────────────────
	// Description
	// ─────────────────────────────

	// Title is never empty. Two topics may share a title.
	Title string `json:"title"`

	// Metadata is an opaque JSON document, stored verbatim.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// CreatedAt is truncated to the second when persisted.
	CreatedAt time.Time `json:"createdAt"`
}

// Pulse is a single geotagged reaction. Pulses are append-only.
type Pulse struct {
	ID       string `json:"id"`
	ObjectID string `json:"objectId"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	ReactionType ReactionType `json:"reactionType"`

	// Comment holds at most MaxCommentLength characters.
	Comment string `json:"comment,omitempty"`
	Link    string `json:"link,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsSentinelLocation reports whether the pulse sits on (0,0), the marker
// for an unset location. Such pulses are never rendered.
func (p Pulse) IsSentinelLocation() bool {
	return p.Latitude == 0 && p.Longitude == 0
}

// PulseView is a pulse joined with the object it references.
type PulseView struct {
	Pulse
	Title    string          `json:"title"`
	Type     ObjectType      `json:"type"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// LocationCandidate is one (object, exact coordinate) pair with the number of
// pulses recorded there.
type LocationCandidate struct {
	ObjectID   string
	Title      string
	Type       ObjectType
	Latitude   float64
	Longitude  float64
	PulseCount int64
}

// NearbyItem is a candidate within the requested radius.
type NearbyItem struct {
	ObjectID   string     `json:"objectId"`
	Title      string     `json:"title"`
	Type       ObjectType `json:"type"`
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	PulseCount int64      `json:"pulseCount"`
	DistanceKm float64    `json:"distanceKm"`
}

// TrendingItem is an object ranked by pulse volume inside a window.
type TrendingItem struct {
	ObjectID   string     `json:"objectId"`
	Title      string     `json:"title"`
	Type       ObjectType `json:"type"`
	PulseCount int64      `json:"pulseCount"`
}

// Stats summarizes store contents for gauges.
type Stats struct {
	Objects   int64
	Pulses    int64
	Locations int64
}
