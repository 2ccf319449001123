package redis

import (
	"encoding/json"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/MrSnakeDoc/pulse/internal/domain"
)

// objectRecord is the stored form of a PulseObject.
type objectRecord struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ExternalID string          `json:"external_id,omitempty"`
	Title      string          `json:"title"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// pulseRecord is the stored form of a Pulse.
type pulseRecord struct {
	ID           string  `json:"id"`
	ObjectID     string  `json:"object_id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ReactionType string  `json:"reaction_type"`
	Comment      string  `json:"comment,omitempty"`
	Link         string  `json:"link,omitempty"`
	CreatedAt    int64   `json:"created_at"`
}

func encodeObject(obj *domain.PulseObject) ([]byte, error) {
	return gojson.Marshal(objectRecord{
		ID:         obj.ID,
		Type:       string(obj.Type),
		ExternalID: obj.ExternalID,
		Title:      obj.Title,
		Metadata:   obj.Metadata,
		CreatedAt:  obj.CreatedAt.Unix(),
	})
}

func decodeObject(data []byte) (*domain.PulseObject, error) {
	var rec objectRecord
	if err := gojson.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &domain.PulseObject{
		ID:         rec.ID,
		Type:       domain.ObjectType(rec.Type),
		ExternalID: rec.ExternalID,
		Title:      rec.Title,
		Metadata:   rec.Metadata,
		CreatedAt:  time.Unix(rec.CreatedAt, 0).UTC(),
	}, nil
}

func encodePulse(p *domain.Pulse) ([]byte, error) {
	return gojson.Marshal(pulseRecord{
		ID:           p.ID,
		ObjectID:     p.ObjectID,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		ReactionType: string(p.ReactionType),
		Comment:      p.Comment,
		Link:         p.Link,
		CreatedAt:    p.CreatedAt.Unix(),
	})
}

func decodePulse(data []byte) (*domain.Pulse, error) {
	var rec pulseRecord
	if err := gojson.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &domain.Pulse{
		ID:           rec.ID,
		ObjectID:     rec.ObjectID,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		ReactionType: domain.ReactionType(rec.ReactionType),
		Comment:      rec.Comment,
		Link:         rec.Link,
		CreatedAt:    time.Unix(rec.CreatedAt, 0).UTC(),
	}, nil
}
