package pulse

import (
	"context"
	"errors"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/MrSnakeDoc/pulse/internal/domain"
)

// Resolution is the outcome of planning a ref: either an existing object
// id, or an object to create along with the pulse.
type Resolution struct {
	ObjectID string
	Object   *domain.PulseObject
	Create   bool
}

// Plan decides which object a ref points at without writing anything.
//
// An id known to the store resolves to that object. An unknown id is
// treated as an external catalog id: an object with that (type, externalId)
// is reused when one exists, otherwise a new one is planned with the id as
// its external id. A new ref reuses an object with the same
// (type, externalId) when an external id is given.
func (s *Service) Plan(ctx context.Context, ref domain.ReactableRef) (Resolution, error) {
	switch ref.Kind {
	case domain.RefExisting:
		obj, err := s.store.FindObjectByID(ctx, ref.ID)
		if err == nil {
			return Resolution{ObjectID: obj.ID, Object: obj}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return Resolution{}, err
		}

		typ := ref.Type
		if typ == "" {
			typ = domain.ObjectMovie
		}
		title := ref.Title
		if title == "" {
			title = ref.ID
		}
		return s.planByExternalID(ctx, typ, title, ref.ID, ref.Metadata)

	case domain.RefNew:
		if ref.ExternalID == "" {
			return s.planCreate(ref.Type, ref.Title, "", ref.Metadata), nil
		}
		return s.planByExternalID(ctx, ref.Type, ref.Title, ref.ExternalID, ref.Metadata)

	default:
		return Resolution{}, domain.ErrMissingObjectReference
	}
}

func (s *Service) planByExternalID(ctx context.Context, typ domain.ObjectType, title, externalID string, metadata []byte) (Resolution, error) {
	obj, err := s.store.FindObjectByExternalID(ctx, typ, externalID)
	if err == nil {
		return Resolution{ObjectID: obj.ID, Object: obj}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return Resolution{}, err
	}
	return s.planCreate(typ, title, externalID, metadata), nil
}

func (s *Service) planCreate(typ domain.ObjectType, title, externalID string, metadata []byte) Resolution {
	obj := &domain.PulseObject{
		ID:         s.opts.NewID(),
		Type:       typ,
		ExternalID: externalID,
		Title:      title,
		Metadata:   metadata,
		CreatedAt:  s.now(),
	}
	return Resolution{ObjectID: obj.ID, Object: obj, Create: true}
}

// Resolve returns the id of the object ref points at, creating it if needed.
// A concurrent creation of the same (type, externalId) resolves to the
// object that won.
func (s *Service) Resolve(ctx context.Context, ref domain.ReactableRef) (string, error) {
	res, err := s.Plan(ctx, ref)
	if err != nil {
		return "", err
	}
	if !res.Create {
		return res.ObjectID, nil
	}

	s.enrichGenre(ctx, res.Object)
	err = s.store.InsertObject(ctx, res.Object)
	if errors.Is(err, domain.ErrDuplicateKey) && res.Object.ExternalID != "" {
		winner, ferr := s.store.FindObjectByExternalID(ctx, res.Object.Type, res.Object.ExternalID)
		if ferr != nil {
			return "", ferr
		}
		return winner.ID, nil
	}
	if err != nil {
		return "", err
	}
	return res.ObjectID, nil
}

// enrichGenre adds a "genre" entry to a new movie's metadata when it carries
// catalog genre_ids and no genre yet. Unparseable metadata is left alone.
func (s *Service) enrichGenre(ctx context.Context, obj *domain.PulseObject) {
	if s.opts.Genres == nil || obj.Type != domain.ObjectMovie || len(obj.Metadata) == 0 {
		return
	}

	var doc map[string]gojson.RawMessage
	if err := gojson.Unmarshal(obj.Metadata, &doc); err != nil {
		return
	}
	if _, ok := doc["genre"]; ok {
		return
	}
	raw, ok := doc["genre_ids"]
	if !ok {
		return
	}
	var ids []int
	if err := gojson.Unmarshal(raw, &ids); err != nil || len(ids) == 0 {
		return
	}

	name := s.opts.Genres.GenreName(ctx, ids)
	encoded, err := gojson.Marshal(name)
	if err != nil {
		return
	}
	doc["genre"] = encoded

	out, err := gojson.Marshal(doc)
	if err != nil {
		s.log.Warn("failed to re-encode object metadata")
		return
	}
	obj.Metadata = out
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC().Truncate(time.Second)
}
