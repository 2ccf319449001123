package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/store"
)

var (
	_ store.Store              = (*Store)(nil)
	_ store.GeoCandidateSource = (*Store)(nil)
)

// maxTxRetries bounds optimistic transaction retries when a watched key
// changes under us.
const maxTxRetries = 10

// Store keeps objects and pulses in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// InsertObject writes obj unless its id or (type, externalId) is taken.
func (s *Store) InsertObject(ctx context.Context, obj *domain.PulseObject) error {
	data, err := encodeObject(obj)
	if err != nil {
		return domain.WrapStoreError("encode object", err)
	}

	err = s.watch(ctx, func(tx *redis.Tx) error {
		if taken, err := s.objectExists(ctx, tx, obj.ID); err != nil || taken {
			return duplicateOr(err, taken)
		}
		if obj.ExternalID != "" {
			taken, err := tx.HExists(ctx, ExternalKey(obj.Type), obj.ExternalID).Result()
			if err != nil || taken {
				return duplicateOr(err, taken)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			queueObject(ctx, pipe, obj, data)
			return nil
		})
		return err
	}, ObjectKey(obj.ID), ExternalKey(obj.Type))

	return domain.WrapStoreError("insert object", err)
}

func (s *Store) FindObjectByID(ctx context.Context, id string) (*domain.PulseObject, error) {
	data, err := s.client.Get(ctx, ObjectKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.WrapStoreError("find object", err)
	}

	obj, err := decodeObject(data)
	if err != nil {
		return nil, domain.WrapStoreError("decode object", err)
	}
	return obj, nil
}

func (s *Store) FindObjectByExternalID(ctx context.Context, typ domain.ObjectType, externalID string) (*domain.PulseObject, error) {
	if externalID == "" {
		return nil, domain.ErrNotFound
	}

	id, err := s.client.HGet(ctx, ExternalKey(typ), externalID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.WrapStoreError("find object by external id", err)
	}
	return s.FindObjectByID(ctx, id)
}

func (s *Store) InsertPulse(ctx context.Context, p *domain.Pulse) error {
	return s.AppendPulse(ctx, nil, p)
}

// AppendPulse writes newObject (when set) and p in a single MULTI/EXEC,
// guarded by WATCH on every key the decision depends on.
func (s *Store) AppendPulse(ctx context.Context, newObject *domain.PulseObject, p *domain.Pulse) error {
	watched := []string{PulseKey(p.ID), ObjectKey(p.ObjectID)}
	var objectData []byte
	if newObject != nil {
		data, err := encodeObject(newObject)
		if err != nil {
			return domain.WrapStoreError("encode object", err)
		}
		objectData = data
		watched = append(watched, ObjectKey(newObject.ID), ExternalKey(newObject.Type))
	}

	var objectID string
	err := s.watch(ctx, func(tx *redis.Tx) error {
		objectID = p.ObjectID
		create := false

		if taken, err := tx.Exists(ctx, PulseKey(p.ID)).Result(); err != nil || taken > 0 {
			return duplicateOr(err, taken > 0)
		}

		if newObject != nil {
			objectID = newObject.ID
			existing, err := s.externalOwner(ctx, tx, newObject)
			switch {
			case err != nil:
				return err
			case existing != "":
				objectID = existing
			default:
				if taken, err := s.objectExists(ctx, tx, newObject.ID); err != nil || taken {
					return duplicateOr(err, taken)
				}
				create = true
			}
		} else {
			found, err := s.objectExists(ctx, tx, objectID)
			if err != nil {
				return err
			}
			if !found {
				return &domain.StoreError{Op: "append pulse", Err: fmt.Errorf("object %s: %w", objectID, domain.ErrNotFound)}
			}
		}

		stored := *p
		stored.ObjectID = objectID
		pulseData, err := encodePulse(&stored)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if create {
				queueObject(ctx, pipe, newObject, objectData)
			}
			queuePulse(ctx, pipe, &stored, pulseData)
			return nil
		})
		return err
	}, watched...)
	if err != nil {
		return domain.WrapStoreError("append pulse", err)
	}

	p.ObjectID = objectID
	return nil
}

func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	pipe := s.client.Pipeline()
	objects := pipe.SCard(ctx, KeyAllObjects)
	pulses := pipe.ZCard(ctx, KeyTimeline)
	locations := pipe.HLen(ctx, KeyLocationCounts)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Stats{}, domain.WrapStoreError("stats", err)
	}

	return domain.Stats{
		Objects:   objects.Val(),
		Pulses:    pulses.Val(),
		Locations: locations.Val(),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return domain.WrapStoreError("ping", s.client.Ping(ctx).Err())
}

// watch runs fn in an optimistic transaction, retrying when a watched key
// was modified concurrently.
func (s *Store) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction aborted after %d attempts: %w", maxTxRetries, redis.TxFailedErr)
}

func (s *Store) objectExists(ctx context.Context, tx *redis.Tx, id string) (bool, error) {
	n, err := tx.Exists(ctx, ObjectKey(id)).Result()
	return n > 0, err
}

// externalOwner returns the id already registered for obj's external id.
func (s *Store) externalOwner(ctx context.Context, tx *redis.Tx, obj *domain.PulseObject) (string, error) {
	if obj.ExternalID == "" {
		return "", nil
	}
	id, err := tx.HGet(ctx, ExternalKey(obj.Type), obj.ExternalID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

func queueObject(ctx context.Context, pipe redis.Pipeliner, obj *domain.PulseObject, data []byte) {
	pipe.Set(ctx, ObjectKey(obj.ID), data, 0)
	pipe.SAdd(ctx, KeyAllObjects, obj.ID)
	if obj.ExternalID != "" {
		pipe.HSet(ctx, ExternalKey(obj.Type), obj.ExternalID, obj.ID)
	}
}

func queuePulse(ctx context.Context, pipe redis.Pipeliner, p *domain.Pulse, data []byte) {
	score := float64(p.CreatedAt.Unix())
	member := LocationMember(store.LocationKey{ObjectID: p.ObjectID, Latitude: p.Latitude, Longitude: p.Longitude})

	pipe.Set(ctx, PulseKey(p.ID), data, 0)
	pipe.ZAdd(ctx, KeyTimeline, redis.Z{Score: score, Member: p.ID})
	pipe.HIncrBy(ctx, KeyLocationCounts, member, 1)
	// LT keeps the earliest pulse time, and still adds new members
	pipe.ZAddLT(ctx, KeyLocationOrder, redis.Z{Score: score, Member: member})
	if p.Latitude >= -geoMaxLatitude && p.Latitude <= geoMaxLatitude {
		pipe.GeoAdd(ctx, KeyLocationGeo, &redis.GeoLocation{
			Name:      member,
			Longitude: p.Longitude,
			Latitude:  p.Latitude,
		})
	}
}

// duplicateOr maps an existence check onto ErrDuplicateKey.
func duplicateOr(err error, taken bool) error {
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateKey
	}
	return nil
}

func scoreMin(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
