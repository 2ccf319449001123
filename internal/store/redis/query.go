package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pulse/internal/domain"
)

func (s *Store) QueryPulsesSince(ctx context.Context, cutoff time.Time) ([]domain.PulseView, error) {
	ids, err := s.client.ZRangeByScore(ctx, KeyTimeline, &redis.ZRangeBy{
		Min: scoreMin(cutoff),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, domain.WrapStoreError("query pulses since", err)
	}
	return s.loadViews(ctx, ids)
}

func (s *Store) LatestPulses(ctx context.Context, limit int) ([]domain.PulseView, error) {
	if limit <= 0 {
		return []domain.PulseView{}, nil
	}
	ids, err := s.client.ZRevRange(ctx, KeyTimeline, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, domain.WrapStoreError("latest pulses", err)
	}
	return s.loadViews(ctx, ids)
}

func (s *Store) QueryObjectLocationCandidates(ctx context.Context, limit int) ([]domain.LocationCandidate, error) {
	if limit <= 0 {
		return []domain.LocationCandidate{}, nil
	}
	members, err := s.client.ZRange(ctx, KeyLocationOrder, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, domain.WrapStoreError("query location candidates", err)
	}
	return s.loadCandidates(ctx, members)
}

// QueryCandidatesNear reads candidates from the GEO index, nearest first.
// Redis measures distance on a slightly different sphere, so the search
// radius is padded; callers apply the exact haversine filter afterwards.
func (s *Store) QueryCandidatesNear(ctx context.Context, center domain.Point, radiusKm float64, limit int) ([]domain.LocationCandidate, error) {
	if limit <= 0 {
		return []domain.LocationCandidate{}, nil
	}
	locations, err := s.client.GeoRadius(ctx, KeyLocationGeo, center.Lng, center.Lat, &redis.GeoRadiusQuery{
		Radius: radiusKm*1.005 + 0.01,
		Unit:   "km",
		Sort:   "ASC",
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, domain.WrapStoreError("query candidates near", err)
	}

	members := make([]string, len(locations))
	for i, loc := range locations {
		members[i] = loc.Name
	}
	return s.loadCandidates(ctx, members)
}

// loadViews fetches pulses by id and joins them with their objects,
// preserving the order of ids.
func (s *Store) loadViews(ctx context.Context, ids []string) ([]domain.PulseView, error) {
	views := make([]domain.PulseView, 0, len(ids))
	if len(ids) == 0 {
		return views, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = PulseKey(id)
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.WrapStoreError("load pulses", err)
	}

	pulses := make([]*domain.Pulse, 0, len(raw))
	objectIDs := make([]string, 0, len(raw))
	for _, r := range raw {
		data, ok := r.(string)
		if !ok {
			continue
		}
		p, err := decodePulse([]byte(data))
		if err != nil {
			return nil, domain.WrapStoreError("decode pulse", err)
		}
		pulses = append(pulses, p)
		objectIDs = append(objectIDs, p.ObjectID)
	}

	objects, err := s.loadObjects(ctx, objectIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range pulses {
		obj, ok := objects[p.ObjectID]
		if !ok {
			continue
		}
		views = append(views, domain.PulseView{
			Pulse:    *p,
			Title:    obj.Title,
			Type:     obj.Type,
			Metadata: obj.Metadata,
		})
	}
	return views, nil
}

// loadCandidates resolves location members into candidates, preserving
// the order of members.
func (s *Store) loadCandidates(ctx context.Context, members []string) ([]domain.LocationCandidate, error) {
	candidates := make([]domain.LocationCandidate, 0, len(members))
	if len(members) == 0 {
		return candidates, nil
	}

	counts, err := s.client.HMGet(ctx, KeyLocationCounts, members...).Result()
	if err != nil {
		return nil, domain.WrapStoreError("load location counts", err)
	}

	objectIDs := make([]string, 0, len(members))
	for _, m := range members {
		key, err := ParseLocationMember(m)
		if err != nil {
			return nil, domain.WrapStoreError("parse location", err)
		}
		objectIDs = append(objectIDs, key.ObjectID)
	}

	objects, err := s.loadObjects(ctx, objectIDs)
	if err != nil {
		return nil, err
	}

	for i, m := range members {
		key, _ := ParseLocationMember(m)
		obj, ok := objects[key.ObjectID]
		if !ok {
			continue
		}
		candidates = append(candidates, domain.LocationCandidate{
			ObjectID:   key.ObjectID,
			Title:      obj.Title,
			Type:       obj.Type,
			Latitude:   key.Latitude,
			Longitude:  key.Longitude,
			PulseCount: parseCount(counts[i]),
		})
	}
	return candidates, nil
}

func (s *Store) loadObjects(ctx context.Context, ids []string) (map[string]*domain.PulseObject, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, ObjectKey(id))
	}

	objects := make(map[string]*domain.PulseObject, len(unique))
	if len(unique) == 0 {
		return objects, nil
	}

	raw, err := s.client.MGet(ctx, unique...).Result()
	if err != nil {
		return nil, domain.WrapStoreError("load objects", err)
	}
	for _, r := range raw {
		data, ok := r.(string)
		if !ok {
			continue
		}
		obj, err := decodeObject([]byte(data))
		if err != nil {
			return nil, domain.WrapStoreError("decode object", err)
		}
		objects[obj.ID] = obj
	}
	return objects, nil
}

func parseCount(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
