package index

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/store"
)

var _ store.Store = (*MemoryIndex)(nil)

// MemoryIndex is an in-process store. It is the default backend for local
// runs and tests; nothing survives a restart.
type MemoryIndex struct {
	mu sync.RWMutex

	objects    map[string]*domain.PulseObject // ID -> object
	externalID map[externalKey]string         // (type, externalId) -> ID
	pulses     []*domain.Pulse                // insertion order
	pulseIDs   map[string]struct{}
	locations  map[store.LocationKey]*locationGroup
}

type externalKey struct {
	typ domain.ObjectType
	id  string
}

type locationGroup struct {
	key       store.LocationKey
	count     int64
	firstSeen time.Time
	seq       int // insertion rank, breaks firstSeen ties
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		objects:    make(map[string]*domain.PulseObject),
		externalID: make(map[externalKey]string),
		pulseIDs:   make(map[string]struct{}),
		locations:  make(map[store.LocationKey]*locationGroup),
	}
}

func (idx *MemoryIndex) InsertObject(_ context.Context, obj *domain.PulseObject) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, clash := idx.lookupExternal(obj); clash || idx.objects[obj.ID] != nil {
		return domain.ErrDuplicateKey
	}
	idx.putObject(obj)
	return nil
}

func (idx *MemoryIndex) FindObjectByID(_ context.Context, id string) (*domain.PulseObject, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	obj, ok := idx.objects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneObject(obj), nil
}

func (idx *MemoryIndex) FindObjectByExternalID(_ context.Context, typ domain.ObjectType, externalID string) (*domain.PulseObject, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	id, ok := idx.externalID[externalKey{typ: typ, id: externalID}]
	if !ok || externalID == "" {
		return nil, domain.ErrNotFound
	}
	return cloneObject(idx.objects[id]), nil
}

func (idx *MemoryIndex) InsertPulse(_ context.Context, p *domain.Pulse) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return idx.putPulse(p)
}

func (idx *MemoryIndex) AppendPulse(_ context.Context, newObject *domain.PulseObject, p *domain.Pulse) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// checked up front so a rejected pulse never leaves an orphan object
	if _, dup := idx.pulseIDs[p.ID]; dup {
		return domain.ErrDuplicateKey
	}

	if newObject != nil {
		if existing, clash := idx.lookupExternal(newObject); clash {
			p.ObjectID = existing
		} else if idx.objects[newObject.ID] != nil {
			return domain.ErrDuplicateKey
		} else {
			idx.putObject(newObject)
			p.ObjectID = newObject.ID
		}
	}
	return idx.putPulse(p)
}

func (idx *MemoryIndex) QueryPulsesSince(_ context.Context, cutoff time.Time) ([]domain.PulseView, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	views := make([]domain.PulseView, 0)
	for _, p := range idx.pulses {
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		views = append(views, idx.view(p))
	}
	return views, nil
}

func (idx *MemoryIndex) QueryObjectLocationCandidates(_ context.Context, limit int) ([]domain.LocationCandidate, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	groups := make([]*locationGroup, 0, len(idx.locations))
	for _, g := range idx.locations {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].firstSeen.Equal(groups[j].firstSeen) {
			return groups[i].firstSeen.Before(groups[j].firstSeen)
		}
		return groups[i].seq < groups[j].seq
	})
	if limit >= 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	candidates := make([]domain.LocationCandidate, 0, len(groups))
	for _, g := range groups {
		obj := idx.objects[g.key.ObjectID]
		candidates = append(candidates, domain.LocationCandidate{
			ObjectID:   g.key.ObjectID,
			Title:      obj.Title,
			Type:       obj.Type,
			Latitude:   g.key.Latitude,
			Longitude:  g.key.Longitude,
			PulseCount: g.count,
		})
	}
	return candidates, nil
}

func (idx *MemoryIndex) LatestPulses(_ context.Context, limit int) ([]domain.PulseView, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	order := make([]int, len(idx.pulses))
	for i := range order {
		order[i] = len(idx.pulses) - 1 - i
	}
	// newest insert first among equal timestamps
	sort.SliceStable(order, func(i, j int) bool {
		return idx.pulses[order[i]].CreatedAt.After(idx.pulses[order[j]].CreatedAt)
	})
	if limit >= 0 && len(order) > limit {
		order = order[:limit]
	}

	views := make([]domain.PulseView, 0, len(order))
	for _, i := range order {
		views = append(views, idx.view(idx.pulses[i]))
	}
	return views, nil
}

func (idx *MemoryIndex) Stats(_ context.Context) (domain.Stats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return domain.Stats{
		Objects:   int64(len(idx.objects)),
		Pulses:    int64(len(idx.pulses)),
		Locations: int64(len(idx.locations)),
	}, nil
}

func (idx *MemoryIndex) Ping(_ context.Context) error { return nil }

// lookupExternal returns the id already registered for obj's
// (type, externalId), if any. Caller holds the lock.
func (idx *MemoryIndex) lookupExternal(obj *domain.PulseObject) (string, bool) {
	if obj.ExternalID == "" {
		return "", false
	}
	id, ok := idx.externalID[externalKey{typ: obj.Type, id: obj.ExternalID}]
	return id, ok
}

// putObject stores a copy of obj. Caller holds the lock.
func (idx *MemoryIndex) putObject(obj *domain.PulseObject) {
	stored := cloneObject(obj)
	idx.objects[stored.ID] = stored
	if stored.ExternalID != "" {
		idx.externalID[externalKey{typ: stored.Type, id: stored.ExternalID}] = stored.ID
	}
}

// putPulse appends a copy of p. Caller holds the lock.
func (idx *MemoryIndex) putPulse(p *domain.Pulse) error {
	if _, dup := idx.pulseIDs[p.ID]; dup {
		return domain.ErrDuplicateKey
	}
	if _, ok := idx.objects[p.ObjectID]; !ok {
		return &domain.StoreError{Op: "insert pulse", Err: domain.ErrNotFound}
	}

	stored := *p
	idx.pulses = append(idx.pulses, &stored)
	idx.pulseIDs[stored.ID] = struct{}{}

	key := store.LocationKey{ObjectID: stored.ObjectID, Latitude: stored.Latitude, Longitude: stored.Longitude}
	g, ok := idx.locations[key]
	if !ok {
		g = &locationGroup{key: key, firstSeen: stored.CreatedAt, seq: len(idx.locations)}
		idx.locations[key] = g
	}
	g.count++
	if stored.CreatedAt.Before(g.firstSeen) {
		g.firstSeen = stored.CreatedAt
	}
	return nil
}

func (idx *MemoryIndex) view(p *domain.Pulse) domain.PulseView {
	obj := idx.objects[p.ObjectID]
	return domain.PulseView{
		Pulse:    *p,
		Title:    obj.Title,
		Type:     obj.Type,
		Metadata: obj.Metadata,
	}
}

func cloneObject(obj *domain.PulseObject) *domain.PulseObject {
	c := *obj
	if obj.Metadata != nil {
		c.Metadata = append([]byte(nil), obj.Metadata...)
	}
	return &c
}
