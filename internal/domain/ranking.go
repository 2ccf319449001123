package domain

import (
	"sort"
	"time"
)

// RankNearby computes the distance from center to every candidate, drops
// those farther than radiusKm, sorts the rest by distance and keeps at most
// limit entries. Equal distances keep the candidates' input order.
func RankNearby(candidates []LocationCandidate, center Point, radiusKm float64, limit int) []NearbyItem {
	items := make([]NearbyItem, 0, len(candidates))
	for _, c := range candidates {
		d := DistanceKm(Point{Lat: c.Latitude, Lng: c.Longitude}, center)
		if d > radiusKm {
			continue
		}
		items = append(items, NearbyItem{
			ObjectID:   c.ObjectID,
			Title:      c.Title,
			Type:       c.Type,
			Lat:        c.Latitude,
			Lng:        c.Longitude,
			PulseCount: c.PulseCount,
			DistanceKm: d,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DistanceKm < items[j].DistanceKm
	})

	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// RankTrending counts pulses created at or after cutoff per object and
// returns the limit busiest objects, ties broken by title.
func RankTrending(pulses []PulseView, cutoff time.Time, limit int) []TrendingItem {
	byObject := make(map[string]*TrendingItem)
	order := make([]string, 0)

	for _, p := range pulses {
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		item, ok := byObject[p.ObjectID]
		if !ok {
			item = &TrendingItem{ObjectID: p.ObjectID, Title: p.Title, Type: p.Type}
			byObject[p.ObjectID] = item
			order = append(order, p.ObjectID)
		}
		item.PulseCount++
	}

	items := make([]TrendingItem, 0, len(order))
	for _, id := range order {
		items = append(items, *byObject[id])
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].PulseCount != items[j].PulseCount {
			return items[i].PulseCount > items[j].PulseCount
		}
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].ObjectID < items[j].ObjectID
	})

	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
