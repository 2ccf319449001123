package domain

import (
	"testing"
	"time"
)

func TestRankNearby(t *testing.T) {
	candidates := []LocationCandidate{
		{ObjectID: "fc", Title: "Fight Club", Type: ObjectMovie, Latitude: 51.5074, Longitude: -0.1278, PulseCount: 4},
		{ObjectID: "in", Title: "Inception", Type: ObjectMovie, Latitude: 40.7128, Longitude: -74.0060, PulseCount: 2},
	}

	got := RankNearby(candidates, Point{Lat: 40.71, Lng: -74.00}, 50, 10)

	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Inception" {
		t.Errorf("expected Inception, got %s", got[0].Title)
	}
	if got[0].DistanceKm < 0.5 || got[0].DistanceKm > 0.7 {
		t.Errorf("expected about 0.59 km, got %f", got[0].DistanceKm)
	}
	if got[0].PulseCount != 2 {
		t.Errorf("expected pulse count 2, got %d", got[0].PulseCount)
	}
}

func TestRankNearbyOrdering(t *testing.T) {
	center := Point{Lat: 48.8566, Lng: 2.3522}
	candidates := []LocationCandidate{
		{ObjectID: "far", Title: "far", Latitude: 48.95, Longitude: 2.35},
		{ObjectID: "tie-1", Title: "tie-1", Latitude: 48.87, Longitude: 2.3522},
		{ObjectID: "near", Title: "near", Latitude: 48.857, Longitude: 2.3522},
		{ObjectID: "tie-2", Title: "tie-2", Latitude: 48.87, Longitude: 2.3522},
		{ObjectID: "out", Title: "out", Latitude: 45.76, Longitude: 4.83},
	}

	got := RankNearby(candidates, center, 20, 10)

	wantOrder := []string{"near", "tie-1", "tie-2", "far"}
	if len(got) != len(wantOrder) {
		t.Fatalf("expected %d results, got %d", len(wantOrder), len(got))
	}
	for i, id := range wantOrder {
		if got[i].ObjectID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ObjectID)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceKm < got[i-1].DistanceKm {
			t.Errorf("results not sorted at %d: %f < %f", i, got[i].DistanceKm, got[i-1].DistanceKm)
		}
	}
	for _, item := range got {
		if item.DistanceKm > 20 {
			t.Errorf("%s is outside the radius: %f km", item.ObjectID, item.DistanceKm)
		}
	}

	if limited := RankNearby(candidates, center, 20, 2); len(limited) != 2 || limited[1].ObjectID != "tie-1" {
		t.Errorf("limit 2 = %+v", limited)
	}
}

func TestRankNearbyEmpty(t *testing.T) {
	got := RankNearby(nil, Point{Lat: 1, Lng: 1}, 50, 10)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestRankTrending(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-7 * 24 * time.Hour)

	var pulses []PulseView
	add := func(objectID, title string, n int, age time.Duration) {
		for i := 0; i < n; i++ {
			pulses = append(pulses, PulseView{
				Pulse: Pulse{ObjectID: objectID, CreatedAt: now.Add(-age)},
				Title: title,
				Type:  ObjectMovie,
			})
		}
	}

	add("a", "Arrival", 3, 2*24*time.Hour)
	add("b", "Blade Runner", 5, 40*24*time.Hour)

	got := RankTrending(pulses, cutoff, 10)
	if len(got) != 1 {
		t.Fatalf("expected only the recent object, got %+v", got)
	}
	if got[0].ObjectID != "a" || got[0].PulseCount != 3 {
		t.Errorf("expected a with 3 pulses, got %+v", got[0])
	}
}

func TestRankTrendingTies(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	view := func(id, title string) PulseView {
		return PulseView{Pulse: Pulse{ObjectID: id, CreatedAt: now}, Title: title}
	}

	pulses := []PulseView{
		view("z", "Zodiac"), view("z", "Zodiac"),
		view("m", "Memento"),
		view("a", "Alien"), view("a", "Alien"),
		view("h", "Heat"),
		view("cut", "Cutoff"),
	}
	// exactly on the cutoff counts as inside the window
	pulses[len(pulses)-1].CreatedAt = now.Add(-time.Hour)

	got := RankTrending(pulses, now.Add(-time.Hour), 10)

	want := []struct {
		title string
		count int64
	}{{"Alien", 2}, {"Zodiac", 2}, {"Cutoff", 1}, {"Heat", 1}, {"Memento", 1}}

	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Title != w.title || got[i].PulseCount != w.count {
			t.Errorf("position %d: got %s/%d, want %s/%d", i, got[i].Title, got[i].PulseCount, w.title, w.count)
		}
	}

	if top := RankTrending(pulses, now.Add(-time.Hour), 1); len(top) != 1 || top[0].Title != "Alien" {
		t.Errorf("limit 1 = %+v", top)
	}
}
