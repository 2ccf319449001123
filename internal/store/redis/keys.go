package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/store"
)

const (
	// KeyPrefixObject is the prefix for object documents
	KeyPrefixObject = "pulse:object:"
	// KeyPrefixExternal is the prefix for the per-type externalId -> id hashes
	KeyPrefixExternal = "pulse:objects:ext:"
	// KeyAllObjects is the set of all object IDs
	KeyAllObjects = "pulse:objects:all"

	// KeyPrefixPulse is the prefix for pulse documents
	KeyPrefixPulse = "pulse:pulse:"
	// KeyTimeline scores pulse IDs by creation time
	KeyTimeline = "pulse:pulses:timeline"

	// KeyLocationCounts maps a location member to its pulse count
	KeyLocationCounts = "pulse:locations:count"
	// KeyLocationOrder scores location members by their earliest pulse
	KeyLocationOrder = "pulse:locations:order"
	// KeyLocationGeo indexes location members by coordinate
	KeyLocationGeo = "pulse:locations:geo"
)

// geoMaxLatitude is the largest latitude Redis GEO commands accept.
const geoMaxLatitude = 85.05112878

func ObjectKey(id string) string {
	return KeyPrefixObject + id
}

func ExternalKey(typ domain.ObjectType) string {
	return KeyPrefixExternal + string(typ)
}

func PulseKey(id string) string {
	return KeyPrefixPulse + id
}

// LocationMember encodes a location group as "<objectId>|<lat>|<lng>".
// Coordinates are written with the shortest exact representation, so equal
// floats always map to the same member.
func LocationMember(k store.LocationKey) string {
	return k.ObjectID + "|" + formatCoord(k.Latitude) + "|" + formatCoord(k.Longitude)
}

// ParseLocationMember reverses LocationMember.
func ParseLocationMember(member string) (store.LocationKey, error) {
	lngSep := strings.LastIndex(member, "|")
	if lngSep <= 0 {
		return store.LocationKey{}, fmt.Errorf("invalid location member: %s", member)
	}
	latSep := strings.LastIndex(member[:lngSep], "|")
	if latSep <= 0 {
		return store.LocationKey{}, fmt.Errorf("invalid location member: %s", member)
	}

	lat, err := strconv.ParseFloat(member[latSep+1:lngSep], 64)
	if err != nil {
		return store.LocationKey{}, fmt.Errorf("invalid latitude in %s: %w", member, err)
	}
	lng, err := strconv.ParseFloat(member[lngSep+1:], 64)
	if err != nil {
		return store.LocationKey{}, fmt.Errorf("invalid longitude in %s: %w", member, err)
	}

	return store.LocationKey{ObjectID: member[:latSep], Latitude: lat, Longitude: lng}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
