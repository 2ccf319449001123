package domain

import "strings"

// ReactionType is the kind of reaction carried by a pulse.
type ReactionType string

const (
	ReactionHeart ReactionType = "HEART"
	ReactionFire  ReactionType = "FIRE"
	ReactionSad   ReactionType = "SAD"
	ReactionFunny ReactionType = "FUNNY"
	ReactionAngry ReactionType = "ANGRY"
)

// DefaultReaction replaces absent or unknown reaction types.
const DefaultReaction = ReactionHeart

// Reactions lists every known reaction type.
var Reactions = []ReactionType{ReactionHeart, ReactionFire, ReactionSad, ReactionFunny, ReactionAngry}

// NormalizeReaction maps raw input onto a known reaction type.
// Matching is case-insensitive; anything unrecognized becomes DefaultReaction.
// coerced reports whether the fallback was used for a non-empty input.
func NormalizeReaction(raw string) (r ReactionType, coerced bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, known := range Reactions {
		if string(known) == s {
			return known, false
		}
	}
	return DefaultReaction, s != ""
}
