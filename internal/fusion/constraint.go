package fusion

import (
	"github.com/aroundmehq/aroundme/internal/geo"
	"github.com/aroundmehq/aroundme/internal/intent"
)

// DefaultNearDistanceM is the partner scan distance for NEAR relations that
// carry no explicit distance.
const DefaultNearDistanceM = 500

// JoinStats summarizes one constraint-join pass over the anchors that passed
// the must-have filter.
type JoinStats struct {
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
}

// JoinConstraints applies a multi-entity intent to the fused set. Entity 0 is
// the anchor; every other entity is a partner bound to the anchor through a
// relation. An anchor survives when it satisfies the anchor's must-haves and
// every anchor-rooted relation finds at least one qualifying partner among
// the other fused places. Relations whose left index is not the anchor are
// ignored.
//
// Kept anchors are returned with Partners populated: all qualifying partners
// per relation, in fused-set enumeration order.
func JoinConstraints(fused []FusedPlace, entities []intent.EntitySpec, relations []intent.Relation, nearDistanceM float64) ([]FusedPlace, JoinStats) {
	if len(entities) <= 1 || len(relations) == 0 {
		return fused, JoinStats{Kept: len(fused)}
	}
	if nearDistanceM <= 0 {
		nearDistanceM = DefaultNearDistanceM
	}

	anchor := entities[0]

	texts := make([]string, len(fused))
	for i, f := range fused {
		texts[i] = PlaceText(f.Representative)
	}

	var anchors []int
	for i := range fused {
		if _, ok := matchMustHaves(texts[i], anchor.MustHaves); ok {
			anchors = append(anchors, i)
		}
	}

	var kept []FusedPlace
	for _, ai := range anchors {
		partners, ok := findPartners(fused, texts, ai, entities, relations, nearDistanceM)
		if !ok {
			continue
		}
		place := fused[ai]
		place.Partners = partners
		kept = append(kept, place)
	}

	return kept, JoinStats{Kept: len(kept), Dropped: len(anchors) - len(kept)}
}

// findPartners scans the fused set for partners of one anchor. It returns
// ok=false as soon as any relation ends up with no qualifying partner.
func findPartners(fused []FusedPlace, texts []string, ai int, entities []intent.EntitySpec, relations []intent.Relation, nearDistanceM float64) ([]MatchedPartner, bool) {
	anchorRep := fused[ai].Representative

	var partners []MatchedPartner
	for _, rel := range relations {
		if rel.Left != 0 {
			continue
		}
		if rel.Right < 0 || rel.Right >= len(entities) {
			continue
		}
		partner := entities[rel.Right]

		maxDistance := rel.DistanceM
		if maxDistance <= 0 {
			maxDistance = nearDistanceM
		}

		found := false
		for i := range fused {
			if i == ai {
				continue
			}
			dist := geo.DistanceM(anchorRep.Lat, anchorRep.Lng, fused[i].Representative.Lat, fused[i].Representative.Lng)
			if dist > maxDistance {
				continue
			}
			matched, ok := matchMustHaves(texts[i], partner.MustHaves)
			if !ok {
				continue
			}
			found = true
			partners = append(partners, MatchedPartner{
				Kind:             partner.Kind,
				Name:             fused[i].Representative.Name,
				DistanceM:        dist,
				MatchedMustHaves: matched,
				Lat:              fused[i].Representative.Lat,
				Lng:              fused[i].Representative.Lng,
			})
		}
		if !found {
			return nil, false
		}
	}
	return partners, true
}

// matchMustHaves checks every must-have against the place text and returns
// the matched subset. ok is true only when all must-haves matched; an empty
// must-have list always passes.
func matchMustHaves(placeText string, mustHaves []string) ([]string, bool) {
	matched := make([]string, 0, len(mustHaves))
	for _, mustHave := range mustHaves {
		if MatchMustHave(placeText, mustHave) {
			matched = append(matched, mustHave)
		}
	}
	return matched, len(matched) == len(mustHaves)
}
