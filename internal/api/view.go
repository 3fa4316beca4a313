package api

import (
	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/internal/rank"
)

// Place is the presentation form of one scored place.
type Place struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`

	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`

	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`

	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	MapURL  string `json:"map_url,omitempty"`
	Address string `json:"address,omitempty"`

	DistanceKm float64 `json:"distance_km"`

	// Features maps normalized feature keys to their confidence.
	Features map[string]float64 `json:"features,omitempty"`

	Score            float64            `json:"score"`
	MaxPossibleScore float64            `json:"max_possible_score"`
	Evidence         map[string]float64 `json:"evidence"`

	UserRequirements    []string                  `json:"user_requirements,omitempty"`
	RequirementsMatched []rank.MatchedRequirement `json:"requirements_matched,omitempty"`
	MatchPercentage     float64                   `json:"match_percentage"`

	Provenance      []fusion.ProvenanceEntry `json:"provenance"`
	MatchedPartners []fusion.MatchedPartner  `json:"matched_partners,omitempty"`
}

// placeView flattens one scored place into its presentation form.
func placeView(sp rank.ScoredPlace) Place {
	rep := sp.Fused.Representative

	featureMaps := make([]map[string]float64, 0, len(sp.Fused.Members))
	for _, m := range sp.Fused.Members {
		featureMaps = append(featureMaps, fusion.ExtractFeatures(fusion.PlaceText(m)))
	}

	var reqNames []string
	for _, rm := range sp.RequirementMatches {
		reqNames = append(reqNames, rm.RequirementName)
	}

	return Place{
		ID:                  sp.Fused.ID,
		Name:                rep.Name,
		Category:            rep.Category,
		Lat:                 rep.Lat,
		Lng:                 rep.Lng,
		Rating:              rep.Rating,
		ReviewCount:         rep.ReviewCount,
		PriceLevel:          rep.PriceLevel,
		Phone:               rep.Phone,
		Website:             rep.Website,
		MapURL:              rep.MapURL,
		Address:             rep.Address,
		DistanceKm:          rep.DistanceKm,
		Features:            fusion.MergeFeatures(featureMaps...),
		Score:               sp.Score,
		MaxPossibleScore:    sp.MaxPossibleScore,
		Evidence:            sp.Evidence,
		UserRequirements:    reqNames,
		RequirementsMatched: sp.RequirementMatches,
		MatchPercentage:     sp.MatchPercentage,
		Provenance:          sp.Fused.Provenance,
		MatchedPartners:     sp.Fused.Partners,
	}
}

func placeViews(scored []rank.ScoredPlace) []Place {
	views := make([]Place, 0, len(scored))
	for _, sp := range scored {
		views = append(views, placeView(sp))
	}
	return views
}
