package api

import (
	"fmt"

	"github.com/aroundmehq/aroundme/internal/intent"
	"github.com/aroundmehq/aroundme/internal/problem"
	"github.com/aroundmehq/aroundme/internal/search"
)

// searchRequest is the JSON body of POST /api/search.
type searchRequest struct {
	Query   string   `json:"query"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	RadiusM int      `json:"radius_m"`
	TopK    int      `json:"top_k"`

	Filters *filtersWire `json:"filters"`

	MultiEntity *intent.Intent `json:"multi_entity"`

	Context *contextWire `json:"context"`
}

// filtersWire carries the optional request filters. Price is a [min, max]
// pair.
type filtersWire struct {
	Price    []int  `json:"price"`
	OpenNow  *bool  `json:"open_now"`
	Category string `json:"category"`
}

// contextWire carries conversation state and presentation preferences.
type contextWire struct {
	ConversationID string `json:"conversation_id"`
	ResultSetID    string `json:"result_set_id"`
	FollowUp       bool   `json:"follow_up"`
	OriginalQuery  string `json:"original_query"`
	AgentMode      string `json:"agent_mode"`
	RankingPreset  string `json:"ranking_preset"`
}

// validate checks the documented request constraints. It returns nil when the
// request is acceptable.
func (r *searchRequest) validate() *problem.Problem {
	if r.Lat == nil || r.Lng == nil {
		return problem.Validation("lat and lng are required")
	}
	if *r.Lat < -90 || *r.Lat > 90 {
		return problem.Validation(fmt.Sprintf("lat %.4f is out of range [-90, 90]", *r.Lat))
	}
	if *r.Lng < -180 || *r.Lng > 180 {
		return problem.Validation(fmt.Sprintf("lng %.4f is out of range [-180, 180]", *r.Lng))
	}
	if r.RadiusM != 0 && (r.RadiusM < minRadiusM || r.RadiusM > maxRadiusM) {
		return problem.Validation(fmt.Sprintf("radius_m %d is out of range [%d, %d]", r.RadiusM, minRadiusM, maxRadiusM))
	}
	if r.TopK != 0 && (r.TopK < 1 || r.TopK > maxTopK) {
		return problem.Validation(fmt.Sprintf("top_k %d is out of range [1, %d]", r.TopK, maxTopK))
	}
	if r.Filters != nil && len(r.Filters.Price) > 0 {
		if len(r.Filters.Price) != 2 {
			return problem.Validation("filters.price must be a [min, max] pair")
		}
		lo, hi := r.Filters.Price[0], r.Filters.Price[1]
		if lo < 0 || lo > 4 || hi < 0 || hi > 4 {
			return problem.Validation("filters.price values must be in [0, 4]")
		}
		if lo > hi {
			return problem.Validation(fmt.Sprintf("filters.price min %d exceeds max %d", lo, hi))
		}
	}
	if r.MultiEntity != nil {
		if err := r.MultiEntity.Validate(); err != nil {
			return problem.Validation(err.Error())
		}
	}
	if r.Context != nil && r.Context.FollowUp && r.Context.ResultSetID == "" && r.Context.ConversationID == "" {
		return problem.Validation("follow_up requires a result_set_id or conversation_id")
	}
	return nil
}

// toRequest maps the wire shape onto the service request. validate must have
// passed.
func (r *searchRequest) toRequest(defaultRadiusM int, defaultPreset string) search.Request {
	req := search.Request{
		Query:       r.Query,
		Lat:         *r.Lat,
		Lng:         *r.Lng,
		RadiusM:     r.RadiusM,
		TopK:        r.TopK,
		MultiEntity: r.MultiEntity,
		Preset:      defaultPreset,
	}
	if req.RadiusM == 0 {
		req.RadiusM = defaultRadiusM
	}

	if r.Filters != nil {
		f := &intent.Filters{
			OpenNow:  r.Filters.OpenNow,
			Category: r.Filters.Category,
		}
		if len(r.Filters.Price) == 2 {
			lo, hi := r.Filters.Price[0], r.Filters.Price[1]
			f.PriceMin, f.PriceMax = &lo, &hi
		}
		req.Filters = f
	}

	if r.Context != nil {
		req.ConversationID = r.Context.ConversationID
		if r.Context.RankingPreset != "" {
			req.Preset = r.Context.RankingPreset
		}
		if r.Context.FollowUp {
			req.Followup = &search.Followup{
				ResultSetID: r.Context.ResultSetID,
				Utterance:   r.Query,
			}
		}
	}
	return req
}

// searchResponse is the JSON body of a successful search.
type searchResponse struct {
	Places      []Place      `json:"places"`
	Debug       search.Debug `json:"debug"`
	ResultSetID string       `json:"result_set_id"`
}
