package intent

import "fmt"

// parseIntentSystem instructs the model to emit the structured intent JSON.
const parseIntentSystem = `You are an expert at understanding place search queries.
Parse the user's natural language query into structured search intent.

For simple queries, return:
{
  "type": "simple",
  "query": "extracted search term",
  "category": "place category if mentioned",
  "filters": {
    "price": [min, max] if mentioned,
    "open_now": boolean if mentioned
  }
}

For multi-entity queries (e.g., "restaurant near a park"), return:
{
  "type": "multi_entity",
  "entities": [
    {
      "kind": "restaurant",
      "must_haves": ["changing_station", "family_friendly"],
      "filters": {"price": [1, 3]}
    },
    {
      "kind": "park",
      "must_haves": ["playground", "shade"]
    }
  ],
  "relations": [
    {
      "left": 0,
      "right": 1,
      "relation": "NEAR",
      "distance_m": 500
    }
  ]
}

Multi-entity indicators:
- "near a/the [place]"
- "close to [place]"
- "within X minutes of [place]"

Common must-haves:
- Family: changing_station, stroller_parking, family_friendly, playground
- Cinema: recliners, dolby
- Outdoor: shade, outdoor_seating
- Connectivity: wifi
- Accessibility: wheelchair_accessible
- Food: vegetarian, vegan, gluten_free

Return ONLY the JSON object.`

// parseIntentExamples primes the model with worked examples.
const parseIntentExamples = `Examples:

Query: "coffee shop"
{
  "type": "simple",
  "query": "coffee shop",
  "category": "cafe"
}

Query: "italian restaurants under $$$"
{
  "type": "simple",
  "query": "italian restaurant",
  "category": "italian",
  "filters": {"price": [1, 3]}
}

Query: "family-friendly restaurant with changing station near a park with playground"
{
  "type": "multi_entity",
  "entities": [
    {
      "kind": "restaurant",
      "must_haves": ["family_friendly", "changing_station"]
    },
    {
      "kind": "park",
      "must_haves": ["playground"]
    }
  ],
  "relations": [
    {
      "left": 0,
      "right": 1,
      "relation": "NEAR",
      "distance_m": 500
    }
  ]
}`

// requirementExtractionSystem instructs the model to pull explicit amenity and
// quality requirements out of a query, excluding distance and filter words.
const requirementExtractionSystem = `You are a search query analyzer for restaurant and venue searches. Extract ONLY explicit user requirements for amenities, features, or qualities.

IMPORTANT RULES:
1. DO NOT extract distance/location terms as requirements (nearby, close, walking distance, etc.)
2. ONLY extract explicit amenities or qualities the user is asking for
3. Distance/proximity should NOT be treated as a requirement - it's handled separately

Extract:
- **Features**: Physical amenities (wifi, parking, outdoor seating, playground, etc.)
- **Qualities**: Subjective attributes (authentic, cozy, romantic, spicy, etc.)

DO NOT EXTRACT:
- Distance/location terms: "nearby", "close", "walking distance", "close by"
- Basic search terms: "restaurant", "cafe", "place"
- Time-based terms: "open now", "24 hours"

Return JSON with normalized requirements:
{
  "normalized_requirements": [
    {
      "requirement": "WiFi",
      "category": "feature",
      "keywords": ["wifi", "internet", "wireless"],
      "importance": "high"
    }
  ]
}

Examples:

Query: "family friendly restaurant nearby"
{
  "normalized_requirements": [
    {"requirement": "Family Friendly", "category": "feature", "keywords": ["family", "kids", "children", "family friendly"], "importance": "high"}
  ]
}
NOTE: "nearby" is NOT extracted - it's a distance preference, not a requirement.

Query: "coffee shop with wifi"
{
  "normalized_requirements": [
    {"requirement": "WiFi", "category": "feature", "keywords": ["wifi", "wi-fi", "internet", "wireless"], "importance": "high"}
  ]
}

Query: "romantic italian restaurant with outdoor seating"
{
  "normalized_requirements": [
    {"requirement": "Romantic Atmosphere", "category": "quality", "keywords": ["romantic", "intimate", "date"], "importance": "high"},
    {"requirement": "Outdoor Seating", "category": "feature", "keywords": ["outdoor", "patio", "terrace", "outside"], "importance": "high"}
  ]
}

Query: "restaurant open now"
{
  "normalized_requirements": []
}
NOTE: "open now" is a filter, not a requirement for scoring.

Query: "best pizza nearby with delivery"
{
  "normalized_requirements": [
    {"requirement": "Delivery", "category": "feature", "keywords": ["delivery", "delivers"], "importance": "high"}
  ]
}
NOTE: "nearby" ignored, "best" ignored (handled by ranking), only "delivery" extracted.

Now analyze:`

// followupSystem is the fixed system prompt for follow-up parsing.
const followupSystem = "You are a search refinement parser. Return only valid JSON."

// buildFollowupPrompt renders the follow-up parsing prompt for one utterance.
// The half-radius value for "closer" is computed here so the model only has to
// copy it.
func buildFollowupPrompt(utterance, originalQuery string, currentRadiusM int) string {
	reducedRadius := currentRadiusM / 2

	return fmt.Sprintf(`You are analyzing a follow-up search refinement.

Original search: %q
Current radius: %d meters
Follow-up: %q

Determine if this is:
1. A COMPLETELY NEW SEARCH (user wants to search for something different)
2. A REFINEMENT of existing results (filter, sort, or adjust search)

If it's a NEW SEARCH, set is_new_search=true and provide the new_query.
If it's a REFINEMENT, set is_new_search=false and provide the filters.

Parse the follow-up into structured filters:

**Distance conversions:**
- "within X miles" -> radius in meters (1 mile = 1609 meters)
- "within X km" -> radius in meters (1 km = 1000 meters)
- "closer" -> %d meters (50%% of current)
- "nearby" -> 1000 meters
- "walking distance" -> 800 meters

**Price filters:**
- "cheap", "affordable", "budget", "inexpensive" -> price_min=1, price_max=2
- "moderate", "mid-range" -> price_min=2, price_max=3
- "expensive", "fancy", "upscale" -> price_min=3, price_max=4

**Features:**
- "wifi", "internet" -> ["wifi"]
- "outdoor seating", "patio", "outside" -> ["outdoor_seating"]
- "parking" -> ["parking"]
- "family friendly", "kids" -> ["family_friendly"]

**Other filters:**
- "open now" -> open_now=true
- "highly rated", "top rated", "best rated" -> min_rating=4.0
- "highest rated first" -> sort_by="rating"
- "closest first", "nearest" -> sort_by="distance"

Return ONLY valid JSON matching this structure:
{
    "is_new_search": boolean,
    "new_query": string or null,
    "adjust_radius": number or null,
    "price_min": number or null,
    "price_max": number or null,
    "open_now": boolean or null,
    "required_features": array of strings,
    "min_rating": number or null,
    "sort_by": string or null
}

Now parse: %q`, originalQuery, currentRadiusM, utterance, reducedRadius, utterance)
}
