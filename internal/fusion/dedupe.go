package fusion

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/aroundmehq/aroundme/internal/geo"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
)

const (
	// defaultNameThreshold is the minimum partial-ratio score for two names
	// to count as the same place.
	defaultNameThreshold = 82

	// defaultGeoThresholdM is the maximum haversine distance in meters for
	// two records to count as the same place.
	defaultGeoThresholdM = 120
)

// ProvenanceEntry records how one cluster member relates to the cluster's
// representative.
type ProvenanceEntry struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`

	// NameSimilarity is the partial-ratio score against the representative's
	// name, scaled to [0, 1].
	NameSimilarity float64 `json:"name_similarity"`

	// GeoOffsetM is the distance to the representative in meters.
	GeoOffsetM float64 `json:"geo_offset_m"`

	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`
}

// MatchedPartner is a partner entity found near an anchor by the constraint
// joiner.
type MatchedPartner struct {
	Kind             string   `json:"kind"`
	Name             string   `json:"name"`
	DistanceM        float64  `json:"distance_m"`
	MatchedMustHaves []string `json:"matched_must_haves"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
}

// FusedPlace is one deduplicated place: a representative record standing for
// a cluster of co-referent provider records.
type FusedPlace struct {
	// ID is a fresh opaque identifier minted at fusion time.
	ID string `json:"id"`

	Representative places.ProviderPlace   `json:"representative"`
	Members        []places.ProviderPlace `json:"members"`
	Provenance     []ProvenanceEntry      `json:"provenance"`

	// Partners is populated by the constraint joiner for multi-entity
	// searches.
	Partners []MatchedPartner `json:"matched_partners,omitempty"`
}

// Stats summarizes one fusion pass.
type Stats struct {
	InputCount        int `json:"input_count"`
	OutputCount       int `json:"output_count"`
	ClustersFound     int `json:"clusters_found"`
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// Deduper clusters provider records that refer to the same physical place.
// It is read-only after construction and safe for concurrent use.
type Deduper struct {
	nameThreshold int
	geoThresholdM float64
	preference    map[string]int
}

// DeduperOption is a functional option for configuring a [Deduper].
type DeduperOption func(*Deduper)

// WithNameThreshold sets the minimum name similarity score in [0, 100].
// Default: 82.
func WithNameThreshold(threshold int) DeduperOption {
	return func(d *Deduper) {
		d.nameThreshold = threshold
	}
}

// WithGeoThreshold sets the maximum distance in meters. Default: 120.
func WithGeoThreshold(meters float64) DeduperOption {
	return func(d *Deduper) {
		d.geoThresholdM = meters
	}
}

// WithProviderPreference sets the provider order used to break representative
// ties, most preferred first. Default: google before yelp.
func WithProviderPreference(providers []string) DeduperOption {
	return func(d *Deduper) {
		d.preference = make(map[string]int, len(providers))
		for i, name := range providers {
			d.preference[name] = i
		}
	}
}

// NewDeduper returns a Deduper configured with the supplied options.
func NewDeduper(opts ...DeduperOption) *Deduper {
	d := &Deduper{
		nameThreshold: defaultNameThreshold,
		geoThresholdM: defaultGeoThresholdM,
		preference:    map[string]int{"google": 0, "yelp": 1},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Duplicates reports whether two records refer to the same physical place:
// the normalized names must score at or above the name threshold and the
// coordinates must lie within the geo threshold. The relation is symmetric
// and reflexive.
func (d *Deduper) Duplicates(a, b places.ProviderPlace) bool {
	sim := PartialRatio(NormalizeName(a.Name), NormalizeName(b.Name))
	if sim < d.nameThreshold {
		return false
	}
	return geo.DistanceM(a.Lat, a.Lng, b.Lat, b.Lng) <= d.geoThresholdM
}

// Fuse partitions the input records into clusters of duplicates and returns
// one FusedPlace per cluster. Every input record lands in exactly one
// cluster; cluster order follows the index of each cluster's first member,
// so the output is deterministic for a given input order.
func (d *Deduper) Fuse(records []places.ProviderPlace) ([]FusedPlace, Stats) {
	if len(records) == 0 {
		return nil, Stats{}
	}

	parent := make([]int, len(records))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if !d.Duplicates(records[i], records[j]) {
				continue
			}
			ri, rj := find(i), find(j)
			if ri != rj {
				// Attach the later root under the earlier one so root choice
				// follows index order.
				parent[rj] = ri
			}
		}
	}

	memberIndex := make(map[int][]int)
	var roots []int
	for i := range records {
		root := find(i)
		if _, seen := memberIndex[root]; !seen {
			roots = append(roots, root)
		}
		memberIndex[root] = append(memberIndex[root], i)
	}

	fused := make([]FusedPlace, 0, len(roots))
	for _, root := range roots {
		members := make([]places.ProviderPlace, 0, len(memberIndex[root]))
		for _, i := range memberIndex[root] {
			members = append(members, records[i])
		}
		rep := d.representative(members)
		fused = append(fused, FusedPlace{
			ID:             uuid.NewString(),
			Representative: rep,
			Members:        members,
			Provenance:     buildProvenance(members, rep),
		})
	}

	stats := Stats{
		InputCount:        len(records),
		OutputCount:       len(fused),
		ClustersFound:     len(fused),
		DuplicatesRemoved: len(records) - len(fused),
	}
	return fused, stats
}

// representative picks the member that best stands for the cluster: highest
// review count, then highest rating, then provider preference order.
func (d *Deduper) representative(cluster []places.ProviderPlace) places.ProviderPlace {
	if len(cluster) == 1 {
		return cluster[0]
	}

	sorted := make([]places.ProviderPlace, len(cluster))
	copy(sorted, cluster)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ReviewCountValue() != b.ReviewCountValue() {
			return a.ReviewCountValue() > b.ReviewCountValue()
		}
		if a.RatingValue() != b.RatingValue() {
			return a.RatingValue() > b.RatingValue()
		}
		return d.providerRank(a.Provider) < d.providerRank(b.Provider)
	})
	return sorted[0]
}

func (d *Deduper) providerRank(provider string) int {
	if rank, ok := d.preference[provider]; ok {
		return rank
	}
	return len(d.preference)
}

func buildProvenance(cluster []places.ProviderPlace, rep places.ProviderPlace) []ProvenanceEntry {
	repName := NormalizeName(rep.Name)

	entries := make([]ProvenanceEntry, 0, len(cluster))
	for _, member := range cluster {
		sim := PartialRatio(NormalizeName(member.Name), repName)
		offset := geo.DistanceM(member.Lat, member.Lng, rep.Lat, rep.Lng)

		entries = append(entries, ProvenanceEntry{
			Provider:       member.Provider,
			ProviderID:     member.ProviderID,
			Name:           member.Name,
			NameSimilarity: float64(sim) / 100,
			GeoOffsetM:     math.Round(offset*100) / 100,
			Rating:         member.Rating,
			ReviewCount:    member.ReviewCount,
			PriceLevel:     member.PriceLevel,
		})
	}
	return entries
}
