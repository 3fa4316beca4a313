// Package fusion merges the per-provider result lists of one request into a
// single fused set: it normalizes names, clusters co-referent records across
// providers, selects representatives with provenance, and applies multi-entity
// spatial constraints over the fused set.
package fusion

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// nameSuffixes are trailing business designators stripped before comparison.
var nameSuffixes = []string{", inc", ", llc", " inc.", " llc.", " ltd.", " corporation", " corp."}

const namePunctuation = ".,!?;:\"'()"

// NormalizeName prepares a place name for similarity comparison: lowercase,
// strip business suffixes and punctuation, collapse whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)

	for _, suffix := range nameSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}

	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(namePunctuation, r) {
			return -1
		}
		return r
	}, name)

	return strings.Join(strings.Fields(name), " ")
}

// PartialRatio computes a fuzzy similarity in [0, 100] that tolerates token
// reordering and substring containment. The score is the best of three
// comparison strategies:
//
//  1. Full-string Levenshtein ratio.
//  2. Windowed ratio: the shorter string against every equal-length window of
//     the longer one, so "Blue Bottle" scores 100 against "Blue Bottle Coffee".
//  3. Token-sort ratio: both strings re-joined from sorted tokens, so word
//     order does not matter.
func PartialRatio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	score := levenshteinRatio(a, b)

	if s := windowedRatio(a, b); s > score {
		score = s
	}
	if s := levenshteinRatio(sortTokens(a), sortTokens(b)); s > score {
		score = s
	}

	return score
}

// levenshteinRatio is the normalized edit-distance similarity in [0, 100].
func levenshteinRatio(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}
	dist := matchr.Levenshtein(a, b)
	return int(float64(longest-dist) / float64(longest) * 100)
}

// windowedRatio slides the shorter string over the longer one and returns the
// best per-window ratio. Exact containment scores 100 without the scan.
func windowedRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if strings.Contains(string(long), string(short)) {
		return 100
	}

	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		window := string(long[i : i+len(short)])
		if s := levenshteinRatio(string(short), window); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
