package dedup

import (
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// sequenceSimilarity is a character-level similarity ratio in [0, 1]:
// 1 minus the Levenshtein distance over the longer string's length,
// case-insensitive. Empty input scores 0 against anything.
func sequenceSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}

	dist := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// jaccard is the set-overlap ratio |A∩B| / |A∪B|; empty sets score 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
