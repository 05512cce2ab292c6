package geoparse

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/sells-group/geopack/internal/textclean"
)

// contextTokens splits a context token string on delim and normalizes each
// token for comparison. Empty tokens are dropped.
func contextTokens(s, delim string) []string {
	parts := strings.Split(s, delim)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := textclean.Fold(textclean.Clean(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// TokenSimilarity is the Dice overlap of two token lists, in [0,1]. Two
// tokens match when their edit-distance similarity reaches threshold; each
// token matches at most once.
func TokenSimilarity(a, b []string, threshold float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	used := make([]bool, len(b))
	matched := 0
	for _, ta := range a {
		for j, tb := range b {
			if used[j] {
				continue
			}
			if ta == tb || levenshtein.Similarity(ta, tb, nil) >= threshold {
				used[j] = true
				matched++
				break
			}
		}
	}
	return 2 * float64(matched) / float64(len(a)+len(b))
}
