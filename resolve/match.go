// Package resolve maps spoken labels onto the action vocabulary and onto
// indexed filesystem entries.
package resolve

import (
	"slices"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity ratio for a close match.
const DefaultCutoff = 0.6

// CloseMatches returns up to n of the best matches for word among
// possibilities, scored by the sequence-matcher ratio. Candidates scoring
// below cutoff are dropped. Results are ordered by score, highest first;
// equal scores keep their order in possibilities.
func CloseMatches(word string, possibilities []string, n int, cutoff float64) []string {
	if n <= 0 || len(possibilities) == 0 {
		return nil
	}
	cutoff = min(max(cutoff, 0), 1)

	type scored struct {
		value string
		score float64
	}
	var hits []scored

	m := difflib.NewMatcher(nil, runes(word))
	for _, p := range possibilities {
		m.SetSeq1(runes(p))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		if r := m.Ratio(); r >= cutoff {
			hits = append(hits, scored{value: p, score: r})
		}
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.value
	}
	return out
}

// Similarity returns the ratio between two strings in [0, 1].
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

// runes splits s into one element per code point, the unit the matcher compares.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
