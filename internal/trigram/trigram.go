// Package trigram computes trigram similarity with the semantics of
// PostgreSQL's pg_trgm extension, so the in-memory engine, the suggestion
// generator and the SQL engine agree on scores.
package trigram

import (
	"slices"
	"strings"
	"unicode"
)

// DefaultThreshold is the minimum similarity for a fuzzy match.
const DefaultThreshold = 0.3

// Trigrams returns the sorted set of trigrams of s. Each word (a run of
// letters or digits) is lower-cased and padded with two spaces in front and
// one behind before it is split.
func Trigrams(s string) []string {
	set := make(map[string]struct{})
	for _, word := range words(s) {
		padded := append([]rune("  "), []rune(word)...)
		padded = append(padded, ' ')
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Similarity returns |A∩B| / |A∪B| over the trigram sets of a and b, in
// [0, 1]. Two strings without any trigrams have similarity 0.
func Similarity(a, b string) float64 {
	return similarity(Trigrams(a), Trigrams(b))
}

// Best returns the highest similarity between query and any of fields.
func Best(query string, fields ...string) float64 {
	q := Trigrams(query)
	best := 0.0
	for _, f := range fields {
		if s := similarity(q, Trigrams(f)); s > best {
			best = s
		}
	}
	return best
}

// Matcher scores many candidates against one query without recomputing the
// query's trigrams.
type Matcher struct {
	query []string
}

// NewMatcher prepares query for repeated scoring.
func NewMatcher(query string) *Matcher {
	return &Matcher{query: Trigrams(query)}
}

// Score returns the similarity between the prepared query and s.
func (m *Matcher) Score(s string) float64 {
	return similarity(m.query, Trigrams(s))
}

// similarity merges two sorted trigram sets.
func similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch strings.Compare(a[i], b[j]) {
		case 0:
			shared++
			i++
			j++
		case -1:
			i++
		default:
			j++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
