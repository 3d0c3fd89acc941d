// Package ranking orders matched candidates into a single deterministic
// total order.
package ranking

import (
	"cmp"
	"slices"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// Item is a candidate tagged with the tier that produced it.
type Item struct {
	Candidate domain.CandidateRecord
	Tier      domain.Tier
}

// Score returns the tier-appropriate relevance score: lexical rank for
// exact matches, similarity for fuzzy ones.
func (i Item) Score() float64 {
	if i.Tier == domain.TierFuzzy {
		return i.Candidate.SimilarityScore
	}
	return i.Candidate.LexicalRank
}

func tierOrder(t domain.Tier) int {
	switch t {
	case domain.TierExact:
		return 0
	case domain.TierFuzzy:
		return 1
	}
	return 2
}

// Compare orders a before b (negative) or after (positive). Keys: tier,
// the requested sort key unless it is relevance, score desc, createdAt
// desc, id asc. Only equal ids compare equal.
func Compare(a, b Item, sort string) int {
	if c := cmp.Compare(tierOrder(a.Tier), tierOrder(b.Tier)); c != 0 {
		return c
	}

	ca, cb := a.Candidate, b.Candidate
	switch sort {
	case domain.SortPriceAsc:
		if c := cmp.Compare(ca.Attributes.PriceMinor, cb.Attributes.PriceMinor); c != 0 {
			return c
		}
	case domain.SortPriceDesc:
		if c := cmp.Compare(cb.Attributes.PriceMinor, ca.Attributes.PriceMinor); c != 0 {
			return c
		}
	case domain.SortNewest:
		if c := cb.CreatedAt.Compare(ca.CreatedAt); c != 0 {
			return c
		}
	}

	if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
		return c
	}
	if c := cb.CreatedAt.Compare(ca.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(ca.ID, cb.ID)
}

// Sort orders items in place.
func Sort(items []Item, sort string) {
	slices.SortFunc(items, func(a, b Item) int { return Compare(a, b, sort) })
}

// Rank returns items in their total order with final scores and absolute
// 1-based positions, offset being the number of results on earlier pages.
// The input slice is not modified.
func Rank(items []Item, sort string, offset int) []domain.RankedResult {
	sorted := slices.Clone(items)
	Sort(sorted, sort)

	out := make([]domain.RankedResult, len(sorted))
	for i, it := range sorted {
		out[i] = domain.RankedResult{
			CandidateRecord: it.Candidate,
			Tier:            it.Tier,
			Score:           it.Score(),
			Position:        offset + i + 1,
		}
	}
	return out
}

// Items tags every candidate with tier.
func Items(candidates []domain.CandidateRecord, tier domain.Tier) []Item {
	out := make([]Item, len(candidates))
	for i, c := range candidates {
		out[i] = Item{Candidate: c, Tier: tier}
	}
	return out
}
