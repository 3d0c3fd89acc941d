// Package matcher implements the exact and fuzzy matching tiers on top of a
// storage engine.
package matcher

import (
	"context"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/ranking"
	"github.com/utafrali/catalogsearch/internal/trigram"
)

// Result is one page of candidates produced by a single tier.
type Result struct {
	Candidates []domain.CandidateRecord
	TotalCount int
	Tier       domain.Tier
}

// Empty reports whether the tier matched nothing.
func (r *Result) Empty() bool {
	return r == nil || r.TotalCount == 0 && len(r.Candidates) == 0
}

// Items tags the candidates with the result's tier for ranking.
func (r *Result) Items() []ranking.Item {
	if r == nil {
		return nil
	}
	return ranking.Items(r.Candidates, r.Tier)
}

// Lexical is the exact tier: weighted full-text matching over the locale's
// projection. Empty text browses every record passing the predicate.
type Lexical struct {
	searcher engine.Searcher
}

// NewLexical creates the exact tier over searcher.
func NewLexical(searcher engine.Searcher) *Lexical {
	return &Lexical{searcher: searcher}
}

// Match runs the lexical query. Storage failures are returned as
// domain.ErrStorageUnavailable.
func (m *Lexical) Match(ctx context.Context, req engine.Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := m.searcher.Lexical(ctx, req)
	if err != nil {
		return nil, domain.StorageUnavailable(err)
	}
	return &Result{
		Candidates: page.Candidates,
		TotalCount: page.TotalCount,
		Tier:       domain.TierExact,
	}, nil
}

// Fuzzy is the trigram similarity tier.
type Fuzzy struct {
	searcher  engine.Searcher
	threshold float64
}

// NewFuzzy creates the fuzzy tier. A non-positive threshold selects
// trigram.DefaultThreshold.
func NewFuzzy(searcher engine.Searcher, threshold float64) *Fuzzy {
	if threshold <= 0 {
		threshold = trigram.DefaultThreshold
	}
	return &Fuzzy{searcher: searcher, threshold: threshold}
}

// Threshold returns the minimum similarity a candidate must reach.
func (m *Fuzzy) Threshold() float64 {
	return m.threshold
}

// Match runs the similarity query. Empty text matches nothing without
// touching storage.
func (m *Fuzzy) Match(ctx context.Context, req engine.Request) (*Result, error) {
	if req.Text == "" {
		return &Result{Tier: domain.TierFuzzy}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req.Threshold = m.threshold
	page, err := m.searcher.Similar(ctx, req)
	if err != nil {
		return nil, domain.StorageUnavailable(err)
	}
	return &Result{
		Candidates: page.Candidates,
		TotalCount: page.TotalCount,
		Tier:       domain.TierFuzzy,
	}, nil
}
