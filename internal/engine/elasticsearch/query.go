package elasticsearch

import (
	"context"
	"fmt"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/filter"
	"github.com/utafrali/catalogsearch/internal/ranking"
	"github.com/utafrali/catalogsearch/internal/trigram"
)

// maxFuzzyCandidates bounds the trigram candidate window fetched for
// client-side similarity scoring.
const maxFuzzyCandidates = 1000

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  *float64 `json:"_score"`
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Lexical implements engine.Searcher. Relevance is the BM25 score of a
// term-centric query across the locale's fields, boosted by field weight.
func (e *Engine) Lexical(ctx context.Context, req engine.Request) (*engine.Page, error) {
	var must any = map[string]any{"match_all": map[string]any{}}
	browse := req.Text == ""
	if !browse {
		must = map[string]any{
			"simple_query_string": map[string]any{
				"query":            req.Text,
				"fields":           lexicalFields(req.Locale),
				"default_operator": "and",
				"flags":            "NONE",
			},
		}
	}

	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []any{must},
				"filter": buildFilters(req.Predicate),
			},
		},
		"sort":             buildSort(req.Sort),
		"track_scores":     true,
		"track_total_hits": true,
		"from":             req.Offset,
	}
	if req.Limit > 0 {
		body["size"] = req.Limit
	}

	resp, err := e.search(ctx, "elasticsearch lexical", body)
	if err != nil {
		return nil, err
	}

	page := &engine.Page{
		Candidates: make([]domain.CandidateRecord, 0, len(resp.Hits.Hits)),
		TotalCount: resp.Hits.Total.Value,
	}
	for _, hit := range resp.Hits.Hits {
		c := hit.Source.candidate(req.Locale)
		if !browse && hit.Score != nil {
			c.LexicalRank = *hit.Score
		}
		page.Candidates = append(page.Candidates, c)
	}
	return page, nil
}

// Similar implements engine.Searcher. Elasticsearch narrows the candidate
// set through the trigram subfields; similarity itself is computed here so
// it matches the other engines exactly.
func (e *Engine) Similar(ctx context.Context, req engine.Request) (*engine.Page, error) {
	if req.Text == "" {
		return &engine.Page{}, nil
	}

	prefix := localePrefix(req.Locale)
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"match": map[string]any{"sku.trigram": req.Text}},
					map[string]any{"match": map[string]any{prefix + ".type_name.trigram": req.Text}},
					map[string]any{"match": map[string]any{prefix + ".color_name.trigram": req.Text}},
				},
				"minimum_should_match": 1,
				"filter":               buildFilters(req.Predicate),
			},
		},
		"size": maxFuzzyCandidates,
	}

	resp, err := e.search(ctx, "elasticsearch similar", body)
	if err != nil {
		return nil, err
	}

	m := trigram.NewMatcher(req.Text)
	var items []ranking.Item
	for _, hit := range resp.Hits.Hits {
		c := hit.Source.candidate(req.Locale)
		best := m.Score(c.SKU)
		if c.TypeName != "" {
			best = max(best, m.Score(c.TypeName))
			if c.ColorName != "" {
				best = max(best, m.Score(c.TypeName+" "+c.ColorName))
			}
		}
		if best < req.Threshold || best == 0 {
			continue
		}
		c.SimilarityScore = best
		items = append(items, ranking.Item{Candidate: c, Tier: domain.TierFuzzy})
	}

	ranking.Sort(items, req.Sort)
	page := &engine.Page{TotalCount: len(items)}
	start := min(max(req.Offset, 0), len(items))
	end := len(items)
	if req.Limit > 0 {
		end = min(start+req.Limit, len(items))
	}
	page.Candidates = make([]domain.CandidateRecord, 0, end-start)
	for _, it := range items[start:end] {
		page.Candidates = append(page.Candidates, it.Candidate)
	}
	return page, nil
}

// Identifiers implements engine.Searcher.
func (e *Engine) Identifiers(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = maxFuzzyCandidates
	}
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					rangeQuery(string(filter.FieldPrice), "gt", 0),
					rangeQuery(string(filter.FieldMediaCount), "gt", 0),
				},
			},
		},
		"_source":  []string{"sku"},
		"collapse": map[string]any{"field": "sku.keyword"},
		"sort":     []any{map[string]any{"sku.keyword": "asc"}},
		"size":     limit,
	}

	resp, err := e.search(ctx, "elasticsearch identifiers", body)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if hit.Source.SKU != "" {
			ids = append(ids, hit.Source.SKU)
		}
	}
	return ids, nil
}

func localePrefix(l domain.Locale) string {
	if l == domain.LocaleRU {
		return "ru"
	}
	return "en"
}

// lexicalFields returns the boosted fields of the locale's projection.
func lexicalFields(l domain.Locale) []string {
	p := localePrefix(l)
	return []string{
		fmt.Sprintf("sku^%g", engine.WeightIdentifier),
		fmt.Sprintf("%s.type_name^%g", p, engine.WeightCategory),
		fmt.Sprintf("%s.color_name^%g", p, engine.WeightCategory),
		fmt.Sprintf("%s.name^%g", p, engine.WeightDescription),
		fmt.Sprintf("%s.description^%g", p, engine.WeightDescription),
	}
}

// buildFilters translates a compiled predicate into filter-context clauses.
func buildFilters(p filter.Predicate) []any {
	filters := make([]any, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		field := string(c.Field)
		switch c.Op {
		case filter.OpGt:
			filters = append(filters, rangeQuery(field, "gt", c.Value))
		case filter.OpGte:
			filters = append(filters, rangeQuery(field, "gte", c.Value))
		case filter.OpLte:
			filters = append(filters, rangeQuery(field, "lte", c.Value))
		case filter.OpIn:
			filters = append(filters, map[string]any{"terms": map[string]any{field: c.Value}})
		case filter.OpEq:
			filters = append(filters, map[string]any{"term": map[string]any{field: c.Value}})
		}
	}
	return filters
}

func rangeQuery(field, op string, v any) map[string]any {
	return map[string]any{"range": map[string]any{field: map[string]any{op: v}}}
}

// buildSort mirrors ranking.Compare within a single tier.
func buildSort(sort string) []any {
	var keys []any
	switch sort {
	case domain.SortPriceAsc:
		keys = append(keys, map[string]any{"price_minor": "asc"})
	case domain.SortPriceDesc:
		keys = append(keys, map[string]any{"price_minor": "desc"})
	case domain.SortNewest:
		keys = append(keys, map[string]any{"created_at": "desc"})
	}
	return append(keys,
		map[string]any{"_score": "desc"},
		map[string]any{"created_at": "desc"},
		map[string]any{"id": "asc"},
	)
}
