package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/ranking"
	"github.com/utafrali/catalogsearch/internal/trigram"
)

// Engine is an in-memory implementation of engine.Searcher and
// engine.Indexer. Per-locale projections are rebuilt whenever a record is
// written. Thread-safe via sync.RWMutex.
type Engine struct {
	catalog *domain.Catalog

	mu       sync.RWMutex
	products map[string]*entry
}

type entry struct {
	product     domain.Product
	projections map[domain.Locale]projection
}

var (
	_ engine.Searcher = (*Engine)(nil)
	_ engine.Indexer  = (*Engine)(nil)
)

// New creates a new in-memory search engine over catalog's labels.
func New(catalog *domain.Catalog) *Engine {
	return &Engine{
		catalog:  catalog,
		products: make(map[string]*entry),
	}
}

func (e *Engine) newEntry(p domain.Product) *entry {
	en := &entry{product: p, projections: make(map[domain.Locale]projection)}
	for _, l := range domain.SupportedLocales() {
		en.projections[l] = project(&en.product, l, e.catalog)
	}
	return en
}

// Index adds or updates a single product in the in-memory index.
func (e *Engine) Index(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	en := e.newEntry(*product)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.products[product.ID] = en
	return nil
}

// Delete removes a product from the in-memory index by its ID.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.products, id)
	return nil
}

// BulkIndex adds or updates multiple products in the in-memory index.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries := make([]*entry, len(products))
	for i := range products {
		entries[i] = e.newEntry(products[i])
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, en := range entries {
		e.products[en.product.ID] = en
	}
	return nil
}

// Len returns the number of indexed products.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.products)
}

// Lexical implements engine.Searcher.
func (e *Engine) Lexical(ctx context.Context, req engine.Request) (*engine.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := tokenize(req.Text, req.Locale)
	if req.Text != "" && len(terms) == 0 {
		// Text made only of punctuation matches nothing, as in tsquery.
		return &engine.Page{}, nil
	}
	slices.Sort(terms)
	terms = slices.Compact(terms)

	e.mu.RLock()
	defer e.mu.RUnlock()

	var items []ranking.Item
	for _, en := range e.products {
		if !req.Predicate.Matches(en.product.Attributes) {
			continue
		}
		pr := e.projection(en, req.Locale)

		rank := 0.0
		if len(terms) > 0 {
			var ok bool
			if rank, ok = pr.rank(terms); !ok {
				continue
			}
		}
		c := candidate(&en.product, pr)
		c.LexicalRank = rank
		items = append(items, ranking.Item{Candidate: c, Tier: domain.TierExact})
	}

	return paginate(items, req), nil
}

// Similar implements engine.Searcher.
func (e *Engine) Similar(ctx context.Context, req engine.Request) (*engine.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Text == "" {
		return &engine.Page{}, nil
	}
	m := trigram.NewMatcher(req.Text)

	e.mu.RLock()
	defer e.mu.RUnlock()

	var items []ranking.Item
	for _, en := range e.products {
		if !req.Predicate.Matches(en.product.Attributes) {
			continue
		}
		pr := e.projection(en, req.Locale)

		best := 0.0
		for _, f := range pr.similarityFields(en.product.SKU) {
			best = max(best, m.Score(f))
		}
		if best < req.Threshold || best == 0 {
			continue
		}
		c := candidate(&en.product, pr)
		c.SimilarityScore = best
		items = append(items, ranking.Item{Candidate: c, Tier: domain.TierFuzzy})
	}

	return paginate(items, req), nil
}

// Identifiers implements engine.Searcher.
func (e *Engine) Identifiers(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	ids := make([]string, 0, len(e.products))
	for _, en := range e.products {
		if en.product.SKU != "" && en.product.Attributes.Listable() {
			ids = append(ids, en.product.SKU)
		}
	}
	e.mu.RUnlock()

	slices.Sort(ids)
	ids = slices.Compact(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (e *Engine) projection(en *entry, locale domain.Locale) projection {
	if pr, ok := en.projections[locale]; ok {
		return pr
	}
	return en.projections[domain.DefaultLocale]
}

func candidate(p *domain.Product, pr projection) domain.CandidateRecord {
	return domain.CandidateRecord{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        pr.name,
		Description: pr.desc,
		TypeName:    pr.typeName,
		ColorName:   pr.colorName,
		Attributes:  p.Attributes,
		CreatedAt:   p.CreatedAt,
	}
}

func paginate(items []ranking.Item, req engine.Request) *engine.Page {
	ranking.Sort(items, req.Sort)

	total := len(items)
	offset := min(max(req.Offset, 0), total)
	end := total
	if req.Limit > 0 {
		end = min(offset+req.Limit, total)
	}

	page := &engine.Page{
		Candidates: make([]domain.CandidateRecord, 0, end-offset),
		TotalCount: total,
	}
	for _, it := range items[offset:end] {
		page.Candidates = append(page.Candidates, it.Candidate)
	}
	return page
}
