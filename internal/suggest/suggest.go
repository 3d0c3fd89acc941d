// Package suggest produces "did you mean" terms for queries that matched
// nothing.
package suggest

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/utafrali/catalogsearch/internal/cache"
	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/trigram"
)

// Defaults applied by NewGenerator to zero Config fields.
const (
	DefaultLimit          = 5
	DefaultVocabularyTTL  = 5 * time.Minute
	DefaultMaxIdentifiers = 10000
)

// Term is one vocabulary word and where it came from.
type Term struct {
	Text   string                  `json:"text"`
	Source domain.SuggestionSource `json:"source"`
}

// Config tunes a Generator.
type Config struct {
	Threshold      float64
	Limit          int
	VocabularyTTL  time.Duration
	MaxIdentifiers int
}

// Generator scores query text against a per-locale vocabulary made of
// catalog identifiers and translated attribute labels.
type Generator struct {
	searcher engine.Searcher
	catalog  *domain.Catalog
	vocab    cache.Cache[[]Term]
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

// NewGenerator creates a Generator. Vocabulary lists are stored in vocab
// for cfg.VocabularyTTL.
func NewGenerator(searcher engine.Searcher, catalog *domain.Catalog, vocab cache.Cache[[]Term], cfg Config, logger *slog.Logger) *Generator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = trigram.DefaultThreshold
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.VocabularyTTL <= 0 {
		cfg.VocabularyTTL = DefaultVocabularyTTL
	}
	if cfg.MaxIdentifiers <= 0 {
		cfg.MaxIdentifiers = DefaultMaxIdentifiers
	}
	return &Generator{
		searcher: searcher,
		catalog:  catalog,
		vocab:    vocab,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Suggest returns up to limit vocabulary terms whose similarity to text is
// at least the threshold, best first, ties broken by text. A non-positive
// limit selects the configured default.
func (g *Generator) Suggest(ctx context.Context, text string, locale domain.Locale, limit int) ([]domain.SuggestionCandidate, error) {
	text = domain.NormalizeText(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = g.cfg.Limit
	}

	terms, err := g.vocabulary(ctx, locale)
	if err != nil {
		return nil, err
	}

	m := trigram.NewMatcher(text)
	best := make(map[string]domain.SuggestionCandidate)
	for _, t := range terms {
		score := m.Score(t.Text)
		if score < g.cfg.Threshold || score == 0 {
			continue
		}
		if prev, ok := best[t.Text]; ok && prev.Score >= score {
			continue
		}
		best[t.Text] = domain.SuggestionCandidate{Text: t.Text, Score: score, Source: t.Source}
	}

	out := make([]domain.SuggestionCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.SuggestionCandidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Text, b.Text)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Invalidate drops every cached vocabulary list.
func (g *Generator) Invalidate(ctx context.Context) error {
	return g.vocab.InvalidateAll(ctx)
}

func vocabularyKey(locale domain.Locale) cache.Fingerprint {
	return cache.Fingerprint("vocabulary:" + string(locale))
}

// vocabulary returns the locale's terms, building and caching them on a
// miss. Cache failures are logged and bypassed.
func (g *Generator) vocabulary(ctx context.Context, locale domain.Locale) ([]Term, error) {
	key := vocabularyKey(locale)
	entry, ok, err := g.vocab.Get(ctx, key)
	if err != nil {
		g.logger.WarnContext(ctx, "vocabulary cache lookup failed", slog.String("error", err.Error()))
	}
	if ok {
		return entry.Payload, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := g.searcher.Identifiers(ctx, g.cfg.MaxIdentifiers)
	if err != nil {
		return nil, domain.StorageUnavailable(err)
	}

	terms := make([]Term, 0, len(ids))
	for _, id := range ids {
		terms = append(terms, Term{Text: id, Source: domain.SourceIdentifier})
	}
	for _, attr := range domain.CategoricalAttributes() {
		for _, label := range g.catalog.Labels(attr, locale) {
			terms = append(terms, Term{Text: label, Source: domain.SourceFor(attr)})
		}
	}

	entry = cache.NewEntry(key, terms, domain.TierEmpty, g.now(), g.cfg.VocabularyTTL)
	if err := g.vocab.Put(ctx, key, entry); err != nil {
		g.logger.WarnContext(ctx, "vocabulary cache store failed", slog.String("error", err.Error()))
	}
	return terms, nil
}
