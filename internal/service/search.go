package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/utafrali/catalogsearch/internal/cache"
	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/filter"
	"github.com/utafrali/catalogsearch/internal/matcher"
	"github.com/utafrali/catalogsearch/internal/suggest"
	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
	"github.com/utafrali/catalogsearch/pkg/httpclient"
)

// Defaults applied by NewSearchService to zero Options fields.
const (
	DefaultResultTTL    = 90 * time.Second
	DefaultRetryBackoff = 100 * time.Millisecond
)

// Dependencies are the collaborators of a SearchService.
type Dependencies struct {
	Searcher engine.Searcher

	// Indexer accepts catalog writes. Nil for read-only engines.
	Indexer engine.Indexer

	Catalog    *domain.Catalog
	Results    cache.Cache[domain.ResultPage]
	Vocabulary cache.Cache[[]suggest.Term]

	// CatalogClient fetches the catalog during Reindex. Nil disables reindexing.
	CatalogClient *httpclient.CircuitBreakerClient
}

// Options tunes a SearchService.
type Options struct {
	FuzzyThreshold    float64
	SuggestThreshold  float64
	SuggestLimit      int
	ResultTTL         time.Duration
	VocabularyTTL     time.Duration
	RetryBackoff      time.Duration
	CatalogServiceURL string
}

// SearchService implements the business logic for search operations.
type SearchService struct {
	compiler  *filter.Compiler
	lexical   *matcher.Lexical
	fuzzy     *matcher.Fuzzy
	suggester *suggest.Generator
	results   cache.Cache[domain.ResultPage]
	indexer   engine.Indexer
	catalog   *domain.Catalog
	client    *httpclient.CircuitBreakerClient
	opts      Options
	now       func() time.Time
	logger    *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(deps Dependencies, opts Options, logger *slog.Logger) *SearchService {
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.SuggestLimit <= 0 {
		opts.SuggestLimit = suggest.DefaultLimit
	}

	return &SearchService{
		compiler: filter.NewCompiler(deps.Catalog),
		lexical:  matcher.NewLexical(deps.Searcher),
		fuzzy:    matcher.NewFuzzy(deps.Searcher, opts.FuzzyThreshold),
		suggester: suggest.NewGenerator(deps.Searcher, deps.Catalog, deps.Vocabulary, suggest.Config{
			Threshold:     opts.SuggestThreshold,
			Limit:         opts.SuggestLimit,
			VocabularyTTL: opts.VocabularyTTL,
		}, logger),
		results: deps.Results,
		indexer: deps.Indexer,
		catalog: deps.Catalog,
		client:  deps.CatalogClient,
		opts:    opts,
		now:     time.Now,
		logger:  logger,
	}
}

// Search runs query through the tiered pipeline and returns one ranked page.
// Zero results are not an error.
func (s *SearchService) Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResponse, error) {
	start := s.now()
	run := &searchRun{query: query.Normalize()}

	for state := stateFn(s.compileFilters); state != nil; {
		var err error
		if state, err = state(ctx, run); err != nil {
			searchRequestsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	resp := run.response()
	resp.TookMs = s.now().Sub(start).Milliseconds()
	searchRequestsTotal.WithLabelValues(string(resp.Outcome)).Inc()

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", run.query.Text),
		slog.String("locale", string(run.query.Locale)),
		slog.String("outcome", string(resp.Outcome)),
		slog.Int("total", resp.Pagination.TotalCount),
		slog.Bool("cached", resp.Cached),
		slog.Int64("took_ms", resp.TookMs),
	)

	return resp, nil
}

// Suggest returns "did you mean" terms for text in locale.
func (s *SearchService) Suggest(ctx context.Context, text string, locale domain.Locale, limit int) ([]domain.SuggestionCandidate, error) {
	if limit <= 0 {
		limit = s.opts.SuggestLimit
	}
	suggestions, err := retryOnce(ctx, s.opts.RetryBackoff, func() ([]domain.SuggestionCandidate, error) {
		return s.suggester.Suggest(ctx, text, locale, limit)
	})
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []domain.SuggestionCandidate{}
	}
	return suggestions, nil
}

// InvalidateCache drops every cached result page and vocabulary list.
func (s *SearchService) InvalidateCache(ctx context.Context) error {
	err := errors.Join(s.results.InvalidateAll(ctx), s.suggester.Invalidate(ctx))
	if err != nil {
		cacheEventsTotal.WithLabelValues(cacheError).Inc()
		s.logger.WarnContext(ctx, "cache invalidation failed", slog.String("error", err.Error()))
		return apperrors.ServiceUnavailable("CACHE_UNAVAILABLE", "search cache is unavailable", err)
	}
	s.logger.InfoContext(ctx, "search cache invalidated")
	return nil
}

// retryOnce calls fn and, if it failed with a storage error, calls it
// again after backoff.
func retryOnce[T any](ctx context.Context, backoff time.Duration, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || !errors.Is(err, domain.ErrStorageUnavailable) {
		return v, err
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-timer.C:
	}
	return fn()
}
