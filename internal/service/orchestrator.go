package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/catalogsearch/internal/cache"
	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/filter"
	"github.com/utafrali/catalogsearch/internal/matcher"
	"github.com/utafrali/catalogsearch/internal/ranking"
	"github.com/utafrali/catalogsearch/pkg/pagination"
)

// stateFn is one step of a search. It returns the next step, or nil once a
// terminal outcome is set.
type stateFn func(ctx context.Context, run *searchRun) (stateFn, error)

// searchRun carries a single search through the state machine.
type searchRun struct {
	query     domain.SearchQuery
	predicate filter.Predicate
	key       cache.Fingerprint

	page        *domain.ResultPage
	suggestions []domain.SuggestionCandidate
	outcome     domain.Outcome
	cached      bool
}

func (r *searchRun) request() engine.Request {
	return engine.Request{
		Text:      r.query.Text,
		Locale:    r.query.Locale,
		Predicate: r.predicate,
		Sort:      r.query.Sort,
		Offset:    r.query.Pagination().Offset(),
		Limit:     r.query.PageSize,
	}
}

func (r *searchRun) response() *domain.SearchResponse {
	resp := &domain.SearchResponse{
		Results:     []domain.RankedResult{},
		Tier:        domain.TierEmpty,
		Outcome:     r.outcome,
		Suggestions: r.suggestions,
		Cached:      r.cached,
	}
	total := 0
	if r.page != nil {
		if r.page.Results != nil {
			resp.Results = r.page.Results
		}
		resp.Tier = r.page.Tier
		total = r.page.TotalCount
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []domain.SuggestionCandidate{}
	}
	resp.Pagination = pagination.NewMeta(r.query.Pagination(), total)
	return resp
}

// compileFilters validates the filters before any cache or storage access.
func (s *SearchService) compileFilters(_ context.Context, run *searchRun) (stateFn, error) {
	pred, err := s.compiler.Compile(run.query.Filters)
	if err != nil {
		return nil, err
	}
	key, err := cache.NewFingerprint(run.query)
	if err != nil {
		return nil, err
	}
	run.predicate = pred
	run.key = key
	return s.lookupCache, nil
}

// lookupCache serves the page from the result cache. Cache failures count as
// misses.
func (s *SearchService) lookupCache(ctx context.Context, run *searchRun) (stateFn, error) {
	entry, ok, err := s.results.Get(ctx, run.key)
	if err != nil {
		cacheEventsTotal.WithLabelValues(cacheError).Inc()
		s.logger.WarnContext(ctx, "result cache lookup failed", slog.String("error", err.Error()))
	}
	if !ok {
		cacheEventsTotal.WithLabelValues(cacheMiss).Inc()
		return s.matchExact, nil
	}

	cacheEventsTotal.WithLabelValues(cacheHit).Inc()
	page := entry.Payload
	run.page = &page
	run.cached = true
	run.outcome = domain.OutcomeExactHit
	if page.Tier == domain.TierFuzzy {
		run.outcome = domain.OutcomeFuzzyHit
	}
	return nil, nil
}

// matchExact runs the lexical tier. Browse queries end here even when nothing
// matches.
func (s *SearchService) matchExact(ctx context.Context, run *searchRun) (stateFn, error) {
	res, err := s.match(ctx, domain.TierExact, s.lexical.Match, run.request())
	if err != nil {
		return nil, err
	}
	if !res.Empty() {
		run.page = s.rank(res, run)
		run.outcome = domain.OutcomeExactHit
		return s.storePage, nil
	}
	if run.query.IsBrowse() {
		run.outcome = domain.OutcomeEmptyNoSuggestions
		return nil, nil
	}
	return s.matchFuzzy, nil
}

// matchFuzzy runs the trigram similarity tier.
func (s *SearchService) matchFuzzy(ctx context.Context, run *searchRun) (stateFn, error) {
	res, err := s.match(ctx, domain.TierFuzzy, s.fuzzy.Match, run.request())
	if err != nil {
		return nil, err
	}
	if !res.Empty() {
		run.page = s.rank(res, run)
		run.outcome = domain.OutcomeFuzzyHit
		return s.storePage, nil
	}
	return s.suggestTerms, nil
}

// suggestTerms ends an empty search with "did you mean" terms. Its responses
// are never cached.
func (s *SearchService) suggestTerms(ctx context.Context, run *searchRun) (stateFn, error) {
	start := s.now()
	suggestions, err := retryOnce(ctx, s.opts.RetryBackoff, func() ([]domain.SuggestionCandidate, error) {
		return s.suggester.Suggest(ctx, run.query.Text, run.query.Locale, s.opts.SuggestLimit)
	})
	tierDuration.WithLabelValues("suggest").Observe(s.now().Sub(start).Seconds())
	if err != nil {
		return nil, err
	}

	run.suggestions = suggestions
	run.outcome = domain.OutcomeEmptyNoSuggestions
	if len(suggestions) > 0 {
		run.outcome = domain.OutcomeEmptyWithSuggestions
	}
	return nil, nil
}

// storePage caches a non-empty page. A failed write does not fail the search.
func (s *SearchService) storePage(ctx context.Context, run *searchRun) (stateFn, error) {
	entry := cache.NewEntry(run.key, *run.page, run.page.Tier, s.now(), s.opts.ResultTTL)
	if err := s.results.Put(ctx, run.key, entry); err != nil {
		cacheEventsTotal.WithLabelValues(cacheError).Inc()
		s.logger.WarnContext(ctx, "result cache store failed", slog.String("error", err.Error()))
		return nil, nil
	}
	cacheEventsTotal.WithLabelValues(cacheStore).Inc()
	return nil, nil
}

// match runs one tier with a single retry on storage failure.
func (s *SearchService) match(
	ctx context.Context,
	tier domain.Tier,
	fn func(context.Context, engine.Request) (*matcher.Result, error),
	req engine.Request,
) (*matcher.Result, error) {
	start := s.now()
	res, err := retryOnce(ctx, s.opts.RetryBackoff, func() (*matcher.Result, error) {
		return fn(ctx, req)
	})
	tierDuration.WithLabelValues(string(tier)).Observe(s.now().Sub(start).Seconds())
	if err != nil {
		s.logger.WarnContext(ctx, "matching tier failed",
			slog.String("tier", string(tier)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return res, nil
}

func (s *SearchService) rank(res *matcher.Result, run *searchRun) *domain.ResultPage {
	return &domain.ResultPage{
		Results:    ranking.Rank(res.Items(), run.query.Sort, run.query.Pagination().Offset()),
		TotalCount: res.TotalCount,
		Tier:       res.Tier,
	}
}
