package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/cache"
	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/engine/memory"
	"github.com/utafrali/catalogsearch/internal/suggest"
	"github.com/utafrali/catalogsearch/internal/trigram"
	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
	"github.com/utafrali/catalogsearch/pkg/logger"
)

// --- Mock Searcher ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Lexical(ctx context.Context, req engine.Request) (*engine.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Page), args.Error(1)
}

func (m *mockSearcher) Similar(ctx context.Context, req engine.Request) (*engine.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Page), args.Error(1)
}

func (m *mockSearcher) Identifiers(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// failingCache reports every operation as a backend failure.
type failingCache[V any] struct{}

func (failingCache[V]) Get(context.Context, cache.Fingerprint) (*cache.Entry[V], bool, error) {
	return nil, false, fmt.Errorf("%w: dial tcp: connection refused", cache.ErrUnavailable)
}

func (failingCache[V]) Put(context.Context, cache.Fingerprint, *cache.Entry[V]) error {
	return fmt.Errorf("%w: dial tcp: connection refused", cache.ErrUnavailable)
}

func (failingCache[V]) InvalidateAll(context.Context) error {
	return fmt.Errorf("%w: dial tcp: connection refused", cache.ErrUnavailable)
}

// --- Test Helpers ---

type testEnv struct {
	svc     *SearchService
	engine  *memory.Engine
	results *cache.LRU[domain.ResultPage]
}

func newResultCache(t *testing.T) *cache.LRU[domain.ResultPage] {
	t.Helper()
	c, err := cache.NewLRU[domain.ResultPage](100)
	require.NoError(t, err)
	return c
}

func newVocabularyCache(t *testing.T) *cache.LRU[[]suggest.Term] {
	t.Helper()
	c, err := cache.NewLRU[[]suggest.Term](10)
	require.NoError(t, err)
	return c
}

func testOptions() Options {
	return Options{RetryBackoff: time.Millisecond}
}

// newTestEnv wires a service over the in-memory engine seeded with the
// sample catalog.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	eng := memory.New(domain.DefaultCatalog())
	require.NoError(t, eng.BulkIndex(context.Background(), memory.SampleProducts(time.Now())))

	results := newResultCache(t)
	svc := NewSearchService(Dependencies{
		Searcher:   eng,
		Indexer:    eng,
		Catalog:    domain.DefaultCatalog(),
		Results:    results,
		Vocabulary: newVocabularyCache(t),
	}, testOptions(), logger.Discard())
	return &testEnv{svc: svc, engine: eng, results: results}
}

func newMockService(t *testing.T, s *mockSearcher) *SearchService {
	t.Helper()
	return NewSearchService(Dependencies{
		Searcher:   s,
		Catalog:    domain.DefaultCatalog(),
		Results:    newResultCache(t),
		Vocabulary: newVocabularyCache(t),
	}, testOptions(), logger.Discard())
}

func ptr[T any](v T) *T { return &v }

func skus(results []domain.RankedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.SKU
	}
	return out
}

func candidatePage(ids ...string) *engine.Page {
	page := &engine.Page{TotalCount: len(ids)}
	now := time.Now()
	for i, id := range ids {
		page.Candidates = append(page.Candidates, domain.CandidateRecord{
			ID:              id,
			SKU:             id,
			LexicalRank:     1,
			SimilarityScore: 0.5,
			CreatedAt:       now.Add(-time.Duration(i) * time.Minute),
		})
	}
	return page
}

// --- End-to-end scenarios ---

func TestSearch_ExactMatchesListableRecords(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{Text: "emerald"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierExact, resp.Tier)
	assert.Equal(t, domain.OutcomeExactHit, resp.Outcome)
	assert.ElementsMatch(t, []string{"EM-0001", "EM-0002"}, skus(resp.Results))
	assert.Empty(t, resp.Suggestions)
	for _, r := range resp.Results {
		assert.Positive(t, r.Attributes.PriceMinor)
		assert.Positive(t, r.Attributes.MediaCount)
		assert.Equal(t, domain.TierExact, r.Tier)
	}
}

func TestSearch_TypoFallsBackToFuzzy(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{Text: "emrald"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierFuzzy, resp.Tier)
	assert.Equal(t, domain.OutcomeFuzzyHit, resp.Outcome)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Score, trigram.DefaultThreshold)
		best := trigram.Best("emrald", r.SKU, r.TypeName, r.TypeName+" "+r.ColorName)
		assert.InDelta(t, best, r.Score, 1e-9)
	}
}

func TestSearch_NoPlausibleMatch(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{Text: "xyzxyz123"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierEmpty, resp.Tier)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	for _, s := range resp.Suggestions {
		assert.GreaterOrEqual(t, s.Score, trigram.DefaultThreshold)
	}
	if len(resp.Suggestions) == 0 {
		assert.Equal(t, domain.OutcomeEmptyNoSuggestions, resp.Outcome)
	} else {
		assert.Equal(t, domain.OutcomeEmptyWithSuggestions, resp.Outcome)
	}
}

func TestSearch_PriceRangeWithText(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{
		Text: "ruby",
		Filters: domain.FilterSet{
			Price: domain.Range[int64]{Min: ptr[int64](1000), Max: ptr[int64](5000)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TierExact, resp.Tier)
	assert.ElementsMatch(t, []string{"RB-0002", "RB-0004"}, skus(resp.Results))
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Attributes.PriceMinor, int64(1000))
		assert.LessOrEqual(t, r.Attributes.PriceMinor, int64(5000))
		assert.Equal(t, "ruby", r.Attributes.Type)
	}
}

// --- State machine ---

func TestSearch_EmptyQueryWithSuggestions(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{
		Text:    "emrald",
		Filters: domain.FilterSet{Colors: []string{"blue"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TierEmpty, resp.Tier)
	assert.Equal(t, domain.OutcomeEmptyWithSuggestions, resp.Outcome)
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "Emerald", resp.Suggestions[0].Text)
	assert.Zero(t, env.results.Len(), "suggestion responses are never cached")
}

func TestSearch_BrowseModeSkipsFuzzyAndSuggestions(t *testing.T) {
	s := new(mockSearcher)
	s.On("Lexical", mock.Anything, mock.Anything).Return(&engine.Page{}, nil)
	svc := newMockService(t, s)

	resp, err := svc.Search(context.Background(), &domain.SearchQuery{
		Filters: domain.FilterSet{Types: []string{"topaz"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeEmptyNoSuggestions, resp.Outcome)
	assert.Equal(t, domain.TierEmpty, resp.Tier)
	s.AssertNotCalled(t, "Similar", mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "Identifiers", mock.Anything, mock.Anything)
}

func TestSearch_BrowseModeListsByRecency(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{
		Filters:  domain.FilterSet{Colors: []string{"green"}},
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TierExact, resp.Tier)
	assert.Equal(t, []string{"EM-0001", "EM-0002", "AL-0001"}, skus(resp.Results))
}

func TestSearch_ExactHitNeverRunsFuzzy(t *testing.T) {
	s := new(mockSearcher)
	s.On("Lexical", mock.Anything, mock.Anything).Return(candidatePage("a", "b"), nil)
	svc := newMockService(t, s)

	resp, err := svc.Search(context.Background(), &domain.SearchQuery{Text: "ruby"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExactHit, resp.Outcome)
	s.AssertNotCalled(t, "Similar", mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "Identifiers", mock.Anything, mock.Anything)
}

func TestSearch_FuzzyHitNeverSuggests(t *testing.T) {
	s := new(mockSearcher)
	s.On("Lexical", mock.Anything, mock.Anything).Return(&engine.Page{}, nil)
	s.On("Similar", mock.Anything, mock.MatchedBy(func(req engine.Request) bool {
		return req.Threshold == trigram.DefaultThreshold && req.Text == "rubi"
	})).Return(candidatePage("a"), nil)
	svc := newMockService(t, s)

	resp, err := svc.Search(context.Background(), &domain.SearchQuery{Text: "Rubi"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFuzzyHit, resp.Outcome)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, domain.TierFuzzy, resp.Results[0].Tier)
	s.AssertNotCalled(t, "Identifiers", mock.Anything, mock.Anything)
	s.AssertExpectations(t)
}

func TestSearch_PageBeyondEndStaysExact(t *testing.T) {
	s := new(mockSearcher)
	s.On("Lexical", mock.Anything, mock.MatchedBy(func(req engine.Request) bool {
		return req.Offset == 40 && req.Limit == 20
	})).Return(&engine.Page{TotalCount: 2}, nil)
	svc := newMockService(t, s)

	resp, err := svc.Search(context.Background(), &domain.SearchQuery{Text: "ruby", Page: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.TierExact, resp.Tier)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 2, resp.Pagination.TotalCount)
	s.AssertNotCalled(t, "Similar", mock.Anything, mock.Anything)
}

func TestSearch_InvalidFiltersFailBeforeStorage(t *testing.T) {
	s := new(mockSearcher)
	svc := newMockService(t, s)

	_, err := svc.Search(context.Background(), &domain.SearchQuery{
		Text:    "ruby",
		Filters: domain.FilterSet{Weight: domain.Range[float64]{Min: ptr(3.0), Max: ptr(1.0)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFilterRange)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	_, err = svc.Search(context.Background(), &domain.SearchQuery{
		Text:    "ruby",
		Filters: domain.FilterSet{Origins: []string{"atlantis"}},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownEnumValue)

	s.AssertNotCalled(t, "Lexical", mock.Anything, mock.Anything)
}

func TestSearch_PunctuationOnlyIsNotAnExactHit(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{Text: "?"})
	require.NoError(t, err)
	assert.NotEqual(t, domain.OutcomeExactHit, resp.Outcome)
	assert.NotEqual(t, domain.TierExact, resp.Tier)
	assert.Less(t, resp.Pagination.TotalCount, 9)
}

func TestSearch_NonFiniteWeightNeverReachesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, text := range []string{"ruby", "emerald"} {
		_, err := env.svc.Search(ctx, &domain.SearchQuery{
			Text:    text,
			Filters: domain.FilterSet{Weight: domain.Range[float64]{Max: ptr(math.Inf(1))}},
		})
		require.Error(t, err, text)
		assert.ErrorIs(t, err, domain.ErrInvalidFilterRange)
	}
	assert.Zero(t, env.results.Len())

	resp, err := env.svc.Search(ctx, &domain.SearchQuery{Text: "emerald"})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	for _, r := range resp.Results {
		assert.NotContains(t, r.SKU, "RB-")
	}
}

func TestSearch_RetriesStorageFailureOnce(t *testing.T) {
	s := new(mockSearcher)
	s.On("Lexical", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()
	s.On("Lexical", mock.Anything, mock.Anything).Return(candidatePage("a"), nil).Once()
	svc := newMockService(t, s)

	resp, err := svc.Search(context.Background(), &domain.SearchQuery{Text: "ruby"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExactHit, resp.Outcome)
	s.AssertNumberOfCalls(t, "Lexical", 2)
}

func TestSearch_StorageUnavailable(t *testing.T) {
	s := new(mockSearcher)
	s.On("Lexical", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	svc := newMockService(t, s)

	_, err := svc.Search(context.Background(), &domain.SearchQuery{Text: "ruby"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 503, apperrors.HTTPStatus(err))
	s.AssertNumberOfCalls(t, "Lexical", 2)
}

func TestSearch_Cancelled(t *testing.T) {
	s := new(mockSearcher)
	svc := newMockService(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Search(ctx, &domain.SearchQuery{Text: "ruby"})
	assert.ErrorIs(t, err, context.Canceled)
	s.AssertNotCalled(t, "Lexical", mock.Anything, mock.Anything)
}

// --- Cache ---

func TestSearch_ServesRepeatedQueriesFromCache(t *testing.T) {
	s := new(mockSearcher)
	s.On("Lexical", mock.Anything, mock.Anything).Return(&engine.Page{}, nil)
	s.On("Similar", mock.Anything, mock.Anything).Return(candidatePage("a", "b"), nil)
	svc := newMockService(t, s)
	ctx := context.Background()

	first, err := svc.Search(ctx, &domain.SearchQuery{Text: "rubi"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Search(ctx, &domain.SearchQuery{Text: "  RUBI "})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, domain.OutcomeFuzzyHit, second.Outcome)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, first.Pagination, second.Pagination)

	s.AssertNumberOfCalls(t, "Lexical", 1)
	s.AssertNumberOfCalls(t, "Similar", 1)
}

func TestSearch_CacheFailureIsBypassed(t *testing.T) {
	eng := memory.New(domain.DefaultCatalog())
	require.NoError(t, eng.BulkIndex(context.Background(), memory.SampleProducts(time.Now())))
	svc := NewSearchService(Dependencies{
		Searcher:   eng,
		Catalog:    domain.DefaultCatalog(),
		Results:    failingCache[domain.ResultPage]{},
		Vocabulary: failingCache[[]suggest.Term]{},
	}, testOptions(), logger.Discard())

	resp, err := svc.Search(context.Background(), &domain.SearchQuery{Text: "sapphire"})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, domain.OutcomeExactHit, resp.Outcome)
	assert.Equal(t, []string{"SP-0001", "SP-0002"}, sortedSKUs(resp.Results))
}

func TestSearch_Pagination(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{Text: "emerald", Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 2, resp.Results[0].Position)
	assert.Equal(t, 2, resp.Pagination.TotalCount)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasPrev)
	assert.False(t, resp.Pagination.HasNext)
}

func TestSearch_Locale(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Search(context.Background(), &domain.SearchQuery{Text: "рубин", Locale: domain.LocaleRU})
	require.NoError(t, err)
	assert.Equal(t, domain.TierExact, resp.Tier)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, "Рубин", r.TypeName)
	}
}

func TestSuggest(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.svc.Suggest(context.Background(), "saphire", domain.LocaleEN, 0)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Sapphire", got[0].Text)

	none, err := env.svc.Suggest(context.Background(), "", domain.LocaleEN, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func sortedSKUs(results []domain.RankedResult) []string {
	out := skus(results)
	slices.Sort(out)
	return out
}
