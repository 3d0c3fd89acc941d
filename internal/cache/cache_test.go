package cache

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func fingerprint(t *testing.T, q domain.SearchQuery) Fingerprint {
	t.Helper()
	fp, err := NewFingerprint(q)
	require.NoError(t, err)
	return fp
}

func TestNewFingerprint_Deterministic(t *testing.T) {
	q := domain.SearchQuery{
		Text:    "emerald",
		Locale:  domain.LocaleEN,
		Filters: domain.FilterSet{Colors: []string{"green"}, Price: domain.Range[int64]{Min: ptr[int64](1000)}},
	}

	fp := fingerprint(t, q)
	assert.Len(t, string(fp), 64)
	assert.Equal(t, fp, fingerprint(t, q))
}

func TestNewFingerprint_EquivalentQueries(t *testing.T) {
	a := domain.SearchQuery{
		Text:    "  Emerald   GREEN ",
		Filters: domain.FilterSet{Colors: []string{"red", "green", "red"}},
	}
	b := domain.SearchQuery{
		Text:     "emerald green",
		Locale:   domain.LocaleEN,
		Page:     1,
		PageSize: 20,
		Sort:     domain.SortRelevance,
		Filters:  domain.FilterSet{Colors: []string{"green", "red"}},
	}
	assert.Equal(t, fingerprint(t, a), fingerprint(t, b))
}

func TestNewFingerprint_DistinguishesQueries(t *testing.T) {
	base := domain.SearchQuery{Text: "ruby"}
	variants := map[string]domain.SearchQuery{
		"text":    {Text: "rubies"},
		"locale":  {Text: "ruby", Locale: domain.LocaleRU},
		"page":    {Text: "ruby", Page: 2},
		"size":    {Text: "ruby", PageSize: 50},
		"sort":    {Text: "ruby", Sort: domain.SortPriceAsc},
		"filters": {Text: "ruby", Filters: domain.FilterSet{InStockOnly: true}},
		"range":   {Text: "ruby", Filters: domain.FilterSet{Weight: domain.Range[float64]{Max: ptr(1.5)}}},
	}
	for name, q := range variants {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, fingerprint(t, base), fingerprint(t, q))
		})
	}
}

func TestNewFingerprint_RejectsNonFiniteBounds(t *testing.T) {
	for _, bound := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		for _, text := range []string{"ruby", "emerald"} {
			q := domain.SearchQuery{Text: text, Filters: domain.FilterSet{Weight: domain.Range[float64]{Max: ptr(bound)}}}
			fp, err := NewFingerprint(q)
			require.Error(t, err, "%s weight.max=%v", text, bound)
			assert.Empty(t, fp)
		}
	}
}

func TestEntry_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEntry(Fingerprint("k"), 1, domain.TierExact, now, time.Minute)

	assert.False(t, e.Expired(now))
	assert.False(t, e.Expired(now.Add(59*time.Second)))
	assert.True(t, e.Expired(now.Add(time.Minute)))
}
