package domain

import (
	"strings"
	"unicode"

	"github.com/utafrali/catalogsearch/pkg/pagination"
)

// Sort options for search results.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// SearchQuery holds all parameters for a search request. Treat it as a
// value: Normalize returns a new query rather than editing the receiver.
type SearchQuery struct {
	Text     string    `json:"text"`
	Locale   Locale    `json:"locale"`
	Filters  FilterSet `json:"filters"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Sort     string    `json:"sort"`
}

// Normalize returns the canonical form of q: cleaned text, defaults for
// unset fields, page size clamped to pagination.MaxPageSize and canonical
// filter sets.
func (q SearchQuery) Normalize() SearchQuery {
	out := q
	out.Text = NormalizeText(q.Text)
	if out.Locale == "" {
		out.Locale = DefaultLocale
	}
	if out.Page < 1 {
		out.Page = pagination.DefaultPage
	}
	if out.PageSize < 1 {
		out.PageSize = pagination.DefaultPageSize
	}
	if out.PageSize > pagination.MaxPageSize {
		out.PageSize = pagination.MaxPageSize
	}
	if out.Sort == "" {
		out.Sort = SortRelevance
	}
	out.Filters = q.Filters.Canonical()
	return out
}

// Pagination returns the page parameters of the query.
func (q SearchQuery) Pagination() pagination.Params {
	return pagination.Params{Page: q.Page, PageSize: q.PageSize}
}

// IsBrowse reports whether the query has no text and only filters apply.
func (q SearchQuery) IsBrowse() bool {
	return q.Text == ""
}

// operatorRunes are stripped anywhere in the text.
const operatorRunes = `&|!():*<>"'\~^`

// edgeRunes are stripped from the start and end of each token only, so
// identifiers such as "EM-0042" survive.
const edgeRunes = "+-"

// NormalizeText lower-cases s, drops full-text operator characters and
// collapses whitespace.
func NormalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(operatorRunes, r) || unicode.IsControl(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)

	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, edgeRunes)
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return strings.Join(tokens, " ")
}
