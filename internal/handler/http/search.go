package http

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/pkg/httputil"
	"github.com/utafrali/catalogsearch/pkg/pagination"
)

// maxSuggestLimit caps the limit parameter of the suggest endpoint.
const maxSuggestLimit = 20

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

func invalidParam(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r)
	if err != nil {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", err.Error())
		return
	}

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	locale, ok := domain.ParseLocale(q.Get("locale"))
	if !ok {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "unsupported locale: "+q.Get("locale"))
		return
	}

	text := strings.TrimSpace(q.Get("q"))
	if text == "" {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{
			Data: map[string]any{"suggestions": []domain.SuggestionCandidate{}},
		})
		return
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= maxSuggestLimit {
			limit = l
		}
	}

	suggestions, err := h.service.Suggest(r.Context(), text, locale, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": suggestions}})
}

// parseSearchQuery builds a search query from the request's query string.
// Page and per_page fall back to defaults when malformed; every other
// malformed parameter is an error. Range and enum validation is left to the
// filter compiler.
func parseSearchQuery(r *http.Request) (*domain.SearchQuery, error) {
	q := r.URL.Query()

	sortBy := q.Get("sort")
	if sortBy != "" && !domain.IsValidSort(sortBy) {
		return nil, invalidParam("sort must be one of: %s", strings.Join(domain.ValidSortOptions(), ", "))
	}

	locale, ok := domain.ParseLocale(q.Get("locale"))
	if !ok {
		return nil, invalidParam("unsupported locale: %s", q.Get("locale"))
	}

	page := pagination.FromRequest(r)
	query := &domain.SearchQuery{
		Text:     q.Get("q"),
		Locale:   locale,
		Page:     page.Page,
		PageSize: page.PageSize,
		Sort:     sortBy,
	}

	var err error
	f := &query.Filters
	if f.Price.Min, err = int64Param(q, "min_price"); err != nil {
		return nil, err
	}
	if f.Price.Max, err = int64Param(q, "max_price"); err != nil {
		return nil, err
	}
	if f.Weight.Min, err = floatParam(q, "min_weight"); err != nil {
		return nil, err
	}
	if f.Weight.Max, err = floatParam(q, "max_weight"); err != nil {
		return nil, err
	}

	f.Types = listParam(q, "type")
	f.Colors = listParam(q, "color")
	f.Cuts = listParam(q, "cut")
	f.Clarities = listParam(q, "clarity")
	f.Origins = listParam(q, "origin")

	for name, dst := range map[string]*bool{
		"in_stock":          &f.InStockOnly,
		"has_media":         &f.HasMedia,
		"has_certification": &f.HasCertification,
		"has_price":         &f.HasPrice,
	} {
		if *dst, err = boolParam(q, name); err != nil {
			return nil, err
		}
	}

	return query, nil
}

func int64Param(q url.Values, name string) (*int64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, invalidParam("%s must be a valid integer", name)
	}
	if n < 0 {
		return nil, invalidParam("%s must not be negative", name)
	}
	return &n, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, invalidParam("%s must be a valid number", name)
	}
	if n < 0 {
		return nil, invalidParam("%s must not be negative", name)
	}
	return &n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, invalidParam("%s must be a boolean", name)
	}
	return b, nil
}

// listParam accepts both repeated parameters and comma-separated values.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
