package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine/memory"
	"github.com/utafrali/catalogsearch/pkg/breaker"
	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
	"github.com/utafrali/catalogsearch/pkg/httpclient"
	"github.com/utafrali/catalogsearch/pkg/logger"
)

// reindexResponse is the paginated response the fake catalog service returns.
type reindexResponse struct {
	Data       []IndexProductInput `json:"data"`
	TotalCount int                 `json:"total_count"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
}

func newReindexService(t *testing.T, catalogURL string) (*SearchService, *memory.Engine) {
	t.Helper()
	eng := memory.New(domain.DefaultCatalog())
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.Config{Timeout: 2 * time.Second, MaxRetries: 0, MaxConnsPerHost: 2}),
		breaker.DefaultConfig("catalog-service"),
		logger.Discard(),
	)
	opts := testOptions()
	opts.CatalogServiceURL = catalogURL
	svc := NewSearchService(Dependencies{
		Searcher:      eng,
		Indexer:       eng,
		Catalog:       domain.DefaultCatalog(),
		Results:       newResultCache(t),
		Vocabulary:    newVocabularyCache(t),
		CatalogClient: client,
	}, opts, logger.Discard())
	return svc, eng
}

func TestReindex_IndexesProductsFromCatalogService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reindexResponse{
			Data:       []IndexProductInput{emeraldInput("p1", "EM-0100"), emeraldInput("p2", "EM-0101")},
			TotalCount: 2,
			Page:       1,
			TotalPages: 1,
		})
	}))
	defer srv.Close()

	svc, eng := newReindexService(t, srv.URL)

	n, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, eng.Len())

	resp, err := svc.Search(context.Background(), &domain.SearchQuery{Text: "emerald"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Pagination.TotalCount)
}

func TestReindex_HandlesMultiplePages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var resp reindexResponse
		switch r.URL.Query().Get("page") {
		case "1":
			resp = reindexResponse{Data: []IndexProductInput{emeraldInput("p1", "EM-0100")}, TotalCount: 2, Page: 1, TotalPages: 2}
		case "2":
			resp = reindexResponse{Data: []IndexProductInput{emeraldInput("p2", "EM-0101")}, TotalCount: 2, Page: 2, TotalPages: 2}
		default:
			resp = reindexResponse{TotalCount: 2, Page: 3, TotalPages: 2}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	svc, eng := newReindexService(t, srv.URL)

	n, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(2), calls.Load(), "should have fetched exactly 2 pages")
	assert.Equal(t, 2, eng.Len())
}

func TestReindex_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   int
	}{
		{"server error", http.StatusInternalServerError, http.StatusServiceUnavailable},
		{"unavailable", http.StatusServiceUnavailable, http.StatusServiceUnavailable},
		{"not found", http.StatusNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			svc, _ := newReindexService(t, srv.URL)

			_, err := svc.Reindex(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "fetch products page 1")
			assert.Equal(t, tt.want, apperrors.HTTPStatus(err))
		})
	}
}

func TestReindex_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	svc, _ := newReindexService(t, srv.URL)

	_, err := svc.Reindex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch products page 1")
}

func TestReindex_RespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	svc, _ := newReindexService(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := svc.Reindex(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch products page 1")
}

func TestReindex_NotConfigured(t *testing.T) {
	svc, _ := newReindexService(t, "")

	_, err := svc.Reindex(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
