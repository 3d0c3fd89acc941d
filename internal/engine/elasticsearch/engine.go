// Package elasticsearch implements the search engine contract on top of an
// Elasticsearch index holding one document per product with a nested
// projection per locale.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
)

// DefaultRefresh makes writes visible to search before the call returns
// without forcing a refresh per request.
const DefaultRefresh = "wait_for"

// Config configures the engine.
type Config struct {
	URL string
	// Index defaults to DefaultIndexName.
	Index string
	// Refresh is the refresh policy of writes: "true", "false" or
	// "wait_for". It defaults to DefaultRefresh.
	Refresh string
}

// Engine is an Elasticsearch-backed implementation of engine.Searcher and
// engine.Indexer.
type Engine struct {
	client  *elasticsearch.Client
	index   string
	refresh string
	catalog *domain.Catalog
	logger  *slog.Logger
}

var (
	_ engine.Searcher = (*Engine)(nil)
	_ engine.Indexer  = (*Engine)(nil)
	_ engine.Pinger   = (*Engine)(nil)
)

type bulkItemResult struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

type bulkResponse struct {
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// New connects to the cluster and creates the catalog index when it does
// not exist yet.
func New(ctx context.Context, cfg Config, catalog *domain.Catalog, logger *slog.Logger) (*Engine, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndexName
	}
	if cfg.Refresh == "" {
		cfg.Refresh = DefaultRefresh
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{cfg.URL}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{
		client:  client,
		index:   cfg.Index,
		refresh: cfg.Refresh,
		catalog: catalog,
		logger:  logger,
	}
	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index %s: %w", cfg.Index, err)
	}
	return e, nil
}

// do performs req and returns the open response on success. Non-2xx
// responses are turned into errors, except for the statuses in allow.
func (e *Engine) do(ctx context.Context, op string, req esapi.Request, allow ...int) (*esapi.Response, error) {
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if res.IsError() {
		for _, s := range allow {
			if res.StatusCode == s {
				return res, nil
			}
		}
		defer func() { _ = res.Body.Close() }()
		return nil, responseError(op, res)
	}
	return res, nil
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.do(ctx, "elasticsearch ping", esapi.PingRequest{})
	if err != nil {
		return err
	}
	return res.Body.Close()
}

func (e *Engine) ensureIndex(ctx context.Context) error {
	res, err := e.do(ctx, "check index", esapi.IndicesExistsRequest{Index: []string{e.index}}, http.StatusNotFound)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		e.logger.InfoContext(ctx, "elasticsearch index already exists", slog.String("index", e.index))
		return nil
	}

	res, err = e.do(ctx, "create index", esapi.IndicesCreateRequest{
		Index: e.index,
		Body:  strings.NewReader(buildIndexMapping()),
	})
	if err != nil {
		return err
	}
	_ = res.Body.Close()

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", e.index))
	return nil
}

// Index adds or replaces one product document.
func (e *Engine) Index(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(newDocument(product, e.catalog))
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal product %s: %w", product.ID, err)
	}

	res, err := e.do(ctx, "elasticsearch index", esapi.IndexRequest{
		Index:      e.index,
		DocumentID: product.ID,
		Body:       bytes.NewReader(data),
		Refresh:    e.refresh,
	})
	if err != nil {
		return err
	}
	_ = res.Body.Close()

	e.logger.DebugContext(ctx, "indexed product",
		slog.String("product_id", product.ID),
		slog.String("sku", product.SKU),
	)
	return nil
}

// Delete removes a product document. Deleting a missing document succeeds.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.do(ctx, "elasticsearch delete", esapi.DeleteRequest{
		Index:      e.index,
		DocumentID: id,
		Refresh:    e.refresh,
	}, http.StatusNotFound)
	if err != nil {
		return err
	}
	_ = res.Body.Close()

	e.logger.DebugContext(ctx, "deleted product", slog.String("product_id", id))
	return nil
}

// BulkIndex writes products through the NDJSON bulk API. Item-level
// failures are collected into one error naming each failed document.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range products {
		meta := map[string]map[string]string{"index": {"_id": products[i].ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(newDocument(&products[i], e.catalog)); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document %s: %w", products[i].ID, err)
		}
	}

	res, err := e.do(ctx, "elasticsearch bulk index", esapi.BulkRequest{
		Index:   e.index,
		Body:    &buf,
		Refresh: e.refresh,
	})
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	var resp bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}
	if resp.Errors {
		var failed []string
		for _, item := range resp.Items {
			for _, r := range item {
				if r.Error != nil {
					failed = append(failed, fmt.Sprintf("id=%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason))
				}
			}
		}
		return fmt.Errorf("elasticsearch bulk index: %d of %d failed: %s",
			len(failed), len(products), strings.Join(failed, "; "))
	}

	e.logger.InfoContext(ctx, "bulk indexed products", slog.Int("count", len(products)))
	return nil
}

// search runs body against the index and decodes the hits.
func (e *Engine) search(ctx context.Context, op string, body map[string]any) (*esSearchResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal query: %w", op, err)
	}

	res, err := e.do(ctx, op, esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(data),
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var out esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return &out, nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, er.Error.Type, er.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}
