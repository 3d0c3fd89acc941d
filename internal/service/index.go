package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
	"github.com/utafrali/catalogsearch/pkg/validator"
)

// reindexPageSize is the page size requested from the catalog service.
const reindexPageSize = 100

// ErrReadOnlyEngine is returned by write operations when the configured
// engine does not accept catalog writes.
var ErrReadOnlyEngine = errors.New("search engine is read-only")

func readOnly() *apperrors.AppError {
	return apperrors.Unsupported("ENGINE_READ_ONLY",
		"the configured search engine does not accept catalog writes", ErrReadOnlyEngine)
}

// TranslationInput is the localized text of a product.
type TranslationInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// IndexProductInput holds the parameters for indexing a product.
type IndexProductInput struct {
	ID               string                      `json:"id" validate:"required"`
	SKU              string                      `json:"sku" validate:"required"`
	Type             string                      `json:"type" validate:"required"`
	Color            string                      `json:"color" validate:"required"`
	Cut              string                      `json:"cut"`
	Clarity          string                      `json:"clarity"`
	Origin           string                      `json:"origin"`
	PriceMinor       int64                       `json:"price_minor" validate:"gte=0"`
	Currency         string                      `json:"currency" validate:"omitempty,len=3"`
	WeightCarats     float64                     `json:"weight_carats" validate:"gte=0"`
	InStock          bool                        `json:"in_stock"`
	MediaCount       int                         `json:"media_count" validate:"gte=0"`
	HasCertification bool                        `json:"has_certification"`
	Translations     map[string]TranslationInput `json:"translations" validate:"required,min=1,dive"`
	CreatedAt        *time.Time                  `json:"created_at,omitempty"`
}

// toProduct validates the input against the attribute catalog and converts
// it to a domain product.
func (in *IndexProductInput) toProduct(catalog *domain.Catalog, now time.Time) (*domain.Product, error) {
	if err := validator.Validate(in); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	attrs := domain.Attributes{
		Type:             in.Type,
		Color:            in.Color,
		Cut:              in.Cut,
		Clarity:          in.Clarity,
		Origin:           in.Origin,
		PriceMinor:       in.PriceMinor,
		Currency:         in.Currency,
		WeightCarats:     in.WeightCarats,
		InStock:          in.InStock,
		MediaCount:       in.MediaCount,
		HasCertification: in.HasCertification,
	}
	for _, attr := range domain.CategoricalAttributes() {
		if code := attrs.Code(attr); code != "" && !catalog.Has(attr, code) {
			return nil, domain.UnknownEnumValue(attr, code)
		}
	}

	translations := make(map[domain.Locale]domain.Translation, len(in.Translations))
	for key, tr := range in.Translations {
		locale, ok := domain.ParseLocale(key)
		if !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported locale %q", key))
		}
		translations[locale] = domain.Translation{Name: tr.Name, Description: tr.Description}
	}

	created := now
	if in.CreatedAt != nil {
		created = in.CreatedAt.UTC()
	}
	return &domain.Product{
		ID:           in.ID,
		SKU:          in.SKU,
		Attributes:   attrs,
		Translations: translations,
		CreatedAt:    created,
		UpdatedAt:    now,
	}, nil
}

// IndexProduct indexes a single product and invalidates cached results.
func (s *SearchService) IndexProduct(ctx context.Context, input *IndexProductInput) error {
	if s.indexer == nil {
		return readOnly()
	}
	product, err := input.toProduct(s.catalog, s.now().UTC())
	if err != nil {
		return err
	}

	if err := s.indexer.Index(ctx, product); err != nil {
		return fmt.Errorf("index product: %w", domain.StorageUnavailable(err))
	}
	s.invalidateAfterWrite(ctx)

	s.logger.InfoContext(ctx, "product indexed",
		slog.String("product_id", product.ID),
		slog.String("sku", product.SKU),
	)
	return nil
}

// DeleteProduct removes a product from the search index.
func (s *SearchService) DeleteProduct(ctx context.Context, id string) error {
	if s.indexer == nil {
		return readOnly()
	}
	if id == "" {
		return apperrors.InvalidInput("delete product: id is required")
	}

	if err := s.indexer.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", domain.StorageUnavailable(err))
	}
	s.invalidateAfterWrite(ctx)

	s.logger.InfoContext(ctx, "product deleted from index",
		slog.String("product_id", id),
	)
	return nil
}

// BulkIndex indexes multiple products and returns how many were written.
// Inputs that fail validation are skipped and logged.
func (s *SearchService) BulkIndex(ctx context.Context, inputs []IndexProductInput) (int, error) {
	if s.indexer == nil {
		return 0, readOnly()
	}

	now := s.now().UTC()
	products := make([]domain.Product, 0, len(inputs))
	for i := range inputs {
		product, err := inputs[i].toProduct(s.catalog, now)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping invalid product",
				slog.String("product_id", inputs[i].ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		products = append(products, *product)
	}
	if len(products) == 0 {
		return 0, nil
	}

	if err := s.indexer.BulkIndex(ctx, products); err != nil {
		return 0, fmt.Errorf("bulk index: %w", domain.StorageUnavailable(err))
	}
	s.invalidateAfterWrite(ctx)

	s.logger.InfoContext(ctx, "bulk index completed",
		slog.Int("count", len(products)),
	)
	return len(products), nil
}

// reindexPage is one page of the catalog service's product listing.
type reindexPage struct {
	Data       []IndexProductInput `json:"data"`
	TotalCount int                 `json:"total_count"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
}

// Reindex pulls every product from the catalog service page by page and
// bulk-indexes it. It returns the number of products indexed.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if err := s.CanReindex(); err != nil {
		return 0, err
	}

	indexed := 0
	for page := 1; ; page++ {
		var resp reindexPage
		if err := s.client.GetJSON(ctx, s.pageURL(page), &resp); err != nil {
			return indexed, fmt.Errorf("fetch products page %d: %w", page, err)
		}

		n, err := s.BulkIndex(ctx, resp.Data)
		if err != nil {
			return indexed, fmt.Errorf("reindex page %d: %w", page, err)
		}
		indexed += n

		if len(resp.Data) == 0 || page >= resp.TotalPages {
			break
		}
	}

	s.logger.InfoContext(ctx, "reindex completed", slog.Int("count", indexed))
	return indexed, nil
}

// CanReindex reports why Reindex cannot run, or nil when it can.
func (s *SearchService) CanReindex() error {
	if s.indexer == nil {
		return readOnly()
	}
	if s.client == nil || s.opts.CatalogServiceURL == "" {
		return apperrors.InvalidInput("reindex: catalog service is not configured")
	}
	return nil
}

func (s *SearchService) pageURL(page int) string {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("per_page", fmt.Sprint(reindexPageSize))
	return s.opts.CatalogServiceURL + "/api/v1/products?" + q.Encode()
}

// invalidateAfterWrite drops cached pages so catalog changes are visible
// immediately. Failures are logged by InvalidateCache.
func (s *SearchService) invalidateAfterWrite(ctx context.Context) {
	_ = s.InvalidateCache(ctx)
}
