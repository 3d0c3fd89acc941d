package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalogsearch/internal/service"
	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
	pkgkafka "github.com/utafrali/catalogsearch/pkg/kafka"
)

// Catalog event types consumed by the search service.
const (
	EventProductCreated     = "product.created"
	EventProductUpdated     = "product.updated"
	EventProductDeleted     = "product.deleted"
	EventCatalogBulkUpdated = "catalog.bulk_updated"
)

// ConsumerGroup is the Kafka consumer group of the search service.
const ConsumerGroup = "catalogsearch"

// Topics returns the topics the search service subscribes to.
func Topics() []string {
	return []string{
		pkgkafka.Topic("product", "events"),
		pkgkafka.Topic("catalog", "events"),
	}
}

// ProductDeletedData represents the payload from a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// BulkUpdatedData represents the payload from a catalog.bulk_updated event.
// An empty payload only invalidates cached results.
type BulkUpdatedData struct {
	Products   []service.IndexProductInput `json:"products,omitempty"`
	DeletedIDs []string                    `json:"deleted_ids,omitempty"`
}

// Consumer applies catalog change events to the search index.
type Consumer struct {
	searchService *service.SearchService
	logger        *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(searchService *service.SearchService, logger *slog.Logger) *Consumer {
	return &Consumer{
		searchService: searchService,
		logger:        logger,
	}
}

// Handler returns Handle wrapped so redelivered events are applied once.
func (c *Consumer) Handler(store pkgkafka.IdempotencyStore) pkgkafka.Handler {
	return pkgkafka.IdempotentHandler(store, c.Handle, c.logger)
}

// Handle processes a Kafka event based on its type. Events that can never
// succeed, such as invalid products, are logged and acknowledged.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	var err error
	switch event.EventType {
	case EventProductCreated, EventProductUpdated:
		err = c.handleProductUpserted(ctx, event)
	case EventProductDeleted:
		err = c.handleProductDeleted(ctx, event)
	case EventCatalogBulkUpdated:
		err = c.handleBulkUpdated(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrReadOnlyEngine):
		// The catalog is written elsewhere; only cached pages go stale.
		return c.invalidate(ctx, event)
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.logger.WarnContext(ctx, "discarding invalid catalog event",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	default:
		return err
	}
}

func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var input service.IndexProductInput
	if err := event.UnmarshalData(&input); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("unmarshal %s data: %v", event.EventType, err))
	}
	if input.ID == "" {
		input.ID = event.AggregateID
	}

	if err := c.searchService.IndexProduct(ctx, &input); err != nil {
		return fmt.Errorf("index product from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed product from event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", input.ID),
	)
	return nil
}

func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("unmarshal product.deleted data: %v", err))
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}

	if err := c.searchService.DeleteProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from event",
		slog.String("product_id", data.ID),
	)
	return nil
}

func (c *Consumer) handleBulkUpdated(ctx context.Context, event *pkgkafka.Event) error {
	var data BulkUpdatedData
	if len(event.Data) > 0 {
		if err := event.UnmarshalData(&data); err != nil {
			return apperrors.InvalidInput(fmt.Sprintf("unmarshal catalog.bulk_updated data: %v", err))
		}
	}

	if len(data.Products) > 0 {
		n, err := c.searchService.BulkIndex(ctx, data.Products)
		if err != nil {
			return fmt.Errorf("bulk index from catalog.bulk_updated event: %w", err)
		}
		c.logger.InfoContext(ctx, "bulk indexed products from event", slog.Int("count", n))
	}
	for _, id := range data.DeletedIDs {
		if err := c.searchService.DeleteProduct(ctx, id); err != nil {
			return fmt.Errorf("delete product %s from catalog.bulk_updated event: %w", id, err)
		}
	}

	if len(data.Products) == 0 && len(data.DeletedIDs) == 0 {
		return c.invalidate(ctx, event)
	}
	return nil
}

func (c *Consumer) invalidate(ctx context.Context, event *pkgkafka.Event) error {
	if err := c.searchService.InvalidateCache(ctx); err != nil {
		return fmt.Errorf("invalidate cache after %s event: %w", event.EventType, err)
	}
	return nil
}
