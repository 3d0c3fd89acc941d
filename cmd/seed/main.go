// Command seed generates a synthetic gemstone catalog and pushes it to a
// running catalog search service through the bulk index endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/pkg/httpclient"
	"github.com/utafrali/catalogsearch/pkg/logger"
)

type seedConfig struct {
	TargetURL     string `env:"SEED_TARGET_URL" envDefault:"http://localhost:8010"`
	Products      int    `env:"SEED_PRODUCTS" envDefault:"10000"`
	BatchSize     int    `env:"SEED_BATCH_SIZE" envDefault:"500"`
	RandomSeed    uint64 `env:"SEED_RANDOM_SEED" envDefault:"42"`
	OperatorToken string `env:"SEARCH_OPERATOR_TOKEN" envDefault:""`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	cfg := seedConfig{}
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Products < 1 || cfg.BatchSize < 1 || cfg.BatchSize > 500 {
		slog.Error("invalid seed config",
			slog.Int("products", cfg.Products),
			slog.Int("batch_size", cfg.BatchSize),
		)
		os.Exit(1)
	}

	log := logger.New("catalogsearch-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s := &seeder{
		client: httpclient.New(httpclient.DefaultConfig()),
		cfg:    cfg,
		logger: log,
	}
	start := time.Now()
	indexed, skipped, err := s.run(ctx, newGenerator(domain.DefaultCatalog(), cfg.RandomSeed, start))
	if err != nil {
		log.Error("seed failed",
			slog.Int("indexed", indexed),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	log.Info("seed complete",
		slog.Int("indexed", indexed),
		slog.Int("skipped", skipped),
		slog.Duration("elapsed", time.Since(start)),
	)
}

type seeder struct {
	client *httpclient.Client
	cfg    seedConfig
	logger *slog.Logger
}

type bulkResult struct {
	Data struct {
		Indexed int `json:"indexed"`
		Skipped int `json:"skipped"`
	} `json:"data"`
}

func (s *seeder) run(ctx context.Context, gen *generator) (indexed, skipped int, err error) {
	products := gen.generate(s.cfg.Products)
	for i, batch := range batches(products, s.cfg.BatchSize) {
		res, err := s.push(ctx, batch)
		if err != nil {
			return indexed, skipped, fmt.Errorf("push batch %d: %w", i+1, err)
		}
		indexed += res.Data.Indexed
		skipped += res.Data.Skipped
		s.logger.Debug("batch indexed",
			slog.Int("batch", i+1),
			slog.Int("indexed", res.Data.Indexed),
		)
	}
	return indexed, skipped, nil
}

func (s *seeder) push(ctx context.Context, batch []service.IndexProductInput) (*bulkResult, error) {
	body, err := json.Marshal(map[string]any{"products": batch})
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	url := strings.TrimRight(s.cfg.TargetURL, "/") + "/api/v1/search/bulk"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.OperatorToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.OperatorToken)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog-search")
	}
	defer func() { _ = resp.Body.Close() }()

	var res bulkResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	return &res, nil
}
