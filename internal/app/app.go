package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/catalogsearch/internal/cache"
	"github.com/utafrali/catalogsearch/internal/config"
	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	esengine "github.com/utafrali/catalogsearch/internal/engine/elasticsearch"
	"github.com/utafrali/catalogsearch/internal/engine/memory"
	pgengine "github.com/utafrali/catalogsearch/internal/engine/postgres"
	"github.com/utafrali/catalogsearch/internal/event"
	handler "github.com/utafrali/catalogsearch/internal/handler/http"
	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/internal/suggest"
	"github.com/utafrali/catalogsearch/pkg/database"
	"github.com/utafrali/catalogsearch/pkg/health"
	"github.com/utafrali/catalogsearch/pkg/httpclient"
	pkgkafka "github.com/utafrali/catalogsearch/pkg/kafka"
	"github.com/utafrali/catalogsearch/pkg/middleware"
	"github.com/utafrali/catalogsearch/pkg/tracing"
)

const (
	serviceName = "catalogsearch"

	// vocabularyCapacity holds one vocabulary per locale with headroom.
	vocabularyCapacity = 16

	// vocabularyRedisPrefix namespaces shared vocabulary entries.
	vocabularyRedisPrefix = "catalogsearch:vocabulary"

	idempotencyWindow = 24 * time.Hour
	idempotencySize   = 100_000
)

// App wires together all dependencies and runs the catalog search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	consumer       *pkgkafka.Consumer
	results        *cache.LRU[domain.ResultPage]
	vocabulary     *cache.LRU[[]suggest.Term]
	closers        []func()
	stopBackground context.CancelFunc
	tracerShutdown func(context.Context) error
}

// storage is the engine selected by SEARCH_ENGINE.
type storage struct {
	searcher engine.Searcher
	indexer  engine.Indexer
	close    func()
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	catalog := domain.DefaultCatalog()
	healthHandler := health.NewHandler()

	store, err := openStorage(ctx, cfg, catalog, healthHandler, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.close)

	// Storage failures trip the breaker so a sick engine fails fast.
	searcher := engine.NewBreaker(store.searcher, cfg.Breaker("search-engine"), logger)

	// Result and vocabulary caches: process-local LRU, optionally backed by Redis.
	if a.results, err = cache.NewLRU[domain.ResultPage](cfg.CacheCapacity); err != nil {
		return nil, fmt.Errorf("init result cache: %w", err)
	}
	if a.vocabulary, err = cache.NewLRU[[]suggest.Term](vocabularyCapacity); err != nil {
		return nil, fmt.Errorf("init vocabulary cache: %w", err)
	}
	var results cache.Cache[domain.ResultPage] = a.results
	var vocabulary cache.Cache[[]suggest.Term] = a.vocabulary

	if cfg.RedisEnabled {
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

		results = cache.NewTiered[domain.ResultPage](a.results, cache.NewRedis[domain.ResultPage](rdb, cache.DefaultRedisPrefix))
		vocabulary = cache.NewTiered[[]suggest.Term](a.vocabulary, cache.NewRedis[[]suggest.Term](rdb, vocabularyRedisPrefix))
		healthHandler.RegisterNonCritical("redis", redisCheck(rdb))
	}

	// Catalog service client for full reindexing.
	catalogClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		cfg.Breaker("catalog-service"),
		logger,
	)

	// Build the service layer.
	searchService := service.NewSearchService(service.Dependencies{
		Searcher:      searcher,
		Indexer:       store.indexer,
		Catalog:       catalog,
		Results:       results,
		Vocabulary:    vocabulary,
		CatalogClient: catalogClient,
	}, service.Options{
		FuzzyThreshold:    cfg.FuzzyThreshold,
		SuggestThreshold:  cfg.SuggestThreshold,
		SuggestLimit:      cfg.SuggestLimit,
		ResultTTL:         cfg.CacheResultTTL,
		VocabularyTTL:     cfg.CacheVocabularyTTL,
		RetryBackoff:      cfg.StorageRetryBackoff,
		CatalogServiceURL: cfg.CatalogServiceURL,
	}, logger)

	// Kafka consumer for catalog change events.
	if cfg.KafkaEnabled {
		eventConsumer := event.NewConsumer(searchService, logger)
		seen := pkgkafka.NewMemoryIdempotencyStore(idempotencySize, idempotencyWindow)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  event.ConsumerGroup,
			Topics:   event.Topics(),
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, eventConsumer.Handler(seen), logger)
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.Ping(ctx, cfg.KafkaBrokers)
		})
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Any("topics", event.Topics()),
		)
	}

	// HTTP router. Its background helpers live until Shutdown.
	bgCtx, stopBackground := context.WithCancel(context.Background())
	a.stopBackground = stopBackground

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment
	router := handler.NewRouter(bgCtx, searchService, healthHandler, handler.RouterConfig{
		CORS:              cors,
		SuggestRPS:        cfg.SuggestRateLimitRPS,
		SuggestBurst:      cfg.SuggestRateLimitBurst,
		SuggestMaxAge:     cfg.SuggestCacheMaxAge,
		OperatorToken:     cfg.OperatorToken,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ok = true
	return a, nil
}

// openStorage connects the configured engine and registers its health check.
func openStorage(ctx context.Context, cfg *config.Config, catalog *domain.Catalog, h *health.Handler, logger *slog.Logger) (*storage, error) {
	switch cfg.SearchEngine {
	case config.EnginePostgres:
		pgCfg := cfg.Postgres()
		// The catalog tables belong to the catalog service.
		pgCfg.ReadOnly = true
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		if cfg.SlowQueryThreshold > 0 {
			database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
		}

		eng := pgengine.New(pool)
		h.RegisterCritical("postgres", eng.Ping)
		logger.Info("postgres search engine initialized",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		return &storage{searcher: eng, close: pool.Close}, nil

	case config.EngineElasticsearch:
		eng, err := esengine.New(ctx, esengine.Config{
			URL:     cfg.ElasticsearchURL,
			Index:   cfg.ElasticsearchIndex,
			Refresh: cfg.ElasticsearchRefresh,
		}, catalog, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		h.RegisterCritical("elasticsearch", eng.Ping)
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return &storage{searcher: eng, indexer: eng, close: func() {}}, nil

	default:
		eng := memory.New(catalog)
		if cfg.SeedSampleData {
			if err := eng.BulkIndex(ctx, memory.SampleProducts(time.Now().UTC())); err != nil {
				return nil, fmt.Errorf("seed memory engine: %w", err)
			}
		}
		logger.Info("in-memory search engine initialized", slog.Int("products", eng.Len()))
		return &storage{searcher: eng, indexer: eng, close: func() {}}, nil
	}
}

func redisCheck(rdb *redis.Client) health.Checker {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

// Run starts the HTTP server, the Kafka consumer and the cache janitors,
// blocking until the context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			if err := a.consumer.Start(gctx); err != nil {
				return fmt.Errorf("kafka consumer: %w", err)
			}
			return nil
		})
	}

	// Expired entries are dropped lazily on Get; the janitors reclaim
	// memory held by entries nobody asks for again.
	g.Go(func() error { return a.results.Run(gctx, a.cfg.CacheSweepInterval) })
	g.Go(func() error { return a.vocabulary.Run(gctx, a.cfg.CacheSweepInterval) })

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka consumer, then storage connections.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush pending spans after the drain so request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// close releases background helpers and storage connections. It is safe to
// call more than once.
func (a *App) close() {
	if a.stopBackground != nil {
		a.stopBackground()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
