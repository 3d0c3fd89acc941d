package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/utafrali/catalogsearch/pkg/breaker"
	"github.com/utafrali/catalogsearch/pkg/database"
)

// Engine names accepted by SEARCH_ENGINE.
const (
	EngineMemory        = "memory"
	EnginePostgres      = "postgres"
	EngineElasticsearch = "elasticsearch"
)

// Config holds all configuration for the catalog search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"8010"`

	// Comma-separated list of allowed CORS origins
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Storage engine selection (memory, postgres or elasticsearch)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"postgres"`

	// Seed the memory engine with the sample gemstone catalog on startup
	SeedSampleData bool `env:"SEARCH_SEED_SAMPLE_DATA" envDefault:"false"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"30"`

	PostgresStatementTimeout time.Duration `env:"POSTGRES_STATEMENT_TIMEOUT" envDefault:"5s"`

	// Queries slower than this are logged. Zero disables slow query logging.
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Elasticsearch
	ElasticsearchURL     string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex   string `env:"ELASTICSEARCH_INDEX" envDefault:"catalog_products"`
	ElasticsearchRefresh string `env:"ELASTICSEARCH_REFRESH" envDefault:"wait_for"`

	// Redis (shared L2 result cache)
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Result cache
	CacheCapacity      int           `env:"CACHE_CAPACITY" envDefault:"10000"`
	CacheResultTTL     time.Duration `env:"CACHE_RESULT_TTL" envDefault:"90s"`
	CacheVocabularyTTL time.Duration `env:"CACHE_VOCABULARY_TTL" envDefault:"5m"`
	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1m"`

	// Matching thresholds
	FuzzyThreshold   float64 `env:"FUZZY_THRESHOLD" envDefault:"0.3"`
	SuggestThreshold float64 `env:"SUGGEST_THRESHOLD" envDefault:"0.3"`
	SuggestLimit     int     `env:"SUGGEST_LIMIT" envDefault:"5"`

	// Storage resilience
	StorageRetryBackoff time.Duration `env:"STORAGE_RETRY_BACKOFF" envDefault:"100ms"`
	BreakerMaxRequests  uint32        `env:"BREAKER_MAX_REQUESTS" envDefault:"1"`
	BreakerInterval     time.Duration `env:"BREAKER_INTERVAL" envDefault:"60s"`
	BreakerTimeout      time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Autocomplete rate limit (per client IP)
	SuggestRateLimitRPS   float64 `env:"SUGGEST_RATE_LIMIT_RPS" envDefault:"20"`
	SuggestRateLimitBurst int     `env:"SUGGEST_RATE_LIMIT_BURST" envDefault:"40"`

	// Max age advertised on autocomplete responses
	SuggestCacheMaxAge time.Duration `env:"SUGGEST_CACHE_MAX_AGE" envDefault:"60s"`

	// Bearer token required on index maintenance endpoints; empty disables the check
	OperatorToken string `env:"SEARCH_OPERATOR_TOKEN" envDefault:""`

	// Comma-separated CIDRs allowed to reach /debug/pprof; empty disables profiling
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"" envSeparator:","`

	// Catalog service URL for reindex fetching
	CatalogServiceURL string `env:"CATALOG_SERVICE_URL" envDefault:"http://localhost:8001"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SearchEngine {
	case EngineMemory, EnginePostgres, EngineElasticsearch:
	default:
		return fmt.Errorf("invalid SEARCH_ENGINE %q: must be memory, postgres or elasticsearch", c.SearchEngine)
	}
	switch c.ElasticsearchRefresh {
	case "true", "false", "wait_for":
	default:
		return fmt.Errorf("invalid ELASTICSEARCH_REFRESH %q: must be true, false or wait_for", c.ElasticsearchRefresh)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.CacheCapacity < 1 {
		return fmt.Errorf("invalid CACHE_CAPACITY: %d", c.CacheCapacity)
	}
	if c.CacheResultTTL <= 0 || c.CacheVocabularyTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.CacheSweepInterval <= 0 {
		return fmt.Errorf("invalid CACHE_SWEEP_INTERVAL: %v", c.CacheSweepInterval)
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("invalid FUZZY_THRESHOLD: %v", c.FuzzyThreshold)
	}
	if c.SuggestThreshold <= 0 || c.SuggestThreshold > 1 {
		return fmt.Errorf("invalid SUGGEST_THRESHOLD: %v", c.SuggestThreshold)
	}
	if c.SuggestLimit < 1 {
		return fmt.Errorf("invalid SUGGEST_LIMIT: %d", c.SuggestLimit)
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("invalid BREAKER_FAILURE_RATIO: %v", c.BreakerFailureRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	pg.MaxConns = c.PostgresMaxConns
	pg.StatementTimeout = c.PostgresStatementTimeout
	return pg
}

// Redis returns the L2 cache client settings.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// Breaker returns circuit breaker settings for the named dependency.
func (c *Config) Breaker(name string) breaker.Config {
	return breaker.Config{
		Name:         name,
		MaxRequests:  c.BreakerMaxRequests,
		Interval:     c.BreakerInterval,
		Timeout:      c.BreakerTimeout,
		FailureRatio: c.BreakerFailureRatio,
		MinRequests:  c.BreakerMinRequests,
	}
}
