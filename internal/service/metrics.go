package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache event labels.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheStore = "store"
	cacheError = "error"
)

var (
	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsearch_requests_total",
			Help: "Total number of search requests by terminal outcome",
		},
		[]string{"outcome"},
	)

	cacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsearch_cache_events_total",
			Help: "Result cache hits, misses, stores and backend errors",
		},
		[]string{"event"},
	)

	tierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogsearch_tier_duration_seconds",
			Help:    "Duration of each matching tier in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"tier"},
	)
)
