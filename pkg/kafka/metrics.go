package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message outcomes recorded by the consumer.
const (
	outcomeFetched     = "fetched"
	outcomeProcessed   = "processed"
	outcomeFailed      = "failed"
	outcomeUndecodable = "undecodable"
)

var (
	consumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_total",
			Help: "Kafka messages seen by the consumer, by outcome",
		},
		[]string{"topic", "consumer_group", "outcome"},
	)

	consumerDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_duplicates_total",
			Help: "Events skipped because their id was already processed",
		},
		[]string{"event_type"},
	)

	consumerHandleSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_consumer_handle_seconds",
			Help:    "Time spent handling one message, retries included",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"topic", "consumer_group"},
	)
)

func countMessage(topic, group, outcome string) {
	consumerMessages.WithLabelValues(topic, group, outcome).Inc()
}
