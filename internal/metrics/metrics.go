package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks quotes created, by swapper and execution type.
	QuotesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_quotes_created_total",
			Help: "Total number of swap quotes created.",
		},
		[]string{"swapper", "type"},
	)

	// Tracks committed quote state transitions.
	QuoteTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_quote_transitions_total",
			Help: "Total number of committed quote state transitions.",
		},
		[]string{"from", "to"},
	)

	// Counts deposits matched to active quotes.
	DepositsMatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swap_deposits_matched_total",
			Help: "Total number of deposits matched to active quotes.",
		},
	)

	// Tracks strategy executions by swapper and outcome
	// (ok | pending | failed).
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_executions_total",
			Help: "Total number of swap execution attempts by outcome.",
		},
		[]string{"swapper", "outcome"},
	)

	// Measures full monitor tick duration.
	MonitorTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swap_monitor_tick_duration_seconds",
			Help:    "Duration of deposit monitor ticks in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms → ~40s
		},
	)

	// Gauges quotes currently in a non-terminal state.
	OpenQuotesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "swap_open_quotes",
			Help: "Number of quotes currently in a non-terminal state.",
		},
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages processed.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks cache hits and misses for secrets / credentials.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_errors_total",
			Help: "Count of broker-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Tracks failures talking to chain indexes, provider APIs and RPC.
	ExternalErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_external_errors_total",
			Help: "Count of external dependency failures by target.",
		},
		[]string{"target"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters are not duration metrics; ignore
	}
}

func IncQuoteCreated(swapper, swapperType string) {
	QuotesCreatedTotal.WithLabelValues(swapper, swapperType).Inc()
}

func IncTransition(from, to string) {
	QuoteTransitionsTotal.WithLabelValues(from, to).Inc()
}

func IncExecution(swapper, outcome string) {
	ExecutionsTotal.WithLabelValues(swapper, outcome).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func IncExternalError(target string) {
	ExternalErrorsTotal.WithLabelValues(target).Inc()
}
