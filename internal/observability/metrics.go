// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Intake metrics
	RecordsReceived prometheus.Counter
	CreationsParsed prometheus.Counter
	ParseErrors     prometheus.Counter
	QueueDepth      prometheus.Gauge
	OverflowDrops   prometheus.Counter

	// Stream metrics
	Reconnects      prometheus.Counter
	ConnectionState prometheus.Gauge

	// Enrichment metrics
	EnrichmentLatency   prometheus.Histogram
	EnrichmentsInFlight prometheus.Gauge
	LookupErrors        *prometheus.CounterVec

	// Verdict metrics
	VerdictsScored *prometheus.CounterVec
	DeliveryErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rugwatch"
	}

	return &Metrics{
		// Intake metrics
		RecordsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "records_received_total",
			Help:      "Total number of log notifications received from the event source",
		}),
		CreationsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "creations_parsed_total",
			Help:      "Total number of token creation events parsed",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "parse_errors_total",
			Help:      "Total number of records that matched a creation but failed to parse",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "queue_depth",
			Help:      "Current number of events waiting for enrichment",
		}),
		OverflowDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "overflow_drops_total",
			Help:      "Total number of events evicted from a full queue",
		}),

		// Stream metrics
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of subscription reconnect attempts",
		}),
		ConnectionState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connection_state",
			Help:      "Subscription state: 0 disconnected, 1 connecting, 2 subscribed, 3 degraded, 4 stopped",
		}),

		// Enrichment metrics
		EnrichmentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "latency_seconds",
			Help:      "Wall time spent enriching one event, all lookups included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		EnrichmentsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "in_flight",
			Help:      "Number of events currently being enriched",
		}),
		LookupErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "lookup_errors_total",
			Help:      "Total number of failed enrichment lookups by field",
		}, []string{"field"}),

		// Verdict metrics
		VerdictsScored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "verdicts_total",
			Help:      "Total number of verdicts scored by label",
		}, []string{"label"}),
		DeliveryErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "delivery_errors_total",
			Help:      "Total number of verdicts that failed to deliver to a sink",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRecordReceived increments the records received counter.
func RecordRecordReceived() {
	DefaultMetrics.RecordsReceived.Inc()
}

// RecordCreationParsed increments the creations parsed counter.
func RecordCreationParsed() {
	DefaultMetrics.CreationsParsed.Inc()
}

// RecordParseError increments the parse errors counter.
func RecordParseError() {
	DefaultMetrics.ParseErrors.Inc()
}

// SetQueueDepth updates the queue depth gauge.
func SetQueueDepth(depth int) {
	DefaultMetrics.QueueDepth.Set(float64(depth))
}

// RecordOverflowDrop increments the overflow drops counter.
func RecordOverflowDrop() {
	DefaultMetrics.OverflowDrops.Inc()
}

// RecordReconnect increments the reconnects counter.
func RecordReconnect() {
	DefaultMetrics.Reconnects.Inc()
}

// SetConnectionState updates the connection state gauge from a state name.
func SetConnectionState(state string) {
	var code float64
	switch state {
	case "DISCONNECTED":
		code = 0
	case "CONNECTING":
		code = 1
	case "SUBSCRIBED":
		code = 2
	case "DEGRADED":
		code = 3
	case "STOPPED":
		code = 4
	default:
		code = -1
	}
	DefaultMetrics.ConnectionState.Set(code)
}

// ObserveEnrichmentLatency records how long one enrichment took.
func ObserveEnrichmentLatency(seconds float64) {
	DefaultMetrics.EnrichmentLatency.Observe(seconds)
}

// EnrichmentStarted increments the in-flight enrichments gauge.
func EnrichmentStarted() {
	DefaultMetrics.EnrichmentsInFlight.Inc()
}

// EnrichmentFinished decrements the in-flight enrichments gauge.
func EnrichmentFinished() {
	DefaultMetrics.EnrichmentsInFlight.Dec()
}

// RecordLookupError increments the lookup error counter for a field.
func RecordLookupError(field string) {
	DefaultMetrics.LookupErrors.WithLabelValues(field).Inc()
}

// RecordVerdict increments the verdicts counter for a label.
func RecordVerdict(label string) {
	DefaultMetrics.VerdictsScored.WithLabelValues(label).Inc()
}

// RecordDeliveryError increments the sink delivery errors counter.
func RecordDeliveryError() {
	DefaultMetrics.DeliveryErrors.Inc()
}
