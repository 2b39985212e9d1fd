package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Message bus metrics
	BusMessagesPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wirehome_bus_messages_published_total",
			Help: "Total number of messages published on the message bus",
		},
	)

	BusMessagesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wirehome_bus_messages_dropped_total",
			Help: "Total number of messages dropped from full long-poll queues",
		},
	)

	BusSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wirehome_bus_subscriptions",
			Help: "Number of active message bus subscriptions",
		},
	)

	// Registry metrics
	ComponentsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wirehome_components_total",
			Help: "Total number of registered components",
		},
	)

	ComponentGroupsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wirehome_component_groups_total",
			Help: "Total number of registered component groups",
		},
	)

	NotificationsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wirehome_notifications_total",
			Help: "Total number of active notifications",
		},
	)

	// Diagnostics metrics
	OperationsPerSecond = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wirehome_operations_per_second",
			Help: "Last observed operations-per-second rate by counter uid",
		},
		[]string{"counter"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirehome_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wirehome_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(BusMessagesPublished)
	prometheus.MustRegister(BusMessagesDropped)
	prometheus.MustRegister(BusSubscriptions)
	prometheus.MustRegister(ComponentsTotal)
	prometheus.MustRegister(ComponentGroupsTotal)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(OperationsPerSecond)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
