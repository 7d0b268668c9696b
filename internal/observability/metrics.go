package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relayctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayctl",
			Subsystem: "presence",
			Name:      "registrations_total",
			Help:      "Address registrations by outcome.",
		},
		[]string{"outcome"},
	)
	lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayctl",
			Subsystem: "presence",
			Name:      "lookups_total",
			Help:      "Address lookups by result.",
		},
		[]string{"result"},
	)
	evictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relayctl",
			Subsystem: "presence",
			Name:      "evictions_total",
			Help:      "Registry entries evicted by the reaper.",
		},
	)
	registryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relayctl",
			Subsystem: "presence",
			Name:      "entries",
			Help:      "Live address bindings.",
		},
	)
	proposals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayctl",
			Subsystem: "proposal",
			Name:      "events_total",
			Help:      "Proposal lifecycle events.",
		},
		[]string{"event"},
	)
	relays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayctl",
			Subsystem: "relay",
			Name:      "deliveries_total",
			Help:      "Relay attempts by result.",
		},
		[]string{"result"},
	)
	activeConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relayctl",
			Subsystem: "ws",
			Name:      "active_connections",
			Help:      "Currently open client connections.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			registrations, lookups, evictions, registryEntries,
			proposals, relays, activeConns,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordRegistration(outcome string) {
	RegisterMetrics()
	registrations.WithLabelValues(outcome).Inc()
}

func RecordLookup(result string) {
	RegisterMetrics()
	lookups.WithLabelValues(result).Inc()
}

func RecordEvictions(n int) {
	RegisterMetrics()
	evictions.Add(float64(n))
}

func SetRegistryEntries(n int) {
	RegisterMetrics()
	registryEntries.Set(float64(n))
}

func RecordProposalEvent(event string) {
	RegisterMetrics()
	proposals.WithLabelValues(event).Inc()
}

func RecordRelay(result string) {
	RegisterMetrics()
	relays.WithLabelValues(result).Inc()
}

func ConnOpened() {
	RegisterMetrics()
	activeConns.Inc()
}

func ConnClosed() {
	RegisterMetrics()
	activeConns.Dec()
}
