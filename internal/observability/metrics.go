package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the locator.
type Metrics struct {
	CyclesStarted   prometheus.Counter
	StartFailures   *prometheus.CounterVec // labels: kind
	FixesReceived   prometheus.Counter
	FixesDiscarded  prometheus.Counter
	Resolutions     *prometheus.CounterVec // labels: outcome={success,<failure kind>}
	LocatorUpdating prometheus.Gauge

	// Geocoding backend metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}

	// Sink metrics.
	CitiesPublished prometheus.Counter
	PublishErrors   prometheus.Counter
	CitiesDropped   prometheus.Counter
	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all locator metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesStarted,
		m.StartFailures,
		m.FixesReceived,
		m.FixesDiscarded,
		m.Resolutions,
		m.LocatorUpdating,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.CitiesPublished,
		m.PublishErrors,
		m.CitiesDropped,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "cycles_started_total",
			Help:      "Acquisition cycles handed to the location provider.",
		}),
		StartFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "start_failures_total",
			Help:      "Start calls rejected by a precondition, by failure kind.",
		}, []string{"kind"}),
		FixesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "fixes_received_total",
			Help:      "Position fixes delivered by the provider.",
		}),
		FixesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "fixes_discarded_total",
			Help:      "Fixes dropped because a newer fix was in the same batch or no cycle was running.",
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "resolutions_total",
			Help:      "City resolutions by outcome.",
		}, []string{"outcome"}),
		LocatorUpdating: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_locator",
			Name:      "locator_updating",
			Help:      "1 while an acquisition cycle is in flight, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "city_locator",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		CitiesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "cities_published_total",
			Help:      "Resolved cities written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "publish_errors_total",
			Help:      "Failed writes to the sink topic.",
		}),
		CitiesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_locator",
			Name:      "cities_dropped_total",
			Help:      "Resolved cities dropped because the publish queue was full.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_locator",
			Name:      "pipeline_running",
			Help:      "1 while the publish pipeline is running, 0 otherwise.",
		}),
	}
}
