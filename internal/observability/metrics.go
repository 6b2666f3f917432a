package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hazard_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the risk service.
type Metrics struct {
	AssessRequests *prometheus.CounterVec // labels: outcome={success,not_found,error}
	AssessDuration prometheus.Histogram
	Predictions    *prometheus.CounterVec // labels: hazard={flood,cyclone}, label={Low,Medium,High}
	PublishErrors  prometheus.Counter

	// Weather provider metrics.
	WeatherRequests    *prometheus.CounterVec // labels: outcome={success,not_found,error}
	WeatherAPIDuration prometheus.Histogram

	// Elevation provider metrics.
	ElevationRequests    *prometheus.CounterVec // labels: outcome={success,circuit_open,error}
	ElevationCache       *prometheus.CounterVec // labels: result={hit,miss}
	ElevationAPIDuration prometheus.Histogram
	ElevationFallbacks   prometheus.Counter
	ElevationEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		AssessRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assess_requests_total",
			Help:      "Risk assessments by outcome.",
		}, []string{"outcome"}),
		AssessDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assess_duration_seconds",
			Help:      "Duration of a complete city risk assessment.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Hazard predictions by hazard and risk label.",
		}, []string{"hazard", "label"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Risk reports that could not be published to Kafka.",
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "OpenWeather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "OpenWeather API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ElevationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_requests_total",
			Help:      "Elevation API requests by outcome.",
		}, []string{"outcome"}),
		ElevationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_cache_total",
			Help:      "Elevation cache lookups by result.",
		}, []string{"result"}),
		ElevationAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "elevation_api_duration_seconds",
			Help:      "Elevation API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ElevationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_fallback_total",
			Help:      "Assessments that used the default elevation.",
		}),
		ElevationEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elevation_enabled",
			Help:      "1 when live elevation lookup is enabled, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.AssessRequests,
		m.AssessDuration,
		m.Predictions,
		m.PublishErrors,
		m.WeatherRequests,
		m.WeatherAPIDuration,
		m.ElevationRequests,
		m.ElevationCache,
		m.ElevationAPIDuration,
		m.ElevationFallbacks,
		m.ElevationEnabled,
	}
}
