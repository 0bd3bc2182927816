// Package metrics exports manifest synthesis metrics in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	manifestsCreated  *prometheus.CounterVec
	manifestFailures  *prometheus.CounterVec
	probes            *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	synthesisDuration *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	cacheEntries      prometheus.Gauge
}

// New creates and registers the service metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		manifestsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytdash_manifests_created_total",
			Help: "Total number of manifests synthesized, excluding cache hits",
		}, []string{"delivery_type"}),
		manifestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytdash_manifest_failures_total",
			Help: "Total number of failed manifest syntheses",
		}, []string{"delivery_type", "kind"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytdash_probes_total",
			Help: "Total number of origin probe responses by status code",
		}, []string{"delivery_type", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytdash_cache_lookups_total",
			Help: "Total number of manifest cache lookups",
		}, []string{"result"}),
		synthesisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ytdash_synthesis_duration_seconds",
			Help:    "Time spent synthesizing a manifest on a cache miss",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"delivery_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytdash_http_requests_total",
			Help: "Total number of HTTP requests served, by status class",
		}, []string{"code_class"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ytdash_cache_entries",
			Help: "Number of manifests held in the in-memory cache",
		}),
	}

	registry.MustRegister(
		m.manifestsCreated,
		m.manifestFailures,
		m.probes,
		m.cacheLookups,
		m.synthesisDuration,
		m.httpRequests,
		m.cacheEntries,
	)
	return m
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Probe records the status code of an origin probe response.
func (m *Metrics) Probe(deliveryType string, statusCode int) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(deliveryType, strconv.Itoa(statusCode)).Inc()
}

// ManifestCreated records a successful synthesis.
func (m *Metrics) ManifestCreated(deliveryType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.manifestsCreated.WithLabelValues(deliveryType).Inc()
	m.synthesisDuration.WithLabelValues(deliveryType).Observe(elapsed.Seconds())
}

// ManifestFailed records a failed synthesis by error kind.
func (m *Metrics) ManifestFailed(deliveryType, kind string) {
	if m == nil {
		return
	}
	m.manifestFailures.WithLabelValues(deliveryType, kind).Inc()
}

// HTTPRequest records a served request by status class (2xx, 4xx, ...).
func (m *Metrics) HTTPRequest(status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(strconv.Itoa(status/100) + "xx").Inc()
}

// SetCacheEntries sets the cache size gauge.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. cache size).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}
