package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for manifest processing.
type Metrics struct {
	registry          *prometheus.Registry
	manifestsExpanded prometheus.Counter
	manifestErrors    *prometheus.CounterVec
	segmentsExpanded  prometheus.Counter
	rendersRejected   prometheus.Counter
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	cacheEntries      prometheus.Gauge
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	manifestsExpanded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mpdviz_manifests_expanded_total",
		Help: "Total number of manifests expanded successfully",
	})
	manifestErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpdviz_manifest_errors_total",
		Help: "Total number of manifests that failed, by error kind",
	}, []string{"kind"})
	segmentsExpanded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mpdviz_segments_expanded_total",
		Help: "Total number of media segments produced by expansion",
	})
	rendersRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mpdviz_renders_rejected_total",
		Help: "Total number of manifests too long to render",
	})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mpdviz_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mpdviz_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	cacheEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mpdviz_render_cache_entries",
		Help: "Number of rendered images held in the cache",
	})

	registry.MustRegister(
		manifestsExpanded,
		manifestErrors,
		segmentsExpanded,
		rendersRejected,
		requestsTotal,
		errorsTotal,
		cacheEntries,
	)

	return &Metrics{
		registry:          registry,
		manifestsExpanded: manifestsExpanded,
		manifestErrors:    manifestErrors,
		segmentsExpanded:  segmentsExpanded,
		rendersRejected:   rendersRejected,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		cacheEntries:      cacheEntries,
	}
}

// IncManifestsExpanded counts one successful expansion.
func (m *Metrics) IncManifestsExpanded() {
	m.manifestsExpanded.Inc()
}

// IncManifestErrors counts one failed manifest under the given kind label.
func (m *Metrics) IncManifestErrors(kind string) {
	m.manifestErrors.WithLabelValues(kind).Inc()
}

// AddSegments adds n expanded segments.
func (m *Metrics) AddSegments(n uint64) {
	m.segmentsExpanded.Add(float64(n))
}

func (m *Metrics) IncRendersRejected() {
	m.rendersRejected.Inc()
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	m.cacheEntries.Set(float64(n))
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// WriteTextfile writes the current metrics in the text exposition format,
// for pickup by a node exporter textfile collector after a batch run.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
