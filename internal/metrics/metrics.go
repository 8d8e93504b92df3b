// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for API latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	ProxyRejections  *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "music_edge_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "music_edge_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "music_edge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "music_edge_upstream_request_duration_seconds",
			Help:    "Time until upstream response headers arrive, in seconds.",
			Buckets: defaultBuckets,
		}, []string{"kind"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "music_edge_upstream_responses_total",
			Help: "Total upstream responses by target kind and status code.",
		}, []string{"kind", "status_code"}),

		ProxyRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "music_edge_proxy_rejections_total",
			Help: "Proxy requests rejected locally before any upstream call.",
		}, []string{"reason"}),

		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "music_edge_provider_requests_total",
			Help: "Metadata API requests by provider hint.",
		}, []string{"provider"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.ProxyRejections,
		m.ProviderRequests,
	)

	return m
}

// Rejection reasons for ProxyRejections.
const (
	ReasonMethodNotAllowed = "method_not_allowed"
	ReasonBadTarget        = "bad_target"
	ReasonMissingTypes     = "missing_types"
)

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the allowed path label values (bounded cardinality).
var knownPrefixes = []string{"/api/proxy", "/api/login", "/api/storage", "/healthz", "/proxy/status", "/proxy", "/metrics"}

// NormalizePath returns a bounded path label for Prometheus metrics.
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}

// knownProviders bounds the provider label; anything else is "other".
var knownProviders = map[string]bool{
	"netease": true, "tencent": true, "kuwo": true, "kugou": true,
	"migu": true, "baidu": true, "joox": true, "tidal": true,
	"spotify": true, "ytmusic": true, "qobuz": true, "deezer": true,
	"apple": true, "ximalaya": true,
}

// NormalizeProvider returns a bounded provider label; an absent hint is "none".
func NormalizeProvider(source string) string {
	if source == "" {
		return "none"
	}
	if knownProviders[source] {
		return source
	}
	return "other"
}
