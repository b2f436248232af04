// Package metrics - Prometheus collectors for the calculator and its adapters
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vatcalc"

var registry = prometheus.NewRegistry()

var (
	calculations = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calculations_total",
		Help:      "VAT calculations by direction and rate source.",
	}, []string{"direction", "source"})

	vatChecks = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vat_number_checks_total",
		Help:      "VAT number registry checks by outcome.",
	}, []string{"outcome"})

	geoLookups = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geo_lookups_total",
		Help:      "Address geolocation lookups by outcome.",
	}, []string{"outcome"})

	upstreamLatency = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of calls to remote services.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service"})

	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests by route and status.",
	}, []string{"method", "route", "status"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry returns the registry every collector is registered on
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveCalculation counts one calculation
func ObserveCalculation(direction, source string) {
	calculations.WithLabelValues(direction, source).Inc()
}

// ObserveVATCheck counts one registry check. Outcome is one of
// valid, invalid, fault or unavailable.
func ObserveVATCheck(outcome string) {
	vatChecks.WithLabelValues(outcome).Inc()
}

// ObserveGeoLookup counts one geolocation attempt
func ObserveGeoLookup(outcome string) {
	geoLookups.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the latency of a remote call started at start
func ObserveUpstream(service string, start time.Time) {
	upstreamLatency.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// ObserveHTTPRequest counts one API request
func ObserveHTTPRequest(method, route, status string) {
	httpRequests.WithLabelValues(method, route, status).Inc()
}
