// Package metrics exposes the Prometheus instrumentation for the
// content service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationsTotal counts completed generations by platform and
	// precision mode.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentforge_generations_total",
		Help: "Total number of completed content generations.",
	}, []string{"platform", "precision"})

	// GenerationErrorsTotal counts failed generations by platform.
	GenerationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentforge_generation_errors_total",
		Help: "Total number of failed content generations.",
	}, []string{"platform"})

	// GenerationDuration observes end-to-end generation latency.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contentforge_generation_duration_seconds",
		Help:    "End-to-end content generation latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	// PaymentClaimsTotal counts logged payment claims by outcome.
	PaymentClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentforge_payment_claims_total",
		Help: "Total number of payment claims by outcome.",
	}, []string{"result"})

	// KeywordLookupsTotal counts trending keyword lookups by outcome
	// (hit, miss, error).
	KeywordLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentforge_keyword_lookups_total",
		Help: "Total number of trending keyword lookups by outcome.",
	}, []string{"outcome"})

	// HTTPRequestsTotal counts HTTP requests by route and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentforge_http_requests_total",
		Help: "Total number of HTTP requests handled.",
	}, []string{"route", "status"})
)

// PrecisionLabel renders the precision flag as a metric label value.
func PrecisionLabel(on bool) string {
	if on {
		return "precision"
	}
	return "standard"
}
