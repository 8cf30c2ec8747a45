// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntentResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_resolutions_total",
			Help: "Total number of resolved intents by intent name",
		},
		[]string{"intent"},
	)

	ClassifierFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_classifier_failures_total",
			Help: "Total number of classifier call failures by reason",
		},
		[]string{"reason"},
	)

	FallbackRoutes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_fallback_routes_total",
			Help: "Total number of views selected by the regex fallback",
		},
		[]string{"view"},
	)

	ResolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "intent_resolve_duration_seconds",
			Help: "Duration of utterance resolution in seconds",
		},
		[]string{"outcome"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "store_query_duration_seconds",
			Help: "Duration of data-access queries in seconds",
		},
		[]string{"query"},
	)
)
