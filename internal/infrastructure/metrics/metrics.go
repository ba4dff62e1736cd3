package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the triage pipeline.
type Metrics struct {
	CasesTriaged       *prometheus.CounterVec
	StoreLookups       *prometheus.CounterVec
	OAuthExchanges     *prometheus.CounterVec
	RepliesSent        prometheus.Counter
	ResolutionDuration prometheus.Histogram
}

// New registers the triage metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CasesTriaged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_cases_total",
			Help: "Email cases processed, by final disposition.",
		}, []string{"disposition"}),
		StoreLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_store_lookups_total",
			Help: "Per-store order lookups during resolution, by outcome.",
		}, []string{"store_id", "outcome"}),
		OAuthExchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_oauth_exchanges_total",
			Help: "OAuth token exchange attempts, by outcome.",
		}, []string{"outcome"}),
		RepliesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "triage_replies_sent_total",
			Help: "Replies dispatched automatically.",
		}),
		ResolutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "triage_resolution_duration_seconds",
			Help:    "Wall time of one cross-store order resolution.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
