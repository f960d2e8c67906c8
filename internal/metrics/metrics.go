package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ticketing"

// Purchase outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeSoldOut      = "sold_out"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)

type Metrics struct {
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	CacheEvictions  *prometheus.CounterVec
	Purchases       *prometheus.CounterVec
	PurchaseRetries prometheus.Counter
	TicketsSold     prometheus.Counter
}

// New registers the collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location_cache",
			Name:      "hits_total",
			Help:      "Location cache lookups served from memory.",
		}, []string{"kind"}),
		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location_cache",
			Name:      "misses_total",
			Help:      "Location cache lookups that went to the database.",
		}, []string{"kind"}),
		CacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location_cache",
			Name:      "evictions_total",
			Help:      "Location cache entries dropped, by reason.",
		}, []string{"reason"}),
		Purchases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Ticket purchase attempts by outcome.",
		}, []string{"outcome"}),
		PurchaseRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_retries_total",
			Help:      "Purchases re-run after a lock conflict.",
		}),
		TicketsSold: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_sold_total",
			Help:      "Tickets created by committed purchases.",
		}),
	}
}

// Nop returns unregistered collectors, for tests and tools
func Nop() *Metrics {
	return New(nil)
}
