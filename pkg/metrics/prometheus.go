package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	Transitions          *prometheus.CounterVec
	Rejections           *prometheus.CounterVec
	PriceAdjustments     prometheus.Counter
	CompensatingPayments *prometheus.CounterVec
	Deletions            *prometheus.CounterVec
	NotificationsSent    *prometheus.CounterVec
	CommandDuration      prometheus.Histogram
	ErrorsCount          *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "The total number of accepted ticket status transitions",
		}, []string{"from", "to"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "The total number of rejected ticket commands",
		}, []string{"code"}),
		PriceAdjustments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_adjustments_total",
			Help:      "The total number of recorded price adjustments",
		}),
		CompensatingPayments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensating_payments_total",
			Help:      "The total number of synthesized adjustment payments",
		}, []string{"type"}),
		Deletions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletions_total",
			Help:      "The total number of ticket deletions",
		}, []string{"type"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "The total number of customer notifications delivered",
		}, []string{"channel"}),
		CommandDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time taken to apply a ticket command batch",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
