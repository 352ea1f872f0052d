package txn

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the transaction manager's Prometheus instruments.
type Metrics struct {
	Commits              prometheus.Counter
	Rollbacks            prometheus.Counter
	RuleFirings          prometheus.Counter
	ConstraintViolations *prometheus.CounterVec
	SyncLatency          prometheus.Histogram
}

// NewMetrics builds and registers the manager's instruments against
// reg. Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hyperdb",
			Subsystem: "txn",
			Name:      "commits_total",
			Help:      "Committed transactions.",
		}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hyperdb",
			Subsystem: "txn",
			Name:      "rollbacks_total",
			Help:      "Rolled-back transactions, voluntary or forced.",
		}),
		RuleFirings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hyperdb",
			Subsystem: "rule",
			Name:      "firings_total",
			Help:      "Rule productions executed.",
		}),
		ConstraintViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperdb",
			Subsystem: "constraint",
			Name:      "violations_total",
			Help:      "Constraint violations: deferred ones at commit, plus immediate error-severity ones that fail a statement.",
		}, []string{"severity"}),
		SyncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hyperdb",
			Subsystem: "journal",
			Name:      "sync_seconds",
			Help:      "WAL fsync latency at commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	reg.MustRegister(m.Commits, m.Rollbacks, m.RuleFirings, m.ConstraintViolations, m.SyncLatency)
	return m
}
