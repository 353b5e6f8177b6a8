package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records ledger engine activity.
type LedgerMetrics struct {
	eventsAppended *prometheus.CounterVec
	eventsRemoved  *prometheus.CounterVec
	redistribution *prometheus.HistogramVec
	archives       *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	appended := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_appended_total",
		Help: "Events appended to the ledger, by kind.",
	}, []string{"kind"})
	removed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_removed_total",
		Help: "Events removed by administrative action, by kind.",
	}, []string{"kind"})
	redistribution := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_redistribution_duration_seconds",
		Help:    "Duration of quantity redistributions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	archives := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_archives_created_total",
		Help: "Epoch archives created.",
	}, []string{"outcome"})
	reg.MustRegister(appended, removed, redistribution, archives)
	return &LedgerMetrics{
		eventsAppended: appended,
		eventsRemoved:  removed,
		redistribution: redistribution,
		archives:       archives,
	}
}

// IncAppended increments the appended counter for the event kind.
func (m *LedgerMetrics) IncAppended(kind string) {
	if m == nil || m.eventsAppended == nil {
		return
	}
	m.eventsAppended.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncRemoved increments the removed counter for the event kind.
func (m *LedgerMetrics) IncRemoved(kind string) {
	if m == nil || m.eventsRemoved == nil {
		return
	}
	m.eventsRemoved.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ObserveRedistribution records a redistribution attempt and its duration.
func (m *LedgerMetrics) ObserveRedistribution(outcome string, duration time.Duration) {
	if m == nil || m.redistribution == nil {
		return
	}
	m.redistribution.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncArchive records an archive creation attempt.
func (m *LedgerMetrics) IncArchive(outcome string) {
	if m == nil || m.archives == nil {
		return
	}
	m.archives.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
