package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks the mirror's ingest pipeline. Pass a private registry to
// keep instances isolated when several markets run in one process.
type Metrics struct {
	BatchesApplied prometheus.Counter
	StaleBatches   prometheus.Counter
	EventsApplied  *prometheus.CounterVec
	BookDepth      *prometheus.GaugeVec
	LastSequence   prometheus.Gauge
	PollDuration   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mdx",
			Subsystem: "mirror",
			Name:      "batches_applied_total",
			Help:      "Event batches applied to the book",
		}),
		StaleBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mdx",
			Subsystem: "mirror",
			Name:      "stale_batches_total",
			Help:      "Batches skipped because their sequence number was already applied",
		}),
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdx",
			Subsystem: "mirror",
			Name:      "events_applied_total",
			Help:      "Events applied, by kind",
		}, []string{"kind"}),
		BookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mdx",
			Subsystem: "mirror",
			Name:      "book_depth",
			Help:      "Resting orders per side",
		}, []string{"side"}),
		LastSequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mdx",
			Subsystem: "mirror",
			Name:      "last_sequence",
			Help:      "Highest ledger sequence number applied",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mdx",
			Subsystem: "mirror",
			Name:      "poll_duration_seconds",
			Help:      "Duration of one fetch-decode-apply cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.BatchesApplied,
			m.StaleBatches,
			m.EventsApplied,
			m.BookDepth,
			m.LastSequence,
			m.PollDuration,
		)
	}
	return m
}
