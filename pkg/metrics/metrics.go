// Package metrics exposes the outpost journal's Prometheus instrumentation.
//
// Unlike a single-process daemon with one fixed metric set, a process
// embedding this package may open many zone journals; Vectors binds a
// caller-supplied *prometheus.Registry instead of registering
// package-global collectors at import time, so opening a second zone never
// panics on a duplicate registration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Vectors holds the journal-level collectors, labeled by zone name. Nothing
// in pkg/journal records into them; a caller observes its own journal calls
// (see the package example).
type Vectors struct {
	StoreDuration     *prometheus.HistogramVec
	Occupancy         *prometheus.GaugeVec
	ChangesetCount    *prometheus.GaugeVec
	MergeTotal        *prometheus.CounterVec
	ReclaimedBytes    *prometheus.CounterVec
	DirtyCleanupTotal *prometheus.CounterVec
	BusyTotal         *prometheus.CounterVec
}

// NewVectors constructs a Vectors and registers every collector with reg.
func NewVectors(reg *prometheus.Registry) *Vectors {
	v := &Vectors{
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outpost_journal_store_duration_seconds",
				Help:    "Time taken to store a changeset in the journal, by zone.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"zone"},
		),
		Occupancy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "outpost_journal_occupancy_ratio",
				Help: "Fraction of fslimit currently occupied by a zone's journal.",
			},
			[]string{"zone"},
		),
		ChangesetCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "outpost_journal_changesets",
				Help: "Number of changesets currently stored in a zone's journal.",
			},
			[]string{"zone"},
		),
		MergeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outpost_journal_merges_total",
				Help: "Total number of internal merge compactions performed, by zone.",
			},
			[]string{"zone"},
		),
		ReclaimedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outpost_journal_reclaimed_bytes_total",
				Help: "Approximate total bytes reclaimed by deleting flushed changesets, by zone.",
			},
			[]string{"zone"},
		),
		DirtyCleanupTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outpost_journal_dirty_cleanups_total",
				Help: "Total number of interrupted multi-transaction inserts cleaned up on open, by zone.",
			},
			[]string{"zone"},
		),
		BusyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outpost_journal_busy_total",
				Help: "Total number of stores that returned ErrBusy, awaiting an external flush, by zone.",
			},
			[]string{"zone"},
		),
	}

	reg.MustRegister(
		v.StoreDuration,
		v.Occupancy,
		v.ChangesetCount,
		v.MergeTotal,
		v.ReclaimedBytes,
		v.DirtyCleanupTotal,
		v.BusyTotal,
	)
	return v
}

// Handler returns an HTTP handler serving reg's metrics in the Prometheus
// text exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Timer is a helper for timing operations, such as a Handle.Store call
// observed into Vectors.StoreDuration.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time to an unlabeled histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time to a histogram vec with
// labels.
func (t *Timer) ObserveDurationVec(histogram *prometheus.HistogramVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
