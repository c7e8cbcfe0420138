/*
Package metrics provides Prometheus metrics collection and exposition for the
outpost journal.

Unlike a single process with one fixed metric set, a process embedding this
package may open many per-zone journals concurrently. Vectors binds every
collector to a caller-supplied *prometheus.Registry at construction time
instead of registering package-global collectors in an init() function, so
opening a second zone's journal never panics with a duplicate-registration
error. Every metric is labeled by "zone" so a single registry can serve an
arbitrary number of open journals.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │        *prometheus.Registry (caller-owned)   │          │
	│  │  - One per process, or one per test case    │          │
	│  │  - NewVectors(reg) registers seven metrics   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │                 Vectors                      │          │
	│  │                                              │          │
	│  │  StoreDuration     Histogram, zone           │          │
	│  │  Occupancy         Gauge, zone               │          │
	│  │  ChangesetCount    Gauge, zone               │          │
	│  │  MergeTotal        Counter, zone             │          │
	│  │  ReclaimedBytes    Counter, zone             │          │
	│  │  DirtyCleanupTotal Counter, zone             │          │
	│  │  BusyTotal         Counter, zone             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Handler(reg) http.Handler           │          │
	│  │  - Prometheus text exposition format         │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

outpost_journal_store_duration_seconds{zone}:
  - Type: Histogram
  - Description: Time taken to store a changeset, by zone.

outpost_journal_occupancy_ratio{zone}:
  - Type: Gauge
  - Description: Fraction of a zone's fslimit currently occupied.

outpost_journal_changesets{zone}:
  - Type: Gauge
  - Description: Number of changesets currently stored for a zone.

outpost_journal_merges_total{zone}:
  - Type: Counter
  - Description: Number of internal merge compactions performed for a zone.

outpost_journal_reclaimed_bytes_total{zone}:
  - Type: Counter
  - Description: Approximate bytes reclaimed by deleting flushed changesets.

outpost_journal_dirty_cleanups_total{zone}:
  - Type: Counter
  - Description: Interrupted multi-transaction inserts cleaned up on open.

outpost_journal_busy_total{zone}:
  - Type: Counter
  - Description: Stores that returned ErrBusy awaiting an external flush.

# Usage

	reg := prometheus.NewRegistry()
	v := metrics.NewVectors(reg)

	timer := metrics.NewTimer()
	err := h.Store(cs)
	timer.ObserveDurationVec(v.StoreDuration, zoneName)

	http.Handle("/metrics", metrics.Handler(reg))

# Health and Readiness

health.go exposes a separate, registry-independent HealthChecker for
liveness/readiness probes (/health, /ready, /live), tracking named components
such as "store" (the bbolt handle) rather than metric time series. Callers
name their own critical components via SetCriticalComponents before serving
ReadyHandler.
*/
package metrics
