package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry      *prometheus.Registry
	EntriesTotal  *prometheus.CounterVec
	PagesTotal    prometheus.Counter
	BlocksTotal   *prometheus.CounterVec
	RecordsTotal  prometheus.Counter
	WarningsTotal prometheus.Counter
	FailuresTotal *prometheus.CounterVec
	EntryDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	entries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_entries_total",
			Help: "Entries processed by final status.",
		},
		[]string{"status"},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Subpages visited across all entries.",
		},
	)
	blocks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_blocks_total",
			Help: "Data blocks handled by outcome.",
		},
		[]string{"outcome"},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Records accepted into output.",
		},
	)
	warnings := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_warnings_total",
			Help: "Warnings recorded across all entries.",
		},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_entry_failures_total",
			Help: "Fatal entry failures by error kind.",
		},
		[]string{"kind"},
	)
	entryDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_entry_duration_seconds",
			Help:    "Wall time spent extracting one entry.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	registry.MustRegister(entries, pages, blocks, records, warnings, failures, entryDuration)

	return &Metrics{
		Registry:      registry,
		EntriesTotal:  entries,
		PagesTotal:    pages,
		BlocksTotal:   blocks,
		RecordsTotal:  records,
		WarningsTotal: warnings,
		FailuresTotal: failures,
		EntryDuration: entryDuration,
	}
}

// IncEntry counts one finished entry by status.
func (m *Metrics) IncEntry(status string) {
	if m == nil {
		return
	}
	m.EntriesTotal.WithLabelValues(status).Inc()
}

// IncPage counts one visited subpage.
func (m *Metrics) IncPage() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

// IncBlock counts one handled data block by outcome.
func (m *Metrics) IncBlock(outcome string) {
	if m == nil {
		return
	}
	m.BlocksTotal.WithLabelValues(outcome).Inc()
}

// AddRecords counts records accepted into output.
func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

// IncFailure counts one fatal entry failure by error kind.
func (m *Metrics) IncFailure(kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(kind).Inc()
}

// AddWarnings counts warnings surfaced to the run summary.
func (m *Metrics) AddWarnings(n int) {
	if m == nil {
		return
	}
	m.WarningsTotal.Add(float64(n))
}

// ObserveEntryDuration records how long one entry took.
func (m *Metrics) ObserveEntryDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.EntryDuration.Observe(d.Seconds())
}
