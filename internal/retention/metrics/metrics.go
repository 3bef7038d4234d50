package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for retention passes.
type Metrics struct {
	// Rows moved, by table and action (archive/delete)
	RowsProcessed *prometheus.CounterVec

	// Legal-hold rows the scan surfaced and the batcher skipped
	LegalHoldSkips *prometheus.CounterVec

	// Runs rejected because another instance held the lease
	LeaseRejections *prometheus.CounterVec

	// Batches aborted mid-cycle by a step failure
	AbortedBatches *prometheus.CounterVec
}

// New creates a Metrics instance with all retention metrics registered.
func New() *Metrics {
	return &Metrics{
		RowsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sentra_retention_rows_total",
			Help: "Rows archived or deleted by retention passes",
		}, []string{"table", "action"}),

		LegalHoldSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sentra_retention_legal_hold_skips_total",
			Help: "Legal-hold rows surfaced by a scan and skipped",
		}, []string{"table"}),

		LeaseRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sentra_retention_lease_rejections_total",
			Help: "Retention runs rejected because the table lease was held",
		}, []string{"table"}),

		AbortedBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sentra_retention_aborted_batches_total",
			Help: "Retention batches aborted by a step failure",
		}, []string{"table"}),
	}
}

// AddRows records rows moved by one batch.
func (m *Metrics) AddRows(table, action string, n int) {
	if m != nil && n > 0 {
		m.RowsProcessed.WithLabelValues(table, action).Add(float64(n))
	}
}

// AddLegalHoldSkips records held rows a batch refused to touch.
func (m *Metrics) AddLegalHoldSkips(table string, n int) {
	if m != nil && n > 0 {
		m.LegalHoldSkips.WithLabelValues(table).Add(float64(n))
	}
}

// IncrementLeaseRejection records an overlapping run that was turned away.
func (m *Metrics) IncrementLeaseRejection(table string) {
	if m != nil {
		m.LeaseRejections.WithLabelValues(table).Inc()
	}
}

// IncrementAbortedBatch records a batch that failed before completing.
func (m *Metrics) IncrementAbortedBatch(table string) {
	if m != nil {
		m.AbortedBatches.WithLabelValues(table).Inc()
	}
}
