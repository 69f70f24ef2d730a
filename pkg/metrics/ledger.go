package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics tracks ledger writes and projection drift.
type LedgerMetrics struct {
	recorded   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	mismatches prometheus.Gauge
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_recorded_total",
		Help: "Ledger entries written, by entry type.",
	}, []string{"type"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_duplicate_references_total",
		Help: "Ledger writes rejected or skipped because the (type, reference) pair already existed.",
	}, []string{"type"})
	mismatches := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_projection_mismatches",
		Help: "Users whose cached balance differs from the sum of their ledger entries at the last audit.",
	})
	reg.MustRegister(recorded, duplicates, mismatches)
	return &LedgerMetrics{
		recorded:   recorded,
		duplicates: duplicates,
		mismatches: mismatches,
	}
}

func (m *LedgerMetrics) IncRecorded(entryType string) {
	if m == nil || m.recorded == nil {
		return
	}
	m.recorded.WithLabelValues(normalizeLabel(entryType)).Inc()
}

func (m *LedgerMetrics) IncDuplicate(entryType string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(entryType)).Inc()
}

// SetProjectionMismatches records the result of the latest projection audit.
func (m *LedgerMetrics) SetProjectionMismatches(n int) {
	if m == nil || m.mismatches == nil {
		return
	}
	m.mismatches.Set(float64(n))
}
