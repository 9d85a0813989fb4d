package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsAdvanced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_records_advanced_total",
		Help: "Custody state transitions applied by the lifecycle sweep.",
	}, []string{"to_state"})

	transitionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retention_transitions_skipped_total",
		Help: "Records the lifecycle sweep tolerated and moved past (e.g. missing category).",
	})

	sweepRecordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retention_sweep_records_processed_total",
		Help: "Records evaluated by the lifecycle sweep.",
	})

	sweepErrored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retention_sweep_record_errors_total",
		Help: "Unexpected per-record store failures during the lifecycle sweep.",
	})
)

func recordSweepMetrics(sum *Summary) {
	sweepRecordsProcessed.Add(float64(sum.Processed))
	sweepErrored.Add(float64(sum.Errored))
}
