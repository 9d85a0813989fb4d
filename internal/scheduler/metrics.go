package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lastSweepTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "retention_last_sweep_timestamp_seconds",
	Help: "Unix time the sweep of each kind last completed.",
}, []string{"kind"})
