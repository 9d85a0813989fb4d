package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_alerts_fired_total",
		Help: "Alert notifications fired, by family.",
	}, []string{"family"})

	dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retention_alert_dispatch_failures_total",
		Help: "Notifications whose ledger row was written but whose dispatch failed.",
	})
)
