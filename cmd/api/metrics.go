package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	punchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campattend_punch_total",
		Help: "Punch transitions applied, by kind.",
	}, []string{"kind"})

	loginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campattend_login_failures_total",
		Help: "Rejected login attempts.",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campattend_active_sessions",
		Help: "Sessions issued and not yet expired or revoked.",
	})

	pendingSyncTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campattend_pending_sync_total",
		Help: "Writes that fell back to the local cache pending resync.",
	})
)
