// Package metrics exposes the Prometheus instrumentation SPEC_FULL.md's
// observability section asks for: pool saturation, scheduler tick duration,
// and dispatcher request latency, all served from the Admin HTTP Gateway's
// /metrics endpoint (spec.md §6.3's admin surface).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PoolOutstanding tracks how many connection-pool handles are acquired
	// and not yet released (internal/pool).
	PoolOutstanding = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bistro",
		Subsystem: "pool",
		Name:      "outstanding_handles",
		Help:      "Number of Postgres connection handles currently acquired.",
	})

	// PoolOverflowTotal counts handles opened beyond the pool's bound.
	PoolOverflowTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bistro",
		Subsystem: "pool",
		Name:      "overflow_total",
		Help:      "Cumulative count of connection-pool overflow opens.",
	})

	// SchedulerTickSeconds records the wall-clock duration of each
	// scheduler tick (internal/scheduler).
	SchedulerTickSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bistro",
		Subsystem: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Duration of one scheduler tick across all three steps.",
		Buckets:   prometheus.DefBuckets,
	})

	// DispatcherRequestsTotal counts dispatched wire actions by tag and
	// outcome (internal/dispatcher).
	DispatcherRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bistro",
		Subsystem: "dispatcher",
		Name:      "requests_total",
		Help:      "Total dispatched wire-protocol requests by action tag and outcome.",
	}, []string{"action", "outcome"})

	// DispatcherRequestSeconds records dispatch latency by action tag.
	DispatcherRequestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bistro",
		Subsystem: "dispatcher",
		Name:      "request_duration_seconds",
		Help:      "Latency of routing one wire-protocol action.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// RegistryConnectedClients tracks the number of currently registered
	// terminal connections (internal/registry).
	RegistryConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bistro",
		Subsystem: "registry",
		Name:      "connected_clients",
		Help:      "Number of terminal connections currently registered.",
	})
)

// Register adds every collector to prometheus.DefaultRegisterer. Called once
// from cmd/server/main.go before the admin gateway starts serving /metrics
// via promhttp.Handler(), which reads the default registry.
func Register() error {
	collectors := []prometheus.Collector{
		PoolOutstanding,
		PoolOverflowTotal,
		SchedulerTickSeconds,
		DispatcherRequestsTotal,
		DispatcherRequestSeconds,
		RegistryConnectedClients,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}
	return nil
}
