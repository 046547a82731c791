// Package metrics exposes Prometheus instrumentation for the enrichment
// pipeline. Counters are written by the worker loop and the reclaim
// scheduler; the status gauge is refreshed from store stats.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UnitsClaimed counts records leased by workers, labeled by the pending
	// status they were claimed out of.
	UnitsClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrapper_units_claimed_total",
		Help: "Number of developer records claimed for processing.",
	}, []string{"from_status"})

	// UnitsSucceeded counts stage commits, labeled by stage name.
	UnitsSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrapper_units_succeeded_total",
		Help: "Number of developer records that completed a stage.",
	}, []string{"stage"})

	// UnitsRetried counts failures that returned a record to the pool.
	UnitsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrapper_units_retried_total",
		Help: "Number of processing failures that scheduled a retry.",
	})

	// UnitsFailed counts failures that exhausted the retry budget.
	UnitsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrapper_units_failed_total",
		Help: "Number of developer records marked terminally failed.",
	})

	// LeasesReclaimed counts stale leases swept back to pending.
	LeasesReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrapper_leases_reclaimed_total",
		Help: "Number of expired leases reverted to their pending status.",
	})

	// DevelopersByStatus mirrors the status distribution of the developers
	// table, refreshed on the stats tick.
	DevelopersByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scrapper_developers_by_status",
		Help: "Number of developer records per enrichment status.",
	}, []string{"status"})

	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scrapper_build_info",
		Help: "Build information, value is always 1.",
	}, []string{"version"})
)

// Init records build metadata. Call once at startup.
func Init(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
