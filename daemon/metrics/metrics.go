// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResumeDuration tracks how long acquire took to hand back a reachable
	// VM, split by whether the fast path or the cold-boot fallback served
	// the request.
	ResumeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyperwarm_resume_duration_seconds",
			Help:    "Time from resume start to guest-reachable, by path",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		},
		[]string{"path"}, // path: fast, fallback
	)

	// WarmVMs tracks the Saved-and-unleased VM count per pool, the number
	// the warm-set maintainer is trying to keep at warm_count.
	WarmVMs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyperwarm_warm_vms",
			Help: "Number of saved, unleased VMs currently available per pool",
		},
		[]string{"pool"},
	)

	// QuarantinedVMs tracks VMs parked in Error state per pool.
	QuarantinedVMs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyperwarm_quarantined_vms",
			Help: "Number of VMs in the Error state per pool",
		},
		[]string{"pool"},
	)

	// AcquireTotal counts acquire attempts by outcome.
	AcquireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperwarm_acquire_total",
			Help: "Total acquire attempts by result",
		},
		[]string{"result"}, // result: success, no_capacity, resume_failed
	)

	// ReconcileRuns counts completed reconcile passes.
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperwarm_reconcile_runs_total",
			Help: "Total completed reconcile passes",
		},
		[]string{"result"}, // result: ok, error
	)

	// DriftCorrections counts state corrections the reconciler applied.
	DriftCorrections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperwarm_drift_corrections_total",
			Help: "Total VM state corrections applied by the reconciler",
		},
		[]string{"from", "to"},
	)

	// APIRequests tracks HTTP API requests.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperwarm_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// APIRequestDuration tracks API request duration.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyperwarm_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// HostFreeMemoryMB reports the last-observed host free memory, as seen
	// by the pool controller's capacity guard.
	HostFreeMemoryMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hyperwarm_host_free_memory_mb",
			Help: "Host free physical memory in MB, last observed",
		},
	)

	// BuildInfo provides build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyperwarm_build_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordResume records a completed resume, successful or not.
func RecordResume(path string, durationSeconds float64) {
	ResumeDuration.WithLabelValues(path).Observe(durationSeconds)
}

// RecordAcquire records the outcome of an acquire attempt.
func RecordAcquire(result string) {
	AcquireTotal.WithLabelValues(result).Inc()
}

// RecordReconcileRun records a completed reconcile pass.
func RecordReconcileRun(err error) {
	if err != nil {
		ReconcileRuns.WithLabelValues("error").Inc()
		return
	}
	ReconcileRuns.WithLabelValues("ok").Inc()
}

// RecordDriftCorrection records a single VM state correction.
func RecordDriftCorrection(from, to string) {
	DriftCorrections.WithLabelValues(from, to).Inc()
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint, statusCode string, durationSeconds float64) {
	APIRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// SetWarmVMs sets the current warm-vm gauge for a pool.
func SetWarmVMs(pool string, count float64) {
	WarmVMs.WithLabelValues(pool).Set(count)
}

// SetQuarantinedVMs sets the current quarantined-vm gauge for a pool.
func SetQuarantinedVMs(pool string, count float64) {
	QuarantinedVMs.WithLabelValues(pool).Set(count)
}

// SetHostFreeMemoryMB records the last-observed host free memory.
func SetHostFreeMemoryMB(mb float64) {
	HostFreeMemoryMB.Set(mb)
}

// SetBuildInfo sets build information.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}
