// Package metrics owns the Prometheus registry for the process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "channelgate"

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	// Registry is private to the process so tests can gather without global noise.
	Registry = prometheus.NewRegistry()

	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Reconciliation job executions by outcome.",
	}, []string{"job", "result"})

	jobRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_rows_total",
		Help:      "Rows changed by reconciliation jobs.",
	}, []string{"job"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Reconciliation job wall time.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"job"})

	gatewayCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Membership gateway operations by classified outcome.",
	}, []string{"op", "outcome"})

	lifecycleOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_ops_total",
		Help:      "Lifecycle engine operations by result.",
	}, []string{"op", "result"})

	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "User notifications by delivery result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		jobRuns,
		jobRows,
		jobDuration,
		gatewayCalls,
		lifecycleOps,
		notifications,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveJob records one job execution.
func ObserveJob(job string, rows int, elapsed time.Duration, err error) {
	jobRuns.WithLabelValues(job, resultOf(err)).Inc()
	if rows > 0 {
		jobRows.WithLabelValues(job).Add(float64(rows))
	}
	jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func GatewayCall(op, outcome string) {
	gatewayCalls.WithLabelValues(op, outcome).Inc()
}

// LifecycleOp records a Grant, Extend, Revoke or payment confirmation. A non-empty
// result overrides the success/error label, e.g. "suppressed" for an overlap-guarded revoke.
func LifecycleOp(op string, err error, result ...string) {
	label := resultOf(err)
	if len(result) > 0 && result[0] != "" {
		label = result[0]
	}
	lifecycleOps.WithLabelValues(op, label).Inc()
}

func Notification(result string) {
	notifications.WithLabelValues(result).Inc()
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
