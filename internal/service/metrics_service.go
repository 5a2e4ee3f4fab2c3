package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer, report
// assembly, consistency runs and grading table reloads. A nil service records nothing.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	reportDuration     *prometheus.HistogramVec
	reportWarnings     *prometheus.CounterVec
	findings           *prometheus.GaugeVec
	repairs            *prometheus.CounterVec
	consistencyLatency *prometheus.HistogramVec
	tableReloads       *prometheus.CounterVec
	gradingVersion     prometheus.Gauge
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	reportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "results_report_build_seconds",
		Help:    "Time spent assembling student and class reports",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "outcome"})

	reportWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_report_warnings_total",
		Help: "Data quality warnings attached to reports",
	}, []string{"code"})

	findings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "results_consistency_findings",
		Help: "Findings reported by the most recent consistency check",
	}, []string{"kind"})

	repairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_consistency_repairs_total",
		Help: "Records touched by consistency repairs",
	}, []string{"kind", "outcome"})

	consistencyLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "results_consistency_run_seconds",
		Help:    "Duration of consistency checks and repairs",
		Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
	}, []string{"operation"})

	tableReloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_grading_table_reloads_total",
		Help: "Grading snapshot swaps by source",
	}, []string{"source"})

	gradingVersion := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "results_grading_snapshot_version",
		Help: "Version of the active grading snapshot",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reportDuration, reportWarnings, findings, repairs,
		consistencyLatency, tableReloads, gradingVersion, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		reportDuration:     reportDuration,
		reportWarnings:     reportWarnings,
		findings:           findings,
		repairs:            repairs,
		consistencyLatency: consistencyLatency,
		tableReloads:       tableReloads,
		gradingVersion:     gradingVersion,
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveReport records how long a report took and whether it succeeded.
func (m *MetricsService) ObserveReport(kind string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(kind, outcome(err)).Observe(duration.Seconds())
}

// RecordWarning counts one data quality warning.
func (m *MetricsService) RecordWarning(code string) {
	if m == nil {
		return
	}
	m.reportWarnings.WithLabelValues(code).Inc()
}

// SetFindings publishes the finding count of a check.
func (m *MetricsService) SetFindings(kind string, count int) {
	if m == nil {
		return
	}
	m.findings.WithLabelValues(kind).Set(float64(count))
}

// RecordRepairs adds fixed and failed counts for a repair step.
func (m *MetricsService) RecordRepairs(kind string, fixed, failed int) {
	if m == nil {
		return
	}
	m.repairs.WithLabelValues(kind, "fixed").Add(float64(fixed))
	m.repairs.WithLabelValues(kind, "failed").Add(float64(failed))
}

// ObserveConsistency records the duration of a check or repair run.
func (m *MetricsService) ObserveConsistency(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.consistencyLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTableReload counts a snapshot swap and publishes the new version.
func (m *MetricsService) RecordTableReload(source string, version int64) {
	if m == nil {
		return
	}
	m.tableReloads.WithLabelValues(source).Inc()
	m.gradingVersion.Set(float64(version))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
