package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fuelops_"

	// ResultSuccess labels successful operations.
	ResultSuccess = "success"
	// ResultError labels failed operations.
	ResultError = "error"
)

var (
	registerOnce sync.Once

	saleCreateTotal   *prometheus.CounterVec
	saleCreateLatency *prometheus.HistogramVec

	depositTransitionTotal   *prometheus.CounterVec
	depositTransitionLatency *prometheus.HistogramVec

	summaryComputeTotal   *prometheus.CounterVec
	summaryComputeLatency *prometheus.HistogramVec
	summaryCacheHits      *prometheus.CounterVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec
	reportVerifyTotal   *prometheus.CounterVec

	reconciliationAlertsTotal prometheus.Counter

	dbOpenConnections prometheus.GaugeFunc
)

// Init registers observability metrics and DB-backed gauges. Safe to
// call more than once.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		saleCreateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sale_create_total",
				Help: "Total sale create operations by result",
			},
			[]string{"result"},
		)
		saleCreateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sale_create_latency_seconds",
				Help:    "Sale create latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		depositTransitionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "deposit_transition_total",
				Help: "Total deposit status transitions by action and result",
			},
			[]string{"action", "result"},
		)
		depositTransitionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "deposit_transition_latency_seconds",
				Help:    "Deposit transition latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action", "result"},
		)

		summaryComputeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "summary_compute_total",
				Help: "Total sales summary computations by result",
			},
			[]string{"result"},
		)
		summaryComputeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "summary_compute_latency_seconds",
				Help:    "Sales summary computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		summaryCacheHits = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "summary_cache_total",
				Help: "Summary cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report export operations by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		reportVerifyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_verify_total",
				Help: "Total report fingerprint verifications by outcome",
			},
			[]string{"outcome"},
		)

		reconciliationAlertsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconciliation_alerts_total",
				Help: "Total reconciliation warnings raised for partial writes",
			},
		)

		collectors := []prometheus.Collector{
			saleCreateTotal, saleCreateLatency,
			depositTransitionTotal, depositTransitionLatency,
			summaryComputeTotal, summaryComputeLatency, summaryCacheHits,
			reportExportTotal, reportExportLatency, reportVerifyTotal,
			reconciliationAlertsTotal,
		}
		if db != nil {
			dbOpenConnections = prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: metricPrefix + "db_open_connections",
					Help: "Open database connections",
				},
				func() float64 { return float64(db.Stats().OpenConnections) },
			)
			collectors = append(collectors, dbOpenConnections)
		}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil && logger != nil {
				logger.Printf("metrics register error: %v", err)
			}
		}
	})
}

// ObserveSaleCreate records a sale create operation.
func ObserveSaleCreate(result string, elapsed time.Duration) {
	if saleCreateTotal == nil {
		return
	}
	saleCreateTotal.WithLabelValues(result).Inc()
	saleCreateLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// ObserveDepositTransition records a deposit status transition attempt.
func ObserveDepositTransition(action, result string, elapsed time.Duration) {
	if depositTransitionTotal == nil {
		return
	}
	depositTransitionTotal.WithLabelValues(action, result).Inc()
	depositTransitionLatency.WithLabelValues(action, result).Observe(elapsed.Seconds())
}

// ObserveSummaryCompute records a summary computation.
func ObserveSummaryCompute(result string, elapsed time.Duration) {
	if summaryComputeTotal == nil {
		return
	}
	summaryComputeTotal.WithLabelValues(result).Inc()
	summaryComputeLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// ObserveSummaryCache records a summary cache lookup outcome (hit/miss).
func ObserveSummaryCache(outcome string) {
	if summaryCacheHits == nil {
		return
	}
	summaryCacheHits.WithLabelValues(outcome).Inc()
}

// ObserveReportExport records a report export.
func ObserveReportExport(format, result string, elapsed time.Duration) {
	if reportExportTotal == nil {
		return
	}
	reportExportTotal.WithLabelValues(format, result).Inc()
	reportExportLatency.WithLabelValues(format, result).Observe(elapsed.Seconds())
}

// ObserveReportVerify records a fingerprint verification outcome
// (valid/tampered/error).
func ObserveReportVerify(outcome string) {
	if reportVerifyTotal == nil {
		return
	}
	reportVerifyTotal.WithLabelValues(outcome).Inc()
}

// ObserveReconciliationAlert records a raised reconciliation warning.
func ObserveReconciliationAlert() {
	if reconciliationAlertsTotal == nil {
		return
	}
	reconciliationAlertsTotal.Inc()
}
