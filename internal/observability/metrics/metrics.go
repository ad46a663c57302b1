package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "backoffice_"

	// ResultSuccess and friends are the result labels shared by all
	// counters below.
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	registerOnce sync.Once

	settlementTotal   *prometheus.CounterVec
	settlementLatency *prometheus.HistogramVec

	commissionRecomputeTotal *prometheus.CounterVec
	commissionPreviewTotal   prometheus.Counter

	reconcileLatency prometheus.Histogram

	ledgerAppendTotal *prometheus.CounterVec
	ledgerCancelTotal prometheus.Counter

	exportTotal *prometheus.CounterVec
)

// Init registers the back-office metrics. Safe to call more than once.
func Init(logger zerolog.Logger) {
	registerOnce.Do(func() {
		settlementTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlements_total",
				Help: "Invoice settlements by mode and result",
			},
			[]string{"mode", "result"},
		)
		settlementLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_latency_seconds",
				Help:    "Settlement orchestration latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		)
		commissionRecomputeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commission_recomputes_total",
				Help: "Ticket commission recomputations by result",
			},
			[]string{"result"},
		)
		commissionPreviewTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "commission_previews_total",
				Help: "Commission preview computations",
			},
		)
		reconcileLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "reconcile_latency_seconds",
				Help:    "Supplier balance reconciliation latency",
				Buckets: prometheus.DefBuckets,
			},
		)
		ledgerAppendTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_appends_total",
				Help: "Cash ledger entries appended by category",
			},
			[]string{"category"},
		)
		ledgerCancelTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_cancellations_total",
				Help: "Cash ledger cancellation entries",
			},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_exports_total",
				Help: "Balance report exports by result",
			},
			[]string{"result"},
		)

		collectors := []prometheus.Collector{
			settlementTotal, settlementLatency,
			commissionRecomputeTotal, commissionPreviewTotal,
			reconcileLatency,
			ledgerAppendTotal, ledgerCancelTotal,
			exportTotal,
		}
		for _, c := range collectors {
			if err := prometheus.Register(c); err != nil {
				logger.Warn().Err(err).Msg("metrics register")
			}
		}
	})
}

// ObserveSettlement records a settlement attempt.
func ObserveSettlement(mode, result string, seconds float64) {
	if settlementTotal == nil {
		return
	}
	settlementTotal.WithLabelValues(mode, result).Inc()
	settlementLatency.WithLabelValues(mode).Observe(seconds)
}

// IncCommissionRecompute records a recompute attempt.
func IncCommissionRecompute(result string) {
	if commissionRecomputeTotal == nil {
		return
	}
	commissionRecomputeTotal.WithLabelValues(result).Inc()
}

// IncCommissionPreview records a preview computation.
func IncCommissionPreview() {
	if commissionPreviewTotal == nil {
		return
	}
	commissionPreviewTotal.Inc()
}

// ObserveReconcile records a reconciliation run.
func ObserveReconcile(seconds float64) {
	if reconcileLatency == nil {
		return
	}
	reconcileLatency.Observe(seconds)
}

// IncLedgerAppend records an appended ledger entry.
func IncLedgerAppend(category string) {
	if ledgerAppendTotal == nil {
		return
	}
	ledgerAppendTotal.WithLabelValues(category).Inc()
}

// IncLedgerCancel records a cancellation entry.
func IncLedgerCancel() {
	if ledgerCancelTotal == nil {
		return
	}
	ledgerCancelTotal.Inc()
}

// IncExport records a report export.
func IncExport(result string) {
	if exportTotal == nil {
		return
	}
	exportTotal.WithLabelValues(result).Inc()
}
