package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics of the scoring pipeline.
type Metrics struct {
	AnalysisRequests *prometheus.CounterVec
	AnalysisLatency  *prometheus.HistogramVec
	RecordsScored    prometheus.Counter
	HighRiskRecords  prometheus.Counter
	PromotedRecords  prometheus.Counter
	ModelFallbacks   prometheus.Counter
	ExplainRequests  *prometheus.CounterVec
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AnalysisRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenderisk_analysis_requests_total",
				Help: "Total number of batch analysis requests.",
			},
			[]string{"result"},
		),
		AnalysisLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tenderisk_analysis_latency_seconds",
				Help:    "Latency of batch analysis runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model_mode"},
		),
		RecordsScored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tenderisk_records_scored_total",
				Help: "Total number of tender records scored.",
			},
		),
		HighRiskRecords: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tenderisk_high_risk_records_total",
				Help: "Total number of records classified High.",
			},
		),
		PromotedRecords: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tenderisk_promoted_records_total",
				Help: "Total number of records promoted to High by the anomaly ensemble alone.",
			},
		),
		ModelFallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tenderisk_model_fallbacks_total",
				Help: "Total number of batches scored by an on-demand fit because no pre-trained bundle was usable.",
			},
		),
		ExplainRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenderisk_explain_requests_total",
				Help: "Total number of narrative explanation requests.",
			},
			[]string{"result"},
		),
	}
}

// RecordAnalysis records the outcome of one batch analysis run.
func (m *Metrics) RecordAnalysis(result, modelMode string, records, highRisk, promoted int, duration time.Duration) {
	m.AnalysisRequests.WithLabelValues(result).Inc()
	if result != "success" {
		return
	}
	m.AnalysisLatency.WithLabelValues(modelMode).Observe(duration.Seconds())
	m.RecordsScored.Add(float64(records))
	m.HighRiskRecords.Add(float64(highRisk))
	m.PromotedRecords.Add(float64(promoted))
	if modelMode == "fitted" {
		m.ModelFallbacks.Inc()
	}
}

// RecordExplain records the outcome of one explanation request.
func (m *Metrics) RecordExplain(result string) {
	m.ExplainRequests.WithLabelValues(result).Inc()
}
