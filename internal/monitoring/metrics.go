package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TriageMetrics exposes counters and histograms for the analysis pipeline.
type TriageMetrics struct {
	oracleRequests   *prometheus.CounterVec
	oracleLatency    *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	analyzed         *prometheus.CounterVec
	analysisLatency  prometheus.Histogram
	eventPublishFail *prometheus.CounterVec
}

func NewTriageMetrics(reg prometheus.Registerer) *TriageMetrics {
	m := &TriageMetrics{
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "complaintflow",
			Subsystem: "oracle",
			Name:      "requests_total",
			Help:      "Remote model calls by outcome",
		}, []string{"model", "outcome"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "complaintflow",
			Subsystem: "oracle",
			Name:      "request_duration_seconds",
			Help:      "Latency of remote model calls including retries",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"model"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "complaintflow",
			Subsystem: "analysis",
			Name:      "keyword_fallbacks_total",
			Help:      "Keyword fallbacks by stage and reason",
		}, []string{"stage", "reason"}),
		analyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "complaintflow",
			Subsystem: "analysis",
			Name:      "complaints_total",
			Help:      "Complaints analyzed by category and priority",
		}, []string{"category", "priority"}),
		analysisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "complaintflow",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "End to end analysis latency",
			Buckets:   prometheus.DefBuckets,
		}),
		eventPublishFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "complaintflow",
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Complaint events that could not be published",
		}, []string{"type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.oracleRequests, m.oracleLatency, m.fallbacks, m.analyzed, m.analysisLatency, m.eventPublishFail)
	return m
}

func (m *TriageMetrics) ObserveOracle(model, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.oracleRequests.WithLabelValues(model, outcome).Inc()
	m.oracleLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

func (m *TriageMetrics) ObserveFallback(stage, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(stage, reason).Inc()
}

func (m *TriageMetrics) ObserveAnalysis(category, priority string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyzed.WithLabelValues(category, priority).Inc()
	m.analysisLatency.Observe(elapsed.Seconds())
}

func (m *TriageMetrics) ObservePublishFailure(eventType string) {
	if m == nil {
		return
	}
	m.eventPublishFail.WithLabelValues(eventType).Inc()
}
