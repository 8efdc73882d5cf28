package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CasesIngested    prometheus.Counter
	HITLTriggered    *prometheus.CounterVec
	HITLResolved     prometheus.Counter
	PatternsLearned  prometheus.Counter
	PatternsApplied  prometheus.Counter
	PipelineFailures *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	CertificatesSent *prometheus.CounterVec
}

// IncCasesIngested records one ingested case.
func (m *Metrics) IncCasesIngested() { m.CasesIngested.Inc() }

// IncHITLTriggered records a case paused for human review at the given step.
func (m *Metrics) IncHITLTriggered(step string) { m.HITLTriggered.WithLabelValues(step).Inc() }

// IncHITLResolved records one accepted human correction.
func (m *Metrics) IncHITLResolved() { m.HITLResolved.Inc() }

// IncPipelineFailures records one failed pipeline step.
func (m *Metrics) IncPipelineFailures(step string) { m.PipelineFailures.WithLabelValues(step).Inc() }

// ObservePipelineDuration records the wall time of one full pipeline run.
func (m *Metrics) ObservePipelineDuration(seconds float64) { m.PipelineDuration.Observe(seconds) }

// IncCertificatesSent records one certificate delivery outcome.
func (m *Metrics) IncCertificatesSent(outcome string) {
	m.CertificatesSent.WithLabelValues(outcome).Inc()
}

// IncPatternsLearned records one newly stored correction pattern.
func (m *Metrics) IncPatternsLearned() { m.PatternsLearned.Inc() }

// IncPatternsApplied records n learned corrections fired on one address.
func (m *Metrics) IncPatternsApplied(n int) { m.PatternsApplied.Add(float64(n)) }

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CasesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldeamt_cases_ingested_total",
			Help: "Total number of address-change cases ingested",
		}),
		HITLTriggered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meldeamt_hitl_triggered_total",
			Help: "Total number of cases paused for human review, by pipeline step",
		}, []string{"step"}),
		HITLResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldeamt_hitl_resolved_total",
			Help: "Total number of human corrections accepted",
		}),
		PatternsLearned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldeamt_patterns_learned_total",
			Help: "Total number of correction patterns stored from human review",
		}),
		PatternsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meldeamt_patterns_applied_total",
			Help: "Total number of learned corrections applied to incoming addresses",
		}),
		PipelineFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meldeamt_pipeline_failures_total",
			Help: "Total number of pipeline step failures, by step",
		}, []string{"step"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "meldeamt_pipeline_duration_seconds",
			Help:    "Wall time of one full pipeline run",
			Buckets: prometheus.DefBuckets,
		}),
		CertificatesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meldeamt_certificates_sent_total",
			Help: "Certificate email delivery outcomes",
		}, []string{"outcome"}),
	}
}
