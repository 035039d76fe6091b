package pipeline

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"newsforge/internal/domain"
)

// Metrics owns the prometheus registry for one pipeline manager.
type Metrics struct {
	registry *prometheus.Registry

	articlesTotal  *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	stageErrors    *prometheus.CounterVec
	duplicates     prometheus.Counter
	inFlight       prometheus.Gauge
	batchDuration  prometheus.Histogram
	qualityOverall prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	articlesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsforge",
			Subsystem: "pipeline",
			Name:      "articles_total",
			Help:      "Total processed articles by final status.",
		},
		[]string{"status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsforge",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	stageErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsforge",
			Subsystem: "pipeline",
			Name:      "stage_errors_total",
			Help:      "Stage failures by stage.",
		},
		[]string{"stage"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newsforge",
			Subsystem: "pipeline",
			Name:      "duplicates_total",
			Help:      "Articles skipped as duplicates.",
		},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsforge",
			Subsystem: "pipeline",
			Name:      "articles_in_flight",
			Help:      "Articles currently being processed.",
		},
	)
	batchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newsforge",
			Subsystem: "pipeline",
			Name:      "batch_duration_seconds",
			Help:      "End-to-end batch duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)
	qualityOverall := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newsforge",
			Subsystem: "pipeline",
			Name:      "quality_overall_score",
			Help:      "Distribution of overall quality scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	registry.MustRegister(articlesTotal, stageDuration, stageErrors,
		duplicates, inFlight, batchDuration, qualityOverall)

	return &Metrics{
		registry:       registry,
		articlesTotal:  articlesTotal,
		stageDuration:  stageDuration,
		stageErrors:    stageErrors,
		duplicates:     duplicates,
		inFlight:       inFlight,
		batchDuration:  batchDuration,
		qualityOverall: qualityOverall,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeStage(stage domain.Stage, d time.Duration) {
	m.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (m *Metrics) observeStageError(stage domain.Stage) {
	m.stageErrors.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) observeFinal(result *domain.ProcessingResult) {
	m.articlesTotal.WithLabelValues(string(result.Status)).Inc()
	if result.IsDuplicate {
		m.duplicates.Inc()
	}
	if result.QualityScore != nil {
		m.qualityOverall.Observe(result.QualityScore.OverallScore)
	}
}
