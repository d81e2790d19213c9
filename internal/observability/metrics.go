package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/grib-ensemble-inventory/internal/domain"
)

const namespace = "grib_inventory"

// Metrics holds the Prometheus counters, histograms, and gauges for the inventory pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Ensemble decoding metrics.
	EnsembleCorrections prometheus.Counter
	Labels              *prometheus.CounterVec // labels: kind={ensemble,derived}, outcome={recognized,unrecognized}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.EnsembleCorrections,
		m.Labels,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total GRIB record messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total inventory lines written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total records that could not be parsed or serialized.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EnsembleCorrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ensemble_corrections_total",
			Help:      "Records whose missing ensemble type was restored from the perturbation number.",
		}),
		Labels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "labels_total",
			Help:      "Decoded ensemble labels by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// ObserveDescription records the correction and label outcomes of one decoded
// record. A nil Metrics is a no-op.
func (m *Metrics) ObserveDescription(rec domain.EnsembleRecord, desc domain.Description) {
	if m == nil {
		return
	}
	if desc.Corrected {
		m.EnsembleCorrections.Inc()
	}
	if desc.Ensemble != "" {
		m.Labels.WithLabelValues("ensemble", outcome(desc.EnsembleRecognized)).Inc()
	}
	if rec.IsDerived() {
		m.Labels.WithLabelValues("derived", outcome(desc.DerivedRecognized)).Inc()
	}
}

func outcome(recognized bool) string {
	if recognized {
		return "recognized"
	}
	return "unrecognized"
}
