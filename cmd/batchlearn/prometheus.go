package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/batchlearn/trainer"
)

// PrometheusCollector exports trainer measurements.
type PrometheusCollector struct {
	batchLatency *prometheus.HistogramVec
	examples     *prometheus.CounterVec
	bytesRead    *prometheus.CounterVec
	passes       *prometheus.CounterVec
	passLatency  *prometheus.GaugeVec
	passLoss     *prometheus.GaugeVec
}

var _ trainer.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics
// with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		batchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batchlearn_batch_duration_seconds",
			Help:    "Time to read and process one batch",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"kind"}),
		examples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchlearn_examples_total",
			Help: "Examples processed",
		}, []string{"kind"}),
		bytesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchlearn_feature_bytes_read_total",
			Help: "Feature record bytes read from the dataset store",
		}, []string{"kind"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchlearn_passes_total",
			Help: "Completed passes",
		}, []string{"kind"}),
		passLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "batchlearn_last_pass_duration_seconds",
			Help: "Duration of the most recent pass",
		}, []string{"kind"}),
		passLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "batchlearn_last_pass_loss",
			Help: "Mean log loss of the most recent pass",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.batchLatency,
		c.examples,
		c.bytesRead,
		c.passes,
		c.passLatency,
		c.passLoss,
	)
	return c
}

// RecordBatch implements trainer.MetricsCollector.
func (c *PrometheusCollector) RecordBatch(kind trainer.Kind, examples int, bytes int64, d time.Duration) {
	k := string(kind)
	c.batchLatency.WithLabelValues(k).Observe(d.Seconds())
	c.examples.WithLabelValues(k).Add(float64(examples))
	c.bytesRead.WithLabelValues(k).Add(float64(bytes))
}

// RecordPass implements trainer.MetricsCollector.
func (c *PrometheusCollector) RecordPass(kind trainer.Kind, _ int64, meanLoss float64, d time.Duration) {
	k := string(kind)
	c.passes.WithLabelValues(k).Inc()
	c.passLatency.WithLabelValues(k).Set(d.Seconds())
	if kind != trainer.KindPredict {
		c.passLoss.WithLabelValues(k).Set(meanLoss)
	}
}
