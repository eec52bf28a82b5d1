package batchlearn

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/hupe1980/batchlearn/trainer"
)

// MetricsCollector receives per-batch and per-pass measurements.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector = trainer.MetricsCollector

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector = trainer.NoopMetricsCollector

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TrainBatches    atomic.Int64
	TrainExamples   atomic.Int64
	TrainBytes      atomic.Int64
	TrainPasses     atomic.Int64
	TrainTotalNanos atomic.Int64
	EvalBatches     atomic.Int64
	EvalExamples    atomic.Int64
	EvalPasses      atomic.Int64
	PredictExamples atomic.Int64
	PredictPasses   atomic.Int64
	BytesRead       atomic.Int64

	lastTrainLoss atomic.Uint64 // float64 bits
	lastEvalLoss  atomic.Uint64
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(kind trainer.Kind, examples int, bytes int64, _ time.Duration) {
	b.BytesRead.Add(bytes)
	switch kind {
	case trainer.KindTrain:
		b.TrainBatches.Add(1)
		b.TrainExamples.Add(int64(examples))
		b.TrainBytes.Add(bytes)
	case trainer.KindEval:
		b.EvalBatches.Add(1)
		b.EvalExamples.Add(int64(examples))
	case trainer.KindPredict:
		b.PredictExamples.Add(int64(examples))
	}
}

// RecordPass implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPass(kind trainer.Kind, _ int64, meanLoss float64, duration time.Duration) {
	switch kind {
	case trainer.KindTrain:
		b.TrainPasses.Add(1)
		b.TrainTotalNanos.Add(duration.Nanoseconds())
		b.lastTrainLoss.Store(math.Float64bits(meanLoss))
	case trainer.KindEval:
		b.EvalPasses.Add(1)
		b.lastEvalLoss.Store(math.Float64bits(meanLoss))
	case trainer.KindPredict:
		b.PredictPasses.Add(1)
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	TrainPasses       int64
	TrainExamples     int64
	AvgTrainPassNanos int64
	LastTrainLoss     float64
	EvalPasses        int64
	LastEvalLoss      float64
	PredictExamples   int64
	BytesRead         int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	passes := b.TrainPasses.Load()
	var avg int64
	if passes > 0 {
		avg = b.TrainTotalNanos.Load() / passes
	}
	return BasicMetricsStats{
		TrainPasses:       passes,
		TrainExamples:     b.TrainExamples.Load(),
		AvgTrainPassNanos: avg,
		LastTrainLoss:     math.Float64frombits(b.lastTrainLoss.Load()),
		EvalPasses:        b.EvalPasses.Load(),
		LastEvalLoss:      math.Float64frombits(b.lastEvalLoss.Load()),
		PredictExamples:   b.PredictExamples.Load(),
		BytesRead:         b.BytesRead.Load(),
	}
}
