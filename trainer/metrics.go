package trainer

import "time"

// Kind names a pass type.
type Kind string

const (
	KindTrain   Kind = "train"
	KindEval    Kind = "eval"
	KindPredict Kind = "predict"
)

// MetricsCollector receives per-batch and per-pass measurements.
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordBatch is called by the worker that finished a batch.
	RecordBatch(kind Kind, examples int, bytes int64, duration time.Duration)

	// RecordPass is called once a pass completes.
	RecordPass(kind Kind, examples int64, meanLoss float64, duration time.Duration)
}

// NoopMetricsCollector discards all measurements.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBatch(Kind, int, int64, time.Duration)   {}
func (NoopMetricsCollector) RecordPass(Kind, int64, float64, time.Duration) {}
