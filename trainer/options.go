package trainer

import (
	"log/slog"

	"github.com/hupe1980/batchlearn/dropout"
)

// DefaultSeed seeds batch shuffling when no seed is given.
const DefaultSeed = 2017

// Option configures a Trainer.
type Option func(*Trainer)

// WithThreads sets the number of worker goroutines.
// Values <= 0 use runtime.GOMAXPROCS(0).
func WithThreads(n int) Option {
	return func(t *Trainer) { t.threads = n }
}

// WithBatchSize sets the number of examples read per batch.
func WithBatchSize(n int) Option {
	return func(t *Trainer) { t.batchSize = n }
}

// WithMiniBatchSize sets the number of examples per mini-batch.
func WithMiniBatchSize(n int) Option {
	return func(t *Trainer) { t.miniBatchSize = n }
}

// WithDropoutLog sets the dropout strength: each feature slot is dropped
// with probability 2^-l during training.
func WithDropoutLog(l int) Option {
	return func(t *Trainer) { t.dropoutLog = l }
}

// WithSeed seeds batch and mini-batch shuffling.
func WithSeed(seed uint64) Option {
	return func(t *Trainer) { t.seed = seed }
}

// WithRandomSource sets how each worker obtains its dropout randomness.
func WithRandomSource(f dropout.SourceFactory) Option {
	return func(t *Trainer) { t.sources = f }
}

// WithLogger sets the logger. Passes are logged at Info, batches at Debug.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(t *Trainer) { t.metrics = m }
}

// WithMaxMaskWords bounds the dropout mask of a single example in 64-bit words.
func WithMaxMaskWords(n int) Option {
	return func(t *Trainer) { t.maxMaskWords = n }
}
