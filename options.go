package batchlearn

import (
	"fmt"
	"runtime"

	"github.com/hupe1980/batchlearn/codec"
	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/internal/planner"
	"github.com/hupe1980/batchlearn/model"
	"github.com/hupe1980/batchlearn/trainer"
)

// Config describes one training run.
//
// Dataset paths name a dataset without its .index/.data suffix and may be a
// local path, s3://bucket/prefix/name or minio://endpoint/bucket/prefix/name.
type Config struct {
	Train       string
	Validation  string // optional
	Test        string // optional
	Predictions string // optional; .zst and .lz4 outputs are compressed

	Epochs        int
	Threads       int
	Seed          uint64
	DropoutLog    int
	BatchSize     int
	MiniBatchSize int
	MaxMaskWords  int

	// Reference model parameters, used when no model factory is given.
	LearningRate float32
	L2           float32

	// MemoryLimitBytes bounds resident batch buffers. 0 means unlimited.
	MemoryLimitBytes int64
	// IOLimitBytesPerSec throttles feature reads. 0 means unlimited.
	IOLimitBytesPerSec int64
	// CacheBytes sizes the block cache put in front of remote stores.
	// 0 disables caching.
	CacheBytes int64
	// DisableMmap reads local datasets with pread instead of mapping them.
	DisableMmap bool

	ReportPath string // optional JSON report, local file
	PlotPath   string // optional loss curve PNG, local file
}

// DefaultConfig returns a Config with the engine defaults and no datasets.
func DefaultConfig() Config {
	lin := model.DefaultLinearConfig()
	return Config{
		Epochs:        10,
		Threads:       runtime.GOMAXPROCS(0),
		Seed:          trainer.DefaultSeed,
		DropoutLog:    1,
		BatchSize:     planner.DefaultBatchSize,
		MiniBatchSize: planner.DefaultMiniBatchSize,
		MaxMaskWords:  dropout.DefaultMaxWords,
		LearningRate:  lin.LearningRate,
		L2:            lin.L2,
	}
}

// Validate checks the config for values a run cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Train == "":
		return fmt.Errorf("%w: train dataset is required", ErrInvalidConfig)
	case c.Epochs < 0:
		return fmt.Errorf("%w: epochs must not be negative, got %d", ErrInvalidConfig, c.Epochs)
	case c.Threads <= 0:
		return fmt.Errorf("%w: threads must be positive, got %d", ErrInvalidConfig, c.Threads)
	case c.DropoutLog < 1 || c.DropoutLog > 63:
		return fmt.Errorf("%w: dropout log must be in [1, 63], got %d", ErrInvalidConfig, c.DropoutLog)
	case c.BatchSize <= 0 || c.MiniBatchSize <= 0:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidSize)
	case c.MaxMaskWords <= 0:
		return fmt.Errorf("%w: max mask words must be positive, got %d", ErrInvalidConfig, c.MaxMaskWords)
	case c.MemoryLimitBytes < 0 || c.IOLimitBytesPerSec < 0 || c.CacheBytes < 0:
		return fmt.Errorf("%w: resource limits must not be negative", ErrInvalidConfig)
	case c.CacheBytes > 0 && c.CacheBytes < cacheBlockSize:
		return fmt.Errorf("%w: cache must hold at least one %d byte block, got %d",
			ErrInvalidConfig, cacheBlockSize, c.CacheBytes)
	case c.Predictions != "" && c.Test == "":
		return fmt.Errorf("%w: predictions output needs a test dataset", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) linearConfig() model.LinearConfig {
	return model.LinearConfig{LearningRate: c.LearningRate, L2: c.L2}
}

type options struct {
	logger        *Logger
	metrics       MetricsCollector
	modelFactory  model.Factory
	randomSource  dropout.SourceFactory
	storeResolver StoreResolver
	codec         codec.Codec
}

// Option configures Run.
type Option func(*options)

// WithLogger sets the run logger. Defaults to NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the collector passed to the trainer.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithModelFactory replaces the reference linear model.
// The factory receives the training index.
func WithModelFactory(f model.Factory) Option {
	return func(o *options) {
		o.modelFactory = f
	}
}

// WithRandomSource sets the dropout randomness. Defaults to
// dropout.DefaultSourceFactory.
func WithRandomSource(f dropout.SourceFactory) Option {
	return func(o *options) {
		o.randomSource = f
	}
}

// WithStoreResolver overrides how dataset and output paths map to stores.
func WithStoreResolver(r StoreResolver) Option {
	return func(o *options) {
		o.storeResolver = r
	}
}

// WithCodec sets the codec for the JSON report.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}
