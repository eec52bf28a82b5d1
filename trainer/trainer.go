package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
	"github.com/hupe1980/batchlearn/internal/planner"
	"github.com/hupe1980/batchlearn/metric"
	"github.com/hupe1980/batchlearn/model"
)

// Dataset is the read side of a featurestore dataset.
// ReadBatch must be safe for concurrent calls on disjoint ranges.
type Dataset interface {
	Index() *featurestore.Index
	ReadBatch(ctx context.Context, begin, end int) (*featurestore.Batch, error)
}

// Result summarizes one pass.
type Result struct {
	Examples int64
	Loss     float64 // summed over examples
	Duration time.Duration
}

// MeanLoss returns the average loss per example, or 0 for an empty pass.
func (r Result) MeanLoss() float64 {
	return metric.Loss{Sum: r.Loss, Count: r.Examples}.Mean()
}

// Trainer drives passes of one model. A Trainer must not run two passes
// at the same time.
type Trainer struct {
	model model.Model

	threads       int
	batchSize     int
	miniBatchSize int
	dropoutLog    int
	maxMaskWords  int
	seed          uint64

	sources dropout.SourceFactory
	logger  *slog.Logger
	metrics MetricsCollector

	// rng orders batches; only used before workers start.
	rng    *rand.Rand
	passes uint64
}

// New creates a Trainer for m.
func New(m model.Model, opts ...Option) (*Trainer, error) {
	t := &Trainer{
		model:         m,
		batchSize:     planner.DefaultBatchSize,
		miniBatchSize: planner.DefaultMiniBatchSize,
		dropoutLog:    1,
		maxMaskWords:  dropout.DefaultMaxWords,
		seed:          DefaultSeed,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.threads <= 0 {
		t.threads = runtime.GOMAXPROCS(0)
	}
	if t.batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", planner.ErrInvalidSize, t.batchSize)
	}
	if t.miniBatchSize <= 0 {
		return nil, fmt.Errorf("%w: mini-batch size %d", planner.ErrInvalidSize, t.miniBatchSize)
	}
	if t.maxMaskWords <= 0 {
		return nil, fmt.Errorf("%w: mask words %d", planner.ErrInvalidSize, t.maxMaskWords)
	}
	if t.dropoutLog < 1 || t.dropoutLog > 63 {
		return nil, fmt.Errorf("%w: got %d", dropout.ErrInvalidRate, t.dropoutLog)
	}
	if t.sources == nil {
		t.sources = dropout.DefaultSourceFactory()
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	if t.metrics == nil {
		t.metrics = NoopMetricsCollector{}
	}
	t.rng = rand.New(rand.NewPCG(t.seed, 0))

	return t, nil
}

// Threads returns the size of the worker pool.
func (t *Trainer) Threads() int { return t.threads }

// plan returns the batches of a pass, shuffled for training.
func (t *Trainer) plan(ix *featurestore.Index, shuffle bool) ([]planner.Range, error) {
	batches, err := planner.Batches(ix.NumExamples(), t.batchSize)
	if err != nil {
		return nil, err
	}
	if shuffle {
		planner.Shuffle(batches, t.rng)
	}
	return batches, nil
}

// worker is the state owned by one goroutine of a pass.
type worker struct {
	id    int
	rng   *rand.Rand
	gen   *dropout.Generator
	mask  *dropout.Mask
	minis []planner.Range
	loss  metric.Loss
}

type batchFunc func(ctx context.Context, w *worker, b *featurestore.Batch) error

// forEachBatch runs fn over all batches on the worker pool. Workers claim
// batches in slice order.
func (t *Trainer) forEachBatch(ctx context.Context, kind Kind, ds Dataset, batches []planner.Range, setup func(w *worker) error, fn batchFunc) (metric.Loss, error) {
	n := min(t.threads, len(batches))
	workers := make([]*worker, n)
	pass := t.passes
	t.passes++

	for i := range workers {
		w := &worker{
			id:  i,
			rng: rand.New(rand.NewPCG(t.seed+uint64(i)+1, pass)),
		}
		if setup != nil {
			if err := setup(w); err != nil {
				return metric.Loss{}, err
			}
		}
		workers[i] = w
	}

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				bi := int(next.Add(1) - 1)
				if bi >= len(batches) {
					return nil
				}

				r := batches[bi]
				start := time.Now()
				b, err := ds.ReadBatch(gctx, r.Begin, r.End)
				if err != nil {
					return err
				}
				err = fn(gctx, w, b)
				nbytes := int64(len(b.Records)) * featurestore.RecordSize
				b.Release()
				if err != nil {
					return err
				}

				d := time.Since(start)
				t.metrics.RecordBatch(kind, r.Len(), nbytes, d)
				t.logger.Debug("batch completed", "kind", kind, "worker", w.id, "batch", r.String(), "seconds", d.Seconds())
			}
		})
	}
	if err := g.Wait(); err != nil {
		return metric.Loss{}, err
	}

	var total metric.Loss
	for _, w := range workers {
		total.Merge(w.loss)
	}
	return total, nil
}

func (t *Trainer) finish(kind Kind, loss metric.Loss, start time.Time) Result {
	res := Result{Examples: loss.Count, Loss: loss.Sum, Duration: time.Since(start)}
	t.metrics.RecordPass(kind, res.Examples, res.MeanLoss(), res.Duration)
	attrs := []any{"kind", kind, "examples", res.Examples, "seconds", res.Duration.Seconds()}
	if kind != KindPredict {
		attrs = append(attrs, "loss", res.MeanLoss())
	}
	t.logger.Info("pass completed", attrs...)
	return res
}
