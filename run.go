package batchlearn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/batchlearn/codec"
	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
	"github.com/hupe1980/batchlearn/internal/sink"
	"github.com/hupe1980/batchlearn/model"
	"github.com/hupe1980/batchlearn/resource"
	"github.com/hupe1980/batchlearn/trainer"
)

// Run trains a model on cfg.Train for cfg.Epochs epochs, evaluating on
// cfg.Validation after every epoch when given. Afterwards the labeled test
// set is evaluated, and predictions for it are written to cfg.Predictions.
//
// Validation and test datasets are checked against the training schema
// before any batch is read. Every failure aborts the run.
func Run(ctx context.Context, cfg Config, opts ...Option) (*Report, error) {
	o := options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
		codec:   codec.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   cfg.MemoryLimitBytes,
		IOLimitBytesPerSec: cfg.IOLimitBytesPerSec,
	})
	r := &runner{
		cfg:    &cfg,
		opts:   &o,
		rc:     rc,
		stores: newStoreSet(&cfg, o.storeResolver),
	}
	defer r.close()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	tr, srcName, err := r.newTrainer()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Train:        cfg.Train,
		Validation:   cfg.Validation,
		Test:         cfg.Test,
		Output:       cfg.Predictions,
		Threads:      tr.Threads(),
		Seed:         cfg.Seed,
		RandomSource: srcName,
		Epochs:       make([]EpochReport, 0, cfg.Epochs),
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		e, err := r.epoch(ctx, tr, epoch)
		if err != nil {
			return nil, err
		}
		report.Epochs = append(report.Epochs, e)
		o.logger.LogEpoch(ctx, e)
	}

	if r.test != nil && r.test.Index().Labeled() {
		ev, err := tr.Evaluate(ctx, r.test)
		if err != nil {
			o.logger.LogPass(ctx, string(trainer.KindEval), cfg.Epochs, err)
			return nil, translateError("evaluate test", err)
		}
		report.HasTest = true
		report.TestLoss = ev.MeanLoss()
	}

	if r.test != nil && cfg.Predictions != "" {
		n, err := r.predict(ctx, tr)
		o.logger.LogPredictions(ctx, cfg.Predictions, n, err)
		if err != nil {
			return nil, translateError("predict", err)
		}
		report.Predictions = n
	}

	report.Seconds = time.Since(start).Seconds()

	if cfg.ReportPath != "" {
		if err := WriteReport(cfg.ReportPath, report, o.codec); err != nil {
			return nil, translateError("write report", err)
		}
	}
	if cfg.PlotPath != "" && len(report.Epochs) > 0 {
		if err := PlotLoss(cfg.PlotPath, report); err != nil {
			return nil, translateError("plot loss", err)
		}
	}
	return report, nil
}

type runner struct {
	cfg    *Config
	opts   *options
	rc     *resource.Controller
	stores *storeSet

	train, val, test *featurestore.Dataset
}

// load opens all datasets and checks their schemas.
func (r *runner) load(ctx context.Context) error {
	var err error
	if r.train, err = r.open(ctx, "train", r.cfg.Train); err != nil {
		return err
	}
	if !r.train.Index().Labeled() {
		return translateError("load train", fmt.Errorf("%w: %s", ErrNoLabels, r.cfg.Train))
	}

	if r.cfg.Validation != "" {
		if r.val, err = r.open(ctx, "validation", r.cfg.Validation); err != nil {
			return err
		}
		if err := featurestore.CheckSchema(r.train.Index(), r.val.Index(), "validation"); err != nil {
			return translateError("load validation", err)
		}
	}
	if r.cfg.Test != "" {
		if r.test, err = r.open(ctx, "test", r.cfg.Test); err != nil {
			return err
		}
		if err := featurestore.CheckSchema(r.train.Index(), r.test.Index(), "test"); err != nil {
			return translateError("load test", err)
		}
	}
	return nil
}

func (r *runner) open(ctx context.Context, role, path string) (*featurestore.Dataset, error) {
	store, name, err := r.stores.get(ctx, path)
	if err != nil {
		r.opts.logger.LogDatasetLoaded(ctx, role, path, 0, err)
		return nil, translateError("load "+role, err)
	}

	fsOpts := []featurestore.Option{featurestore.WithResourceController(r.rc)}
	ds, err := featurestore.Open(ctx, store, name, fsOpts...)
	if err != nil {
		r.opts.logger.LogDatasetLoaded(ctx, role, path, 0, err)
		return nil, translateError("load "+role, err)
	}
	r.opts.logger.LogDatasetLoaded(ctx, role, path, ds.Index().NumExamples(), nil)
	return ds, nil
}

func (r *runner) newTrainer() (*trainer.Trainer, string, error) {
	factory := r.opts.modelFactory
	if factory == nil {
		factory = model.LinearFactory(r.cfg.linearConfig())
	}
	m, err := factory(r.train.Index())
	if err != nil {
		return nil, "", translateError("create model", err)
	}

	sources := r.opts.randomSource
	if sources == nil {
		sources = dropout.DefaultSourceFactory()
	}
	// Probe the source once so a missing entropy source fails before
	// the first epoch.
	src, err := sources()
	if err != nil {
		return nil, "", translateError("dropout source", err)
	}

	tr, err := trainer.New(m,
		trainer.WithThreads(r.cfg.Threads),
		trainer.WithBatchSize(r.cfg.BatchSize),
		trainer.WithMiniBatchSize(r.cfg.MiniBatchSize),
		trainer.WithDropoutLog(r.cfg.DropoutLog),
		trainer.WithMaxMaskWords(r.cfg.MaxMaskWords),
		trainer.WithSeed(r.cfg.Seed),
		trainer.WithRandomSource(sources),
		trainer.WithLogger(r.opts.logger.Logger),
		trainer.WithMetricsCollector(r.opts.metrics),
	)
	if err != nil {
		return nil, "", translateError("create trainer", err)
	}
	return tr, dropout.Name(src), nil
}

func (r *runner) epoch(ctx context.Context, tr *trainer.Trainer, epoch int) (EpochReport, error) {
	log := r.opts.logger

	log.LogPass(ctx, string(trainer.KindTrain), epoch, nil)
	res, err := tr.Train(ctx, r.train)
	if err != nil {
		log.LogPass(ctx, string(trainer.KindTrain), epoch, err)
		return EpochReport{}, translateError(fmt.Sprintf("train epoch %d", epoch), err)
	}
	e := EpochReport{
		Epoch:         epoch,
		TrainExamples: res.Examples,
		TrainLoss:     res.MeanLoss(),
		TrainSeconds:  res.Duration.Seconds(),
	}

	if r.val != nil {
		log.LogPass(ctx, string(trainer.KindEval), epoch, nil)
		ev, err := tr.Evaluate(ctx, r.val)
		if err != nil {
			log.LogPass(ctx, string(trainer.KindEval), epoch, err)
			return EpochReport{}, translateError(fmt.Sprintf("validate epoch %d", epoch), err)
		}
		e.HasValidation = true
		e.ValExamples = ev.Examples
		e.ValLoss = ev.MeanLoss()
		e.ValSeconds = ev.Duration.Seconds()
	}
	return e, nil
}

// predict streams test predictions to the configured output. A failed
// output is removed.
func (r *runner) predict(ctx context.Context, tr *trainer.Trainer) (int64, error) {
	store, name, err := r.stores.get(ctx, r.cfg.Predictions)
	if err != nil {
		return 0, err
	}
	blob, err := store.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	w, err := sink.NewWriter(blob, sink.Detect(name))
	if err != nil {
		_ = blob.Close()
		_ = store.Delete(ctx, name)
		return 0, err
	}

	res, err := tr.Predict(ctx, r.test, w)
	if err = errors.Join(err, w.Close()); err != nil {
		_ = store.Delete(ctx, name)
		return 0, err
	}
	return res.Examples, nil
}

func (r *runner) close() {
	for _, ds := range []*featurestore.Dataset{r.train, r.val, r.test} {
		if ds != nil {
			_ = ds.Close()
		}
	}
}
