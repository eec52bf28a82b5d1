package trainer

import (
	"context"
	"time"

	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
	"github.com/hupe1980/batchlearn/internal/planner"
	"github.com/hupe1980/batchlearn/metric"
)

// Train runs one epoch over ds, updating the model in place.
func (t *Trainer) Train(ctx context.Context, ds Dataset) (Result, error) {
	start := time.Now()
	ix := ds.Index()
	if !ix.Labeled() {
		return Result{}, ErrNoLabels
	}

	batches, err := t.plan(ix, true)
	if err != nil {
		return Result{}, err
	}

	setup := func(w *worker) error {
		src, err := t.sources()
		if err != nil {
			return err
		}
		w.gen, err = dropout.NewGenerator(src, t.dropoutLog)
		if err != nil {
			return err
		}
		w.mask = dropout.NewMask(t.maxMaskWords)
		return nil
	}

	loss, err := t.forEachBatch(ctx, KindTrain, ds, batches, setup, func(_ context.Context, w *worker, b *featurestore.Batch) error {
		return t.trainBatch(w, ix, b)
	})
	if err != nil {
		return Result{}, err
	}
	return t.finish(KindTrain, loss, start), nil
}

func (t *Trainer) trainBatch(w *worker, ix *featurestore.Index, b *featurestore.Batch) error {
	minis, err := planner.AppendMiniBatches(w.minis[:0], planner.Range{Begin: b.Begin, End: b.End}, t.miniBatchSize)
	if err != nil {
		return err
	}
	w.minis = minis
	planner.Shuffle(minis, w.rng)

	mult := w.gen.Multiplier()
	for _, mb := range minis {
		for i := mb.Begin; i < mb.End; i++ {
			feats := b.Features(i)
			y := ix.Labels[i]

			if err := w.gen.Fill(w.mask, t.model.DropoutMaskSize(feats)); err != nil {
				return err
			}
			norm := metric.SquaredNorm(feats)

			score := t.model.Predict(feats, norm, w.mask, mult)
			t.model.Update(feats, norm, metric.Gradient(y, score), w.mask, mult)

			w.loss.Add(metric.LogLoss(y, score))
		}
	}
	return nil
}
