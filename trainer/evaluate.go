package trainer

import (
	"context"
	"time"

	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
	"github.com/hupe1980/batchlearn/metric"
)

// Evaluation is the result of an evaluation pass.
type Evaluation struct {
	Result

	// Predictions holds the predicted probability of every example,
	// indexed by example id.
	Predictions []float32
}

// Evaluate scores every example of ds without dropout or updates.
func (t *Trainer) Evaluate(ctx context.Context, ds Dataset) (*Evaluation, error) {
	start := time.Now()
	ix := ds.Index()
	if !ix.Labeled() {
		return nil, ErrNoLabels
	}

	batches, err := t.plan(ix, false)
	if err != nil {
		return nil, err
	}

	// Read-only, shared by all workers.
	ones := dropout.NewInferenceMask(t.maxMaskWords)
	preds := make([]float32, ix.NumExamples())

	loss, err := t.forEachBatch(ctx, KindEval, ds, batches, nil, func(_ context.Context, w *worker, b *featurestore.Batch) error {
		for i := b.Begin; i < b.End; i++ {
			score, err := t.score(b.Features(i), ones)
			if err != nil {
				return err
			}
			w.loss.Add(metric.LogLoss(ix.Labels[i], score))
			preds[i] = float32(metric.Sigmoid(score))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Evaluation{Result: t.finish(KindEval, loss, start), Predictions: preds}, nil
}

// score runs an inference-mode prediction.
func (t *Trainer) score(feats []featurestore.Record, ones *dropout.Mask) (float32, error) {
	if err := ones.Check(t.model.DropoutMaskSize(feats)); err != nil {
		return 0, err
	}
	return t.model.Predict(feats, metric.SquaredNorm(feats), ones, 1), nil
}
