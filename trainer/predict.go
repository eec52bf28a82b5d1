package trainer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
	"github.com/hupe1980/batchlearn/metric"
)

// Predict writes the predicted probability of every example of ds to out,
// one per line in example order. Labels are not required.
// The pass runs on the calling goroutine.
func (t *Trainer) Predict(ctx context.Context, ds Dataset, out io.Writer) (Result, error) {
	start := time.Now()
	ix := ds.Index()

	batches, err := t.plan(ix, false)
	if err != nil {
		return Result{}, err
	}

	ones := dropout.NewInferenceMask(t.maxMaskWords)
	bw := bufio.NewWriterSize(out, 64*1024)
	var line []byte
	var count int64

	for _, r := range batches {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		bstart := time.Now()
		b, err := ds.ReadBatch(ctx, r.Begin, r.End)
		if err != nil {
			return Result{}, err
		}
		for i := b.Begin; i < b.End; i++ {
			score, err := t.score(b.Features(i), ones)
			if err != nil {
				b.Release()
				return Result{}, err
			}
			line = strconv.AppendFloat(line[:0], metric.Sigmoid(score), 'g', 6, 64)
			line = append(line, '\n')
			if _, err := bw.Write(line); err != nil {
				b.Release()
				return Result{}, fmt.Errorf("trainer: write predictions: %w", err)
			}
		}
		t.metrics.RecordBatch(KindPredict, r.Len(), int64(len(b.Records))*featurestore.RecordSize, time.Since(bstart))
		b.Release()
		count += int64(r.Len())
	}

	if err := bw.Flush(); err != nil {
		return Result{}, fmt.Errorf("trainer: write predictions: %w", err)
	}

	return t.finish(KindPredict, metric.Loss{Count: count}, start), nil
}
