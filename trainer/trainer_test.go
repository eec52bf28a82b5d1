package trainer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchlearn/blobstore"
	"github.com/hupe1980/batchlearn/dropout"
	"github.com/hupe1980/batchlearn/featurestore"
	"github.com/hupe1980/batchlearn/internal/planner"
	"github.com/hupe1980/batchlearn/model"
	"github.com/hupe1980/batchlearn/testutil"
)

// stubModel returns a fixed score, or the first feature's value when
// useValue is set, and records updates by feature index.
type stubModel struct {
	score    float32
	useValue bool

	mu       sync.Mutex
	updates  map[uint32]int
	order    []uint32
	grads    []float32
	predicts atomic.Int64
}

func newStub(score float32) *stubModel {
	return &stubModel{score: score, updates: make(map[uint32]int)}
}

func (m *stubModel) DropoutMaskSize(feats []featurestore.Record) int { return len(feats) }

func (m *stubModel) Predict(feats []featurestore.Record, _ float32, _ *dropout.Mask, _ float32) float32 {
	m.predicts.Add(1)
	if m.useValue && len(feats) > 0 {
		return feats[0].Value
	}
	return m.score
}

func (m *stubModel) Update(feats []featurestore.Record, _, grad float32, _ *dropout.Mask, _ float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(feats) > 0 {
		m.updates[feats[0].Index]++
		m.order = append(m.order, feats[0].Index)
	}
	m.grads = append(m.grads, grad)
}

type failingSource struct{}

func (failingSource) Uint64() (uint64, error) {
	return 0, dropout.ErrRandomSourceUnavailable
}

func softwareSources() Option { return WithRandomSource(dropout.NewSoftwareSource) }

// idExamples gives example i a single feature with Index i.
func idExamples(n int) []testutil.Example {
	out := make([]testutil.Example, n)
	for i := range out {
		y := float32(1)
		if i%3 == 0 {
			y = -1
		}
		out[i] = testutil.Example{
			Label:    y,
			Features: []featurestore.Record{{Field: 0, Index: uint32(i), Value: float32(i) / float32(n)}},
		}
	}
	return out
}

func buildDataset(t *testing.T, examples []testutil.Example) *featurestore.Dataset {
	return testutil.BuildDataset(t, blobstore.NewMemoryStore(), "ds", 16, examples)
}

func TestEvaluate_ZeroScore(t *testing.T) {
	ds := buildDataset(t, []testutil.Example{
		{Label: 1, Features: []featurestore.Record{{Index: 1, Value: 1}}},
		{Label: -1, Features: []featurestore.Record{{Index: 2, Value: 1}}},
	})

	tr, err := New(newStub(0))
	require.NoError(t, err)

	eval, err := tr.Evaluate(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, int64(2), eval.Examples)
	assert.InDelta(t, 2*math.Ln2, eval.Loss, 1e-12)
	assert.InDelta(t, math.Ln2, eval.MeanLoss(), 1e-12)
	assert.Equal(t, []float32{0.5, 0.5}, eval.Predictions)
}

func TestTrain_ConstantScoreLoss(t *testing.T) {
	const n = 1000
	ds := buildDataset(t, testutil.ConstantExamples(n, 1, 3))

	stub := newStub(0.7)
	tr, err := New(stub, WithThreads(4), WithBatchSize(64), WithMiniBatchSize(5), softwareSources())
	require.NoError(t, err)

	res, err := tr.Train(context.Background(), ds)
	require.NoError(t, err)

	want := n * math.Log(1+math.Exp(-float64(float32(0.7))))
	assert.Equal(t, int64(n), res.Examples)
	assert.InEpsilon(t, want, res.Loss, 1e-9)

	// Every update received the logistic gradient of the constant score.
	e := math.Exp(-float64(float32(0.7)))
	for _, g := range stub.grads {
		require.InDelta(t, -e/(1+e), g, 1e-6)
	}
	assert.Len(t, stub.grads, n)
}

func TestTrain_VisitsEveryExampleOnce(t *testing.T) {
	const n = 2345
	ds := buildDataset(t, idExamples(n))
	reader := testutil.NewCountingReader(ds)

	stub := newStub(0)
	tr, err := New(stub, WithThreads(8), WithBatchSize(100), WithMiniBatchSize(7), softwareSources())
	require.NoError(t, err)

	for range 2 {
		res, err := tr.Train(context.Background(), reader)
		require.NoError(t, err)
		assert.Equal(t, int64(n), res.Examples)
	}

	assert.Equal(t, int64(2*24), reader.Reads())
	require.Len(t, stub.updates, n)
	for i := range n {
		require.Equal(t, 2, stub.updates[uint32(i)], "example %d", i)
	}
}

func TestTrain_SingleExample(t *testing.T) {
	ds := buildDataset(t, idExamples(1))
	reader := testutil.NewCountingReader(ds)

	stub := newStub(0)
	tr, err := New(stub, WithBatchSize(10), WithMiniBatchSize(5), softwareSources())
	require.NoError(t, err)

	for _, shuffle := range []bool{true, false} {
		batches, err := tr.plan(ds.Index(), shuffle)
		require.NoError(t, err)
		require.Equal(t, []planner.Range{{Begin: 0, End: 1}}, batches)

		minis, err := planner.MiniBatches(batches[0], tr.miniBatchSize)
		require.NoError(t, err)
		require.Len(t, minis, 1)
	}

	res, err := tr.Train(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Examples)
	assert.Equal(t, int64(1), reader.Reads())
	assert.Equal(t, 1, stub.updates[0])
}

func TestTrain_ShufflesMiniBatchesWithinBatch(t *testing.T) {
	const n, mini = 100, 10
	ds := buildDataset(t, idExamples(n))

	stub := newStub(0)
	tr, err := New(stub, WithThreads(1), WithBatchSize(n), WithMiniBatchSize(mini), softwareSources())
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, stub.order, n)

	// Examples stay in order inside a mini-batch; the mini-batches do not.
	starts := make([]uint32, 0, n/mini)
	for k := 0; k < n; k += mini {
		first := stub.order[k]
		require.Zero(t, first%mini, "mini-batch at %d starts mid-block: %v", k, stub.order[k:k+mini])
		for j := 1; j < mini; j++ {
			require.Equal(t, first+uint32(j), stub.order[k+j])
		}
		starts = append(starts, first)
	}

	ascending := []uint32{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}
	assert.ElementsMatch(t, ascending, starts)
	assert.NotEqual(t, ascending, starts)
}

func TestPlan_ShufflesBatchesForTraining(t *testing.T) {
	ds := buildDataset(t, idExamples(1000))

	tr, err := New(newStub(0), WithBatchSize(100), softwareSources())
	require.NoError(t, err)

	ordered, err := tr.plan(ds.Index(), false)
	require.NoError(t, err)
	require.Len(t, ordered, 10)
	for i, r := range ordered {
		require.Equal(t, planner.Range{Begin: i * 100, End: (i + 1) * 100}, r)
	}

	shuffled, err := tr.plan(ds.Index(), true)
	require.NoError(t, err)
	assert.ElementsMatch(t, ordered, shuffled)
	assert.NotEqual(t, ordered, shuffled)
}

func TestPasses_EmptyDataset(t *testing.T) {
	ds := buildDataset(t, nil)

	tr, err := New(newStub(0), WithRandomSource(func() (dropout.RandomSource, error) {
		return nil, errors.New("must not be called")
	}))
	require.NoError(t, err)

	res, err := tr.Train(context.Background(), ds)
	require.NoError(t, err)
	assert.Zero(t, res.Examples)
	assert.Zero(t, res.MeanLoss())

	eval, err := tr.Evaluate(context.Background(), ds)
	require.NoError(t, err)
	assert.Empty(t, eval.Predictions)

	var out bytes.Buffer
	res, err = tr.Predict(context.Background(), ds, &out)
	require.NoError(t, err)
	assert.Zero(t, res.Examples)
	assert.Empty(t, out.String())
}

func TestTrain_RandomSourceFailure(t *testing.T) {
	ds := buildDataset(t, idExamples(50))

	tr, err := New(newStub(0), WithThreads(2), WithBatchSize(10),
		WithRandomSource(func() (dropout.RandomSource, error) { return failingSource{}, nil }))
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), ds)
	assert.ErrorIs(t, err, dropout.ErrRandomSourceUnavailable)

	tr, err = New(newStub(0), WithRandomSource(func() (dropout.RandomSource, error) {
		return nil, dropout.ErrRandomSourceUnavailable
	}))
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), ds)
	assert.ErrorIs(t, err, dropout.ErrRandomSourceUnavailable)
}

func TestPasses_MaskOverflow(t *testing.T) {
	ds := buildDataset(t, testutil.ConstantExamples(3, 1, 65))

	tr, err := New(newStub(0), WithMaxMaskWords(1), softwareSources())
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), ds)
	assert.ErrorIs(t, err, dropout.ErrMaskOverflow)

	_, err = tr.Evaluate(context.Background(), ds)
	assert.ErrorIs(t, err, dropout.ErrMaskOverflow)

	_, err = tr.Predict(context.Background(), ds, &bytes.Buffer{})
	assert.ErrorIs(t, err, dropout.ErrMaskOverflow)
}

func TestTrain_ReadErrorAborts(t *testing.T) {
	ds := buildDataset(t, idExamples(100))
	reader := testutil.NewCountingReader(ds)
	reader.FailAt = 3
	reader.Err = featurestore.ErrIO

	tr, err := New(newStub(0), WithThreads(2), WithBatchSize(10), softwareSources())
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), reader)
	assert.ErrorIs(t, err, featurestore.ErrIO)
}

func TestTrain_ContextCanceled(t *testing.T) {
	ds := buildDataset(t, idExamples(100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr, err := New(newStub(0), WithBatchSize(10), softwareSources())
	require.NoError(t, err)

	_, err = tr.Train(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnlabeled(t *testing.T) {
	ds := buildDataset(t, []testutil.Example{
		{Label: 0, Features: []featurestore.Record{{Index: 1, Value: 1}}},
		{Label: 0, Features: nil},
	})

	tr, err := New(newStub(0))
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), ds)
	assert.ErrorIs(t, err, ErrNoLabels)
	_, err = tr.Evaluate(context.Background(), ds)
	assert.ErrorIs(t, err, ErrNoLabels)

	var out bytes.Buffer
	res, err := tr.Predict(context.Background(), ds, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Examples)
	assert.Equal(t, "0.5\n0.5\n", out.String())
}

func TestPredict_Order(t *testing.T) {
	const n = 257
	ds := buildDataset(t, idExamples(n))

	stub := newStub(0)
	stub.useValue = true
	tr, err := New(stub, WithThreads(8), WithBatchSize(16))
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := tr.Predict(context.Background(), ds, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(n), res.Examples)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, n)
	for i, line := range lines {
		p, err := strconv.ParseFloat(line, 64)
		require.NoError(t, err)
		want := 1 / (1 + math.Exp(-float64(float32(i)/float32(n))))
		require.InDelta(t, want, p, 1e-5, "line %d", i)
	}

	eval, err := tr.Evaluate(context.Background(), ds)
	require.NoError(t, err)
	for i, p := range eval.Predictions {
		p2, _ := strconv.ParseFloat(lines[i], 64)
		require.InDelta(t, p2, p, 1e-5)
	}
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestPredict_WriteError(t *testing.T) {
	ds := buildDataset(t, idExamples(10))
	tr, err := New(newStub(0))
	require.NoError(t, err)

	_, err = tr.Predict(context.Background(), ds, errWriter{})
	assert.ErrorContains(t, err, "disk full")
}

type recordingCollector struct {
	batches atomic.Int64
	passes  atomic.Int64
	kinds   sync.Map
}

func (c *recordingCollector) RecordBatch(kind Kind, _ int, _ int64, _ time.Duration) {
	c.batches.Add(1)
	c.kinds.Store(kind, true)
}

func (c *recordingCollector) RecordPass(Kind, int64, float64, time.Duration) {
	c.passes.Add(1)
}

func TestMetricsAndLogging(t *testing.T) {
	ds := buildDataset(t, idExamples(95))

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	mc := &recordingCollector{}

	tr, err := New(newStub(0), WithThreads(3), WithBatchSize(10), WithLogger(logger), WithMetricsCollector(mc), softwareSources())
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), ds)
	require.NoError(t, err)
	_, err = tr.Evaluate(context.Background(), ds)
	require.NoError(t, err)
	_, err = tr.Predict(context.Background(), ds, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, int64(30), mc.batches.Load())
	assert.Equal(t, int64(3), mc.passes.Load())
	for _, k := range []Kind{KindTrain, KindEval, KindPredict} {
		_, ok := mc.kinds.Load(k)
		assert.True(t, ok, k)
	}

	assert.Equal(t, 3, strings.Count(logs.String(), `"msg":"pass completed"`))
	assert.Contains(t, logs.String(), `"kind":"train"`)
	assert.NotContains(t, logs.String(), "batch completed")
}

func TestNew_Invalid(t *testing.T) {
	tests := map[string][]Option{
		"batch size":      {WithBatchSize(0)},
		"mini-batch size": {WithMiniBatchSize(-1)},
		"mask words":      {WithMaxMaskWords(0)},
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(newStub(0), opts...)
			assert.ErrorIs(t, err, planner.ErrInvalidSize)
		})
	}

	_, err := New(newStub(0), WithDropoutLog(0))
	assert.ErrorIs(t, err, dropout.ErrInvalidRate)

	tr, err := New(newStub(0), WithThreads(0))
	require.NoError(t, err)
	assert.Positive(t, tr.Threads())
}

func TestTrain_LinearLearnsSeparableData(t *testing.T) {
	rng := testutil.NewRNG(7)
	store := blobstore.NewMemoryStore()
	train := testutil.BuildDataset(t, store, "train", 12, rng.SeparableExamples(4000, 4, 12))
	val := testutil.BuildDataset(t, store, "val", 12, rng.SeparableExamples(500, 4, 12))

	lin, err := model.NewLinear(12, model.LinearConfig{LearningRate: 0.5, L2: 1e-6})
	require.NoError(t, err)

	tr, err := New(lin, WithThreads(4), WithBatchSize(256), softwareSources())
	require.NoError(t, err)

	ctx := context.Background()
	before, err := tr.Evaluate(ctx, val)
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, before.MeanLoss(), 1e-6)

	for range 5 {
		_, err := tr.Train(ctx, train)
		require.NoError(t, err)
	}

	after, err := tr.Evaluate(ctx, val)
	require.NoError(t, err)
	assert.Less(t, after.MeanLoss(), 0.3)

	correct := 0
	for i, p := range after.Predictions {
		if (p > 0.5) == (val.Index().Labels[i] > 0) {
			correct++
		}
	}
	assert.Greater(t, correct, 475)
}
