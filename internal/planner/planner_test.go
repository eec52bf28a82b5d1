package planner

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertPartition checks that ranges tile [begin, end) with no gaps or overlaps.
func assertPartition(t *testing.T, ranges []Range, begin, end, size int) {
	t.Helper()

	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b Range) int { return a.Begin - b.Begin })

	next := begin
	for i, r := range sorted {
		require.Equal(t, next, r.Begin, "gap or overlap at %v", r)
		require.Positive(t, r.Len())
		if i < len(sorted)-1 {
			require.Equal(t, size, r.Len())
		} else {
			require.LessOrEqual(t, r.Len(), size)
		}
		next = r.End
	}
	require.Equal(t, end, next)
}

func TestBatches(t *testing.T) {
	tests := []struct {
		n, size  int
		want     int
		lastSize int
	}{
		{n: 0, size: 20000, want: 0},
		{n: 1, size: 20000, want: 1, lastSize: 1},
		{n: 20000, size: 20000, want: 1, lastSize: 20000},
		{n: 20001, size: 20000, want: 2, lastSize: 1},
		{n: 100, size: 7, want: 15, lastSize: 2},
		{n: 99, size: 33, want: 3, lastSize: 33},
	}

	for _, tt := range tests {
		got, err := Batches(tt.n, tt.size)
		require.NoError(t, err)
		require.Len(t, got, tt.want, "n=%d size=%d", tt.n, tt.size)
		if tt.want == 0 {
			continue
		}
		assert.Equal(t, tt.lastSize, got[len(got)-1].Len())
		assertPartition(t, got, 0, tt.n, tt.size)
	}
}

func TestMiniBatches(t *testing.T) {
	got, err := MiniBatches(Range{40, 100}, 24)
	require.NoError(t, err)
	assert.Equal(t, []Range{{40, 64}, {64, 88}, {88, 100}}, got)

	// A batch smaller than one mini-batch yields exactly one.
	got, err = MiniBatches(Range{5, 8}, 24)
	require.NoError(t, err)
	assert.Equal(t, []Range{{5, 8}}, got)

	got, err = MiniBatches(Range{5, 5}, 24)
	require.NoError(t, err)
	assert.Empty(t, got)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		b := rng.IntN(1000)
		e := b + 1 + rng.IntN(500)
		m := 1 + rng.IntN(64)
		got, err := MiniBatches(Range{b, e}, m)
		require.NoError(t, err)
		assertPartition(t, got, b, e, m)
	}
}

func TestAppendMiniBatches_Reuse(t *testing.T) {
	buf := make([]Range, 0, 8)
	got, err := AppendMiniBatches(buf[:0], Range{0, 10}, 4)
	require.NoError(t, err)
	assert.Equal(t, []Range{{0, 4}, {4, 8}, {8, 10}}, got)
	assert.Same(t, &buf[:1][0], &got[0])
}

func TestInvalidSize(t *testing.T) {
	_, err := Batches(10, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = MiniBatches(Range{0, 10}, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestShuffle_IsPermutation(t *testing.T) {
	plain, err := Batches(1000, 30)
	require.NoError(t, err)

	shuffled := slices.Clone(plain)
	Shuffle(shuffled, rand.New(rand.NewPCG(2017, 0)))

	assert.ElementsMatch(t, plain, shuffled)
	assert.NotEqual(t, plain, shuffled)
	assertPartition(t, shuffled, 0, 1000, 30)
}

func TestShuffle_Deterministic(t *testing.T) {
	a, _ := Batches(500, 10)
	b, _ := Batches(500, 10)
	Shuffle(a, rand.New(rand.NewPCG(7, 3)))
	Shuffle(b, rand.New(rand.NewPCG(7, 3)))
	assert.Equal(t, a, b)
}

func TestRange_String(t *testing.T) {
	assert.Equal(t, "[3, 9)", Range{3, 9}.String())
}
