package split

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomLabels(n int, positiveRate float64, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	labels := make([]int, n)
	for i := range labels {
		if rng.Float64() < positiveRate {
			labels[i] = 1
		}
	}
	return labels
}

func TestStratifiedSplitSizes(t *testing.T) {
	labels := randomLabels(500, 0.7, 1)
	train, test, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)

	assert.Len(t, test, 100)
	assert.Len(t, train, 400)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	for i, idx := range all {
		require.Equal(t, i, idx, "every row appears exactly once")
	}
}

func TestStratifiedSplitPreservesRatio(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5} {
		labels := randomLabels(500, 0.75, seed)
		all := make([]int, len(labels))
		for i := range all {
			all[i] = i
		}
		overall := PositiveRate(labels, all)

		train, test, err := StratifiedSplit(labels, 0.2, 42)
		require.NoError(t, err)

		assert.InDelta(t, overall, PositiveRate(labels, train), 0.05)
		assert.InDelta(t, overall, PositiveRate(labels, test), 0.05)
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	labels := randomLabels(200, 0.5, 9)

	trainA, testA, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	trainB, testB, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)

	_, testC, err := StratifiedSplit(labels, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, testA, testC)
}

func TestStratifiedSplitSingleClass(t *testing.T) {
	labels := make([]int, 50)
	train, test, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 10)
	assert.Len(t, train, 40)
	assert.Equal(t, 0.0, PositiveRate(labels, test))
}

func TestStratifiedSplitRejectsBadInput(t *testing.T) {
	_, _, err := StratifiedSplit([]int{0, 1}, 0, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit([]int{0, 1}, 1, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit([]int{1}, 0.2, 1)
	assert.Error(t, err)
}
