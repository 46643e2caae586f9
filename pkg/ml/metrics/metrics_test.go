package metrics

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfusionCounts(t *testing.T) {
	labels := []int{1, 1, 1, 0, 0, 0, 1, 0}
	predicted := []int{1, 0, 1, 0, 1, 0, 1, 0}

	got := NewConfusion(labels, predicted)
	want := Confusion{TruePositive: 3, FalsePositive: 1, TrueNegative: 3, FalseNegative: 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("confusion mismatch (-want +got):\n%s", diff)
	}

	assert.InDelta(t, 0.75, Accuracy(labels, predicted), 1e-12)
	assert.InDelta(t, 0.75, Precision(labels, predicted), 1e-12)
	assert.InDelta(t, 0.75, Recall(labels, predicted), 1e-12)
	assert.InDelta(t, 0.75, F1(labels, predicted), 1e-12)
}

func TestZeroDivisionIsZero(t *testing.T) {
	labels := []int{0, 0, 0}
	predicted := []int{0, 0, 0}
	assert.Equal(t, 0.0, Precision(labels, predicted))
	assert.Equal(t, 0.0, Recall(labels, predicted))
	assert.Equal(t, 0.0, F1(labels, predicted))
	assert.Equal(t, 1.0, Accuracy(labels, predicted))
}

func TestROCAUC(t *testing.T) {
	auc, err := ROCAUC([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, auc, 1e-12)

	auc, err = ROCAUC([]int{0, 1, 0, 1}, []float64{0.1, 0.9, 0.2, 0.8})
	require.NoError(t, err)
	assert.Equal(t, 1.0, auc)
}

func TestROCAUCTies(t *testing.T) {
	auc, err := ROCAUC([]int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, auc, 1e-12)
}

func TestROCAUCSingleClass(t *testing.T) {
	_, err := ROCAUC([]int{1, 1, 1}, []float64{0.2, 0.6, 0.9})
	assert.ErrorIs(t, err, ErrUndefinedAUC)

	_, err = ROCAUC([]int{0, 1}, []float64{0.1})
	assert.Error(t, err)
}

func TestClassificationReport(t *testing.T) {
	labels := []int{1, 1, 1, 1, 0, 0}
	predicted := []int{1, 1, 1, 0, 0, 1}

	r := ClassificationReport(labels, predicted)
	require.Len(t, r.Classes, 2)

	neg, pos := r.Classes[0], r.Classes[1]
	assert.Equal(t, 2, neg.Support)
	assert.Equal(t, 4, pos.Support)
	assert.InDelta(t, 0.5, neg.Precision, 1e-12)
	assert.InDelta(t, 0.5, neg.Recall, 1e-12)
	assert.InDelta(t, 0.75, pos.Precision, 1e-12)
	assert.InDelta(t, 0.75, pos.Recall, 1e-12)

	assert.InDelta(t, 0.625, r.Macro.Precision, 1e-12)
	assert.InDelta(t, (0.5*2+0.75*4)/6, r.Weighted.Recall, 1e-12)
	assert.InDelta(t, 4.0/6, r.Accuracy, 1e-12)

	text := r.String()
	assert.True(t, strings.Contains(text, "precision"))
	assert.True(t, strings.Contains(text, "weighted avg"))
	assert.True(t, strings.Contains(text, "accuracy"))
}
