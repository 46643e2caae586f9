package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separableData() ([][]float64, []float64) {
	var samples [][]float64
	var labels []float64
	for i := 0; i < 40; i++ {
		x := float64(i%20) / 2
		if i < 20 {
			samples = append(samples, []float64{x, 0})
			labels = append(labels, 0)
		} else {
			samples = append(samples, []float64{x + 12, 1})
			labels = append(labels, 1)
		}
	}
	return samples, labels
}

func TestTrainLogisticNewtonConverges(t *testing.T) {
	samples, labels := separableData()

	weights, metrics, err := TrainLogistic(samples, labels, Options{})
	require.NoError(t, err)

	assert.True(t, metrics.Converged)
	assert.Less(t, metrics.Iterations, 100)
	assert.Equal(t, 1.0, metrics.Accuracy)
	assert.Len(t, weights.Coefficients, 2)
	assert.Greater(t, weights.Coefficients[0], 0.0)

	assert.Less(t, Predict(weights, []float64{1, 0}), 0.5)
	assert.Greater(t, Predict(weights, []float64{20, 1}), 0.5)
}

func TestTrainLogisticGradientSolver(t *testing.T) {
	var samples [][]float64
	var labels []float64
	for i := 0; i < 20; i++ {
		samples = append(samples, []float64{-1 + float64(i)*0.04}, []float64{0.24 + float64(i)*0.04})
		labels = append(labels, 0, 1)
	}

	weights, metrics, err := TrainLogistic(samples, labels, Options{Solver: SolverGradient, MaxIterations: 2000, LearningRate: 0.5})
	require.NoError(t, err)

	assert.LessOrEqual(t, metrics.Iterations, 2000)
	assert.Greater(t, metrics.Accuracy, 0.9)
	assert.Less(t, Predict(weights, []float64{-0.8}), 0.5)
	assert.Greater(t, Predict(weights, []float64{0.8}), 0.5)
}

func TestStrongerPenaltyShrinksCoefficients(t *testing.T) {
	samples, labels := separableData()

	loose, _, err := TrainLogistic(samples, labels, Options{C: 10})
	require.NoError(t, err)
	tight, _, err := TrainLogistic(samples, labels, Options{C: 0.01})
	require.NoError(t, err)

	assert.Less(t, norm(tight.Coefficients), norm(loose.Coefficients))
}

func TestCollinearIndicatorsStayWellPosed(t *testing.T) {
	// two indicator columns that always sum to one, like a one-hot pair
	samples := [][]float64{{1, 0}, {1, 0}, {0, 1}, {0, 1}, {1, 0}, {0, 1}}
	labels := []float64{1, 1, 0, 0, 0, 1}

	_, metrics, err := TrainLogistic(samples, labels, Options{})
	require.NoError(t, err)
	assert.True(t, metrics.Converged)
}

func TestSingleClassLabels(t *testing.T) {
	samples := [][]float64{{1}, {2}, {3}}
	labels := []float64{0, 0, 0}

	weights, metrics, err := TrainLogistic(samples, labels, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, metrics.Accuracy)
	assert.Less(t, Predict(weights, []float64{2}), 0.5)
}

func TestTrainLogisticInputErrors(t *testing.T) {
	_, _, err := TrainLogistic(nil, nil, Options{})
	assert.ErrorIs(t, err, ErrNoSamples)

	_, _, err = TrainLogistic([][]float64{{1}}, []float64{1, 0}, Options{})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSolve(t *testing.T) {
	x, err := solve([][]float64{{2, 1}, {1, 3}}, []float64{3, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, x[0], 1e-9)
	assert.InDelta(t, 1.4, x[1], 1e-9)

	_, err = solve([][]float64{{1, 2}, {2, 4}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrSingular)
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
