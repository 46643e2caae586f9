package linear

import (
	"errors"
	"math"
)

const (
	SolverNewton   = "newton"
	SolverGradient = "gradient"
)

var (
	ErrNoSamples     = errors.New("no training samples")
	ErrShapeMismatch = errors.New("samples and labels differ in length")
	ErrSingular      = errors.New("hessian is singular")
)

// Options configures TrainLogistic. C is the inverse L2 strength applied to
// the coefficients; the bias is never penalized. C <= 0 means 1.0.
type Options struct {
	Solver        string
	MaxIterations int
	Tolerance     float64
	C             float64
	LearningRate  float64
}

type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

type Metrics struct {
	Loss       float64 `json:"loss"`
	Accuracy   float64 `json:"accuracy"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
}

func (o Options) withDefaults() Options {
	if o.Solver == "" {
		o.Solver = SolverNewton
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 1000
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-6
	}
	if o.C <= 0 {
		o.C = 1.0
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.01
	}
	return o
}

func TrainLogistic(samples [][]float64, labels []float64, opts Options) (Weights, Metrics, error) {
	opts = opts.withDefaults()

	n := len(samples)
	if n == 0 {
		return Weights{}, Metrics{}, ErrNoSamples
	}
	if len(labels) != n {
		return Weights{}, Metrics{}, ErrShapeMismatch
	}

	var (
		theta      []float64
		iterations int
		converged  bool
		err        error
	)
	switch opts.Solver {
	case SolverGradient:
		theta, iterations, converged = gradientDescent(samples, labels, opts)
	default:
		theta, iterations, converged, err = newton(samples, labels, opts)
		if err != nil {
			return Weights{}, Metrics{}, err
		}
	}

	d := len(samples[0])
	weights := Weights{Bias: theta[d], Coefficients: theta[:d]}
	loss, accuracy := evaluate(weights.Coefficients, weights.Bias, samples, labels)
	return weights, Metrics{Loss: loss, Accuracy: accuracy, Iterations: iterations, Converged: converged}, nil
}

// newton minimizes the penalized log loss with Newton steps, halving a step
// whenever it does not decrease the objective.
func newton(samples [][]float64, labels []float64, opts Options) ([]float64, int, bool, error) {
	d := len(samples[0])
	lambda := 1 / opts.C
	theta := make([]float64, d+1)
	current := objective(theta, samples, labels, lambda)

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		grad := make([]float64, d+1)
		hess := make([][]float64, d+1)
		for i := range hess {
			hess[i] = make([]float64, d+1)
		}
		for i, sample := range samples {
			p := sigmoid(dot(theta[:d], sample) + theta[d])
			residual := p - labels[i]
			w := p * (1 - p)
			for j := 0; j <= d; j++ {
				xj := feature(sample, j, d)
				grad[j] += residual * xj
				for k := j; k <= d; k++ {
					hess[j][k] += w * xj * feature(sample, k, d)
				}
			}
		}
		for j := 0; j < d; j++ {
			grad[j] += lambda * theta[j]
			hess[j][j] += lambda
		}
		for j := 0; j <= d; j++ {
			for k := 0; k < j; k++ {
				hess[j][k] = hess[k][j]
			}
		}

		// a flat objective is a solution; with one class the bias would
		// otherwise drift until the hessian underflows
		var maxGrad float64
		for _, g := range grad {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < opts.Tolerance {
			return theta, iter, true, nil
		}

		step, err := solve(hess, grad)
		if err != nil {
			return nil, iter, false, err
		}

		scale := 1.0
		var candidate []float64
		var next float64
		for attempt := 0; attempt < 30; attempt++ {
			candidate = make([]float64, d+1)
			for j := range theta {
				candidate[j] = theta[j] - scale*step[j]
			}
			next = objective(candidate, samples, labels, lambda)
			if next <= current {
				break
			}
			scale /= 2
		}

		var maxDelta float64
		for j := range theta {
			maxDelta = math.Max(maxDelta, math.Abs(candidate[j]-theta[j]))
		}
		theta, current = candidate, next
		if maxDelta < opts.Tolerance {
			return theta, iter, true, nil
		}
	}
	return theta, opts.MaxIterations, false, nil
}

// gradientDescent is plain batch gradient descent on the penalized loss.
func gradientDescent(samples [][]float64, labels []float64, opts Options) ([]float64, int, bool) {
	n := len(samples)
	d := len(samples[0])
	lambda := 1 / opts.C
	weights := make([]float64, d)
	var bias float64

	for epoch := 1; epoch <= opts.MaxIterations; epoch++ {
		grad := make([]float64, d)
		var biasGrad float64
		for i, sample := range samples {
			prediction := sigmoid(dot(weights, sample) + bias)
			residual := prediction - labels[i]
			for j := 0; j < d; j++ {
				grad[j] += residual * sample[j]
			}
			biasGrad += residual
		}
		var maxStep float64
		for j := 0; j < d; j++ {
			step := opts.LearningRate * (grad[j] + lambda*weights[j]) / float64(n)
			weights[j] -= step
			maxStep = math.Max(maxStep, math.Abs(step))
		}
		biasStep := opts.LearningRate * biasGrad / float64(n)
		bias -= biasStep
		maxStep = math.Max(maxStep, math.Abs(biasStep))
		if maxStep < opts.Tolerance {
			return append(weights, bias), epoch, true
		}
	}
	return append(weights, bias), opts.MaxIterations, false
}

// feature returns column j of a sample, with column d standing for the bias.
func feature(sample []float64, j, d int) float64 {
	if j == d {
		return 1
	}
	return sample[j]
}

func objective(theta []float64, samples [][]float64, labels []float64, lambda float64) float64 {
	d := len(theta) - 1
	var loss float64
	for i, sample := range samples {
		z := dot(theta[:d], sample) + theta[d]
		// log(1+exp(z)) - y*z, stable for large |z|
		loss += softplus(z) - labels[i]*z
	}
	var penalty float64
	for j := 0; j < d; j++ {
		penalty += theta[j] * theta[j]
	}
	return loss + 0.5*lambda*penalty
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// solve returns x with a·x = b using Gaussian elimination with partial
// pivoting. a and b are not modified.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	for i := range a {
		m[i] = append(append(make([]float64, 0, n+1), a[i]...), b[i])
	}
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, ErrSingular
		}
		m[col], m[pivot] = m[pivot], m[col]
		for row := col + 1; row < n; row++ {
			factor := m[row][col] / m[col][col]
			for k := col; k <= n; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}
	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := m[row][n]
		for k := row + 1; k < n; k++ {
			sum -= m[row][k] * x[k]
		}
		x[row] = sum / m[row][row]
	}
	return x, nil
}

func Predict(weights Weights, sample []float64) float64 {
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias)
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func evaluate(weights []float64, bias float64, samples [][]float64, labels []float64) (float64, float64) {
	var loss float64
	var correct int
	for i, sample := range samples {
		prediction := sigmoid(dot(weights, sample) + bias)
		loss += -labels[i]*math.Log(prediction+1e-9) - (1-labels[i])*math.Log(1-prediction+1e-9)
		if (prediction >= 0.5 && labels[i] == 1) || (prediction < 0.5 && labels[i] == 0) {
			correct++
		}
	}
	loss /= float64(len(samples))
	accuracy := float64(correct) / float64(len(samples))
	return loss, accuracy
}
