package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// LogisticConfig controls multinomial logistic regression fitting
type LogisticConfig struct {
	C         float64 // Inverse L2 regularization strength
	MaxIter   int     // LBFGS major iterations
	Tolerance float64 // Stop once the infinity norm of the gradient falls below this
}

// DefaultLogisticConfig returns C=1, 400 iterations and a 1e-4 gradient tolerance
func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{
		C:         1.0,
		MaxIter:   400,
		Tolerance: 1e-4,
	}
}

// FitStats describes how fitting ended
type FitStats struct {
	Iterations int
	Converged  bool
	Loss       float64
	Status     string
}

// LogisticRegression is a fitted multinomial linear classifier
type LogisticRegression struct {
	Coef      [][]float64 `json:"coef"`      // [class][feature]
	Intercept []float64   `json:"intercept"` // [class]
}

// FitLogisticRegression minimizes the mean multinomial log-loss plus
// ||W||^2 / (2*C*n) with LBFGS. The intercept is not penalized.
func FitLogisticRegression(X [][]float64, y []int, nClasses int, cfg LogisticConfig) (*LogisticRegression, FitStats, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, FitStats{}, fmt.Errorf("invalid training data: %d rows, %d labels", len(X), len(y))
	}
	if cfg.MaxIter <= 0 || cfg.C <= 0 || cfg.Tolerance < 0 {
		return nil, FitStats{}, fmt.Errorf("invalid logistic config: %+v", cfg)
	}
	for i, l := range y {
		if l < 0 || l >= nClasses {
			return nil, FitStats{}, fmt.Errorf("label %d out of range at index %d", l, i)
		}
	}

	obj := &logLoss{X: X, y: y, nClasses: nClasses, nFeatures: len(X[0]), penalty: 1 / (cfg.C * float64(len(X)))}
	problem := optimize.Problem{
		Func: func(theta []float64) float64 { return obj.eval(theta, nil) },
		Grad: func(grad, theta []float64) { obj.eval(theta, grad) },
	}
	settings := &optimize.Settings{
		MajorIterations:   cfg.MaxIter,
		GradientThreshold: cfg.Tolerance,
	}

	result, err := optimize.Minimize(problem, make([]float64, obj.size()), settings, &optimize.LBFGS{})
	if result == nil || result.X == nil {
		return nil, FitStats{}, fmt.Errorf("optimizer failed: %w", err)
	}

	stats := FitStats{
		Iterations: result.Stats.MajorIterations,
		Loss:       result.F,
		Status:     result.Status.String(),
		Converged:  err == nil && (result.Status == optimize.GradientThreshold || result.Status == optimize.FunctionConvergence),
	}
	return obj.unpack(result.X), stats, nil
}

// logLoss is the penalized objective over a flat parameter vector laid out
// class by class as [w_1 .. w_d, b].
type logLoss struct {
	X         [][]float64
	y         []int
	nClasses  int
	nFeatures int
	penalty   float64
}

func (l *logLoss) size() int {
	return l.nClasses * (l.nFeatures + 1)
}

func (l *logLoss) unpack(theta []float64) *LogisticRegression {
	m := &LogisticRegression{
		Coef:      make([][]float64, l.nClasses),
		Intercept: make([]float64, l.nClasses),
	}
	stride := l.nFeatures + 1
	for k := 0; k < l.nClasses; k++ {
		m.Coef[k] = append([]float64(nil), theta[k*stride:k*stride+l.nFeatures]...)
		m.Intercept[k] = theta[k*stride+l.nFeatures]
	}
	return m
}

// eval returns the objective and, when grad is non-nil, writes its gradient
func (l *logLoss) eval(theta, grad []float64) float64 {
	m := l.unpack(theta)
	n := float64(len(l.X))
	stride := l.nFeatures + 1

	loss := 0.0
	for k, w := range m.Coef {
		for j, v := range w {
			loss += 0.5 * l.penalty * v * v
			if grad != nil {
				grad[k*stride+j] = l.penalty * v
			}
		}
		if grad != nil {
			grad[k*stride+l.nFeatures] = 0
		}
	}

	for i, x := range l.X {
		p := m.Proba(x)
		loss -= math.Log(math.Max(p[l.y[i]], 1e-300)) / n
		if grad == nil {
			continue
		}
		for k := 0; k < l.nClasses; k++ {
			d := p[k]
			if k == l.y[i] {
				d -= 1
			}
			d /= n
			for j, v := range x {
				grad[k*stride+j] += d * v
			}
			grad[k*stride+l.nFeatures] += d
		}
	}
	return loss
}

// Proba returns softmax class probabilities for a scaled feature vector
func (m *LogisticRegression) Proba(x []float64) []float64 {
	z := make([]float64, len(m.Coef))
	for k, w := range m.Coef {
		s := m.Intercept[k]
		for j, v := range x {
			s += w[j] * v
		}
		z[k] = s
	}
	return softmax(z)
}

// softmax subtracts the max logit before exponentiating
func softmax(z []float64) []float64 {
	maxZ := math.Inf(-1)
	for _, v := range z {
		maxZ = math.Max(maxZ, v)
	}
	out := make([]float64, len(z))
	sum := 0.0
	for k, v := range z {
		out[k] = math.Exp(v - maxZ)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}

// argmax returns the first index of the largest value
func argmax(p []float64) int {
	best := 0
	for k := 1; k < len(p); k++ {
		if p[k] > p[best] {
			best = k
		}
	}
	return best
}
