package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// zeroVarianceTol is the relative spread below which a feature counts as constant
const zeroVarianceTol = 1e-12

// StandardScaler centers each feature to zero mean and unit variance
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler learns per-feature mean and population standard deviation.
// A feature with (numerically) zero variance gets scale 1 so it is only centered.
func FitStandardScaler(X [][]float64) (*StandardScaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("cannot fit scaler on empty data")
	}
	n := len(X[0])
	mean := make([]float64, n)
	scale := make([]float64, n)

	col := make([]float64, len(X))
	for j := 0; j < n; j++ {
		for i, row := range X {
			if len(row) != n {
				return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), n)
			}
			col[i] = row[j]
		}
		m, std := stat.PopMeanStdDev(col, nil)
		if std <= zeroVarianceTol*math.Max(1, math.Abs(m)) {
			std = 1
		}
		mean[j] = m
		scale[j] = std
	}

	return &StandardScaler{Mean: mean, Scale: scale}, nil
}

// Transform scales a single feature vector
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll scales every row of X
func (s *StandardScaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}
