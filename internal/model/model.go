package model

import (
	"math"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/errors"
)

// Model is a logistic-regression-style classifier: a fixed weight per
// expanded feature column plus an intercept, linear in log-odds space.
// Loaded once at startup and read-only thereafter, so concurrent scoring
// requests share it without synchronization.
type Model struct {
	columns   []string
	weights   []float64
	intercept float64
}

// New builds a model from an ordered column list and a weight mapping.
// Columns absent from the mapping get weight zero (regularized out at
// training time); weights naming a column the schema never produces are a
// contract violation.
func New(columns []string, weights map[string]float64, intercept float64) (*Model, error) {
	if len(columns) == 0 {
		return nil, errors.NewModelLoadError("model declares no feature columns", nil)
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if col == "" {
			return nil, errors.NewModelLoadError("model declares an empty column name", nil)
		}
		if _, dup := index[col]; dup {
			return nil, errors.NewModelLoadError("model declares duplicate column "+col, nil)
		}
		index[col] = i
	}

	aligned := make([]float64, len(columns))
	for name, w := range weights {
		i, ok := index[name]
		if !ok {
			return nil, errors.NewModelLoadError("model weight references unknown column "+name, nil)
		}
		aligned[i] = w
	}

	return &Model{columns: columns, weights: aligned, intercept: intercept}, nil
}

// Predict computes sigmoid(intercept + Σ weight_i * vector_i).
//
// The length check runs before any arithmetic: silent truncation or padding
// would corrupt every downstream tier, driver, and recommendation.
func (m *Model) Predict(vector []float64) (float64, error) {
	if len(vector) != len(m.weights) {
		return 0, errors.NewDimensionMismatchError(len(vector), len(m.weights))
	}

	logOdds := m.intercept
	for i, v := range vector {
		logOdds += m.weights[i] * v
	}

	return sigmoid(logOdds), nil
}

// Baseline returns the intercept-only probability, the reference point a
// driver's sign moves the prediction away from.
func (m *Model) Baseline() float64 {
	return sigmoid(m.intercept)
}

// Columns returns the expanded feature column order the model was fitted on
func (m *Model) Columns() []string {
	return m.columns
}

// Weights returns the column-aligned weight vector
func (m *Model) Weights() []float64 {
	return m.weights
}

// Intercept returns the model intercept in log-odds space
func (m *Model) Intercept() float64 {
	return m.intercept
}

// Width returns the feature vector length the model expects
func (m *Model) Width() int {
	return len(m.weights)
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
