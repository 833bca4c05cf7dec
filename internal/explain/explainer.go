package explain

import (
	"fmt"
	"math"
	"sort"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/errors"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/model"
)

// Severity buckets a driver's absolute log-odds contribution for display
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// severity band boundaries in absolute log-odds contribution
const (
	mediumSeverityFloor = 0.4
	highSeverityFloor   = 1.0
)

// Driver is one feature column's signed additive effect on the pre-sigmoid
// log-odds score. Positive pushes toward churn, negative away from it.
type Driver struct {
	Feature      string   `json:"feature"`
	Contribution float64  `json:"contribution"`
	Severity     Severity `json:"severity"`
}

// TopDrivers ranks feature columns by |weight_i * vector_i| descending and
// returns the first topN, ties broken by schema column order so the result
// is stable and deterministic.
//
// This is a local linear attribution, valid only because the model is
// linear in its inputs before the sigmoid. It is not a model-agnostic
// explainer and must be replaced, not reused, if a non-linear model is ever
// substituted.
func TopDrivers(vector []float64, m *model.Model, topN int) ([]Driver, error) {
	if len(vector) != m.Width() {
		return nil, errors.NewDimensionMismatchError(len(vector), m.Width())
	}
	if topN < 1 || topN > m.Width() {
		return nil, errors.NewInvalidArgumentError(
			"topN must be between 1 and the model feature count",
			fmt.Sprintf("topN=%d features=%d", topN, m.Width()))
	}

	columns := m.Columns()
	weights := m.Weights()

	drivers := make([]Driver, m.Width())
	for i := range vector {
		contribution := weights[i] * vector[i]
		drivers[i] = Driver{
			Feature:      columns[i],
			Contribution: contribution,
			Severity:     severityOf(contribution),
		}
	}

	// SliceStable keeps schema order for equal magnitudes
	sort.SliceStable(drivers, func(a, b int) bool {
		return math.Abs(drivers[a].Contribution) > math.Abs(drivers[b].Contribution)
	})

	return drivers[:topN], nil
}

func severityOf(contribution float64) Severity {
	abs := math.Abs(contribution)
	switch {
	case abs >= highSeverityFloor:
		return SeverityHigh
	case abs >= mediumSeverityFloor:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
