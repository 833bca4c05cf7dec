package risk

import (
	"fmt"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/errors"
)

// Tier is the discrete churn risk category presented to the caller
type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// Default tier boundaries, overridable via configuration
const (
	DefaultLowThreshold  = 0.33
	DefaultHighThreshold = 0.67
)

// Thresholds partitions [0,1] into three contiguous half-open intervals:
// Low = [0, t1), Medium = [t1, t2), High = [t2, 1]. A boundary value
// belongs to the interval starting at that boundary.
type Thresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// DefaultThresholds returns the standard tier partition
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultLowThreshold, High: DefaultHighThreshold}
}

// Validate rejects a degenerate partition. This is a configuration-time
// check; Classify assumes it already passed.
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.Low > 1 || t.High < 0 || t.High > 1 {
		return errors.NewInvalidArgumentError(
			"risk thresholds must lie in [0,1]",
			fmt.Sprintf("low=%v high=%v", t.Low, t.High))
	}
	if t.Low >= t.High {
		return errors.NewInvalidArgumentError(
			"low risk threshold must be strictly below high threshold",
			fmt.Sprintf("low=%v high=%v", t.Low, t.High))
	}
	return nil
}

// Classify maps a calibrated probability to its tier
func (t Thresholds) Classify(probability float64) Tier {
	switch {
	case probability < t.Low:
		return TierLow
	case probability < t.High:
		return TierMedium
	default:
		return TierHigh
	}
}
