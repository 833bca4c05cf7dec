package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/model"
)

func testModel(t *testing.T) *model.Model {
	t.Helper()

	m, err := model.New(
		[]string{"tenureMonths", "monthlyCharges", "contractType=Month-to-month", "paperlessBilling=Yes"},
		map[string]float64{
			"tenureMonths":                -0.8,
			"monthlyCharges":              0.5,
			"contractType=Month-to-month": 1.2,
			"paperlessBilling=Yes":        0.3,
		}, 0)
	require.NoError(t, err)

	return m
}

func TestTopDrivers_RanksByAbsoluteContribution(t *testing.T) {
	m := testModel(t)

	// contributions: -0.8*-1=0.8, 0.5*0.2=0.1, 1.2*1=1.2, 0.3*1=0.3
	vector := []float64{-1, 0.2, 1, 1}

	drivers, err := TopDrivers(vector, m, 4)
	require.NoError(t, err)
	require.Len(t, drivers, 4)

	assert.Equal(t, "contractType=Month-to-month", drivers[0].Feature)
	assert.InDelta(t, 1.2, drivers[0].Contribution, 1e-12)
	assert.Equal(t, "tenureMonths", drivers[1].Feature)
	assert.InDelta(t, 0.8, drivers[1].Contribution, 1e-12)
	assert.Equal(t, "paperlessBilling=Yes", drivers[2].Feature)
	assert.Equal(t, "monthlyCharges", drivers[3].Feature)
}

func TestTopDrivers_NegativeContributionsRankByMagnitude(t *testing.T) {
	m := testModel(t)

	// contributions: -0.8*2=-1.6, 0.5*0.2=0.1, 0, 0
	vector := []float64{2, 0.2, 0, 0}

	drivers, err := TopDrivers(vector, m, 2)
	require.NoError(t, err)
	require.Len(t, drivers, 2)

	assert.Equal(t, "tenureMonths", drivers[0].Feature)
	assert.InDelta(t, -1.6, drivers[0].Contribution, 1e-12)
	assert.Equal(t, "monthlyCharges", drivers[1].Feature)
}

func TestTopDrivers_TiesKeepColumnOrder(t *testing.T) {
	m, err := model.New(
		[]string{"a", "b", "c"},
		map[string]float64{"a": 0.5, "b": -0.5, "c": 0.5}, 0)
	require.NoError(t, err)

	// all three contribute magnitude 0.5
	drivers, err := TopDrivers([]float64{1, 1, 1}, m, 3)
	require.NoError(t, err)

	assert.Equal(t, "a", drivers[0].Feature)
	assert.Equal(t, "b", drivers[1].Feature)
	assert.Equal(t, "c", drivers[2].Feature)
}

func TestTopDrivers_TruncatesToTopN(t *testing.T) {
	m := testModel(t)

	drivers, err := TopDrivers([]float64{-1, 0.2, 1, 1}, m, 2)
	require.NoError(t, err)
	require.Len(t, drivers, 2)
	assert.Equal(t, "contractType=Month-to-month", drivers[0].Feature)
	assert.Equal(t, "tenureMonths", drivers[1].Feature)
}

func TestTopDrivers_RejectsOutOfRangeTopN(t *testing.T) {
	m := testModel(t)
	vector := []float64{0, 0, 0, 0}

	for _, topN := range []int{0, -1, 5} {
		drivers, err := TopDrivers(vector, m, topN)
		require.Error(t, err)
		assert.Nil(t, drivers)
		assert.Contains(t, err.Error(), "VALIDATION_ERROR")
	}
}

func TestTopDrivers_DimensionMismatch(t *testing.T) {
	m := testModel(t)

	drivers, err := TopDrivers([]float64{1, 2}, m, 1)
	require.Error(t, err)
	assert.Nil(t, drivers)
	assert.Contains(t, err.Error(), "DIMENSION_MISMATCH")
}

func TestSeverityBands(t *testing.T) {
	tests := []struct {
		contribution float64
		want         Severity
	}{
		{0.0, SeverityLow},
		{0.39, SeverityLow},
		{-0.39, SeverityLow},
		{0.4, SeverityMedium},
		{-0.7, SeverityMedium},
		{0.99, SeverityMedium},
		{1.0, SeverityHigh},
		{-2.3, SeverityHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, severityOf(tt.contribution), "contribution %v", tt.contribution)
	}
}
