package features

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/churn-intelligence/internal/errors"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/schema"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/types"
)

func testSchema(t *testing.T) *schema.FeatureSchema {
	t.Helper()

	s, err := schema.New([]schema.Feature{
		{Name: "tenureMonths", Kind: schema.KindNumeric, Mean: 32, Scale: 24},
		{Name: "monthlyCharges", Kind: schema.KindNumeric, Mean: 65, Scale: 30},
		{Name: "contractType", Kind: schema.KindCategorical, Levels: []string{"Month-to-month", "One year", "Two year"}},
	})
	require.NoError(t, err)

	return s
}

func TestBuild_ScalesAndEncodes(t *testing.T) {
	s := testSchema(t)

	record := types.CustomerRecord{
		"tenureMonths":   8.0,
		"monthlyCharges": 95.0,
		"contractType":   "One year",
	}

	vector, err := Build(record, s)
	require.NoError(t, err)
	require.Len(t, vector, s.Width())

	assert.InDelta(t, -1.0, vector[0], 1e-12) // (8-32)/24
	assert.InDelta(t, 1.0, vector[1], 1e-12)  // (95-65)/30
	assert.Equal(t, []float64{0, 1, 0}, vector[2:])
}

func TestBuild_MissingFeature(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name   string
		record types.CustomerRecord
	}{
		{
			name: "absent key",
			record: types.CustomerRecord{
				"tenureMonths": 8.0,
				"contractType": "One year",
			},
		},
		{
			name: "explicit null",
			record: types.CustomerRecord{
				"tenureMonths":   8.0,
				"monthlyCharges": nil,
				"contractType":   "One year",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vector, err := Build(tt.record, s)
			require.Error(t, err)
			assert.Nil(t, vector)

			appErr, ok := err.(*apperrors.AppError)
			require.True(t, ok)
			assert.Contains(t, appErr.Error(), "MISSING_FEATURE")
			assert.Contains(t, appErr.Error(), "monthlyCharges")
		})
	}
}

func TestBuild_UnknownCategory(t *testing.T) {
	s := testSchema(t)

	record := types.CustomerRecord{
		"tenureMonths":   8.0,
		"monthlyCharges": 95.0,
		"contractType":   "Lifetime",
	}

	vector, err := Build(record, s)
	require.Error(t, err)
	assert.Nil(t, vector)
	assert.Contains(t, err.Error(), "Lifetime")
	assert.Contains(t, err.Error(), "contractType")
}

func TestBuild_NumericCoercions(t *testing.T) {
	s, err := schema.New([]schema.Feature{
		{Name: "value", Kind: schema.KindNumeric, Mean: 0, Scale: 1},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  interface{}
		want float64
	}{
		{"float64", 3.5, 3.5},
		{"int", 7, 7},
		{"int64", int64(9), 9},
		{"json.Number", json.Number("2.25"), 2.25},
		{"bool true", true, 1},
		{"bool false", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vector, err := Build(types.CustomerRecord{"value": tt.raw}, s)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, vector[0], 1e-12)
		})
	}
}

func TestBuild_TypeMismatches(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name   string
		record types.CustomerRecord
	}{
		{
			name: "string for numeric",
			record: types.CustomerRecord{
				"tenureMonths":   "eight",
				"monthlyCharges": 95.0,
				"contractType":   "One year",
			},
		},
		{
			name: "number for categorical",
			record: types.CustomerRecord{
				"tenureMonths":   8.0,
				"monthlyCharges": 95.0,
				"contractType":   42.0,
			},
		},
		{
			name: "unparseable json.Number",
			record: types.CustomerRecord{
				"tenureMonths":   json.Number("not-a-number"),
				"monthlyCharges": 95.0,
				"contractType":   "One year",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vector, err := Build(tt.record, s)
			require.Error(t, err)
			assert.Nil(t, vector)
			assert.Contains(t, err.Error(), "VALIDATION_ERROR")
		})
	}
}

func TestBuild_IgnoresExtraAttributes(t *testing.T) {
	s := testSchema(t)

	record := types.CustomerRecord{
		"tenureMonths":   32.0,
		"monthlyCharges": 65.0,
		"contractType":   "Two year",
		"customerName":   "ignored",
	}

	vector, err := Build(record, s)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, vector)
}
