package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/explain"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/risk"
)

func TestRecommend_LowTierAlwaysGeneric(t *testing.T) {
	m := DefaultMapper()

	drivers := []explain.Driver{
		{Feature: "contractType=Month-to-month", Contribution: 1.2},
		{Feature: "tenureMonths", Contribution: 0.8},
	}

	actions := m.Recommend(risk.TierLow, drivers)
	assert.Equal(t, []string{LowRiskMessage}, actions)

	// Low tier with no drivers at all behaves the same
	assert.Equal(t, []string{LowRiskMessage}, m.Recommend(risk.TierLow, nil))
}

func TestRecommend_PositiveDriversOnly(t *testing.T) {
	m := DefaultMapper()

	drivers := []explain.Driver{
		{Feature: "contractType=Month-to-month", Contribution: 1.2},
		{Feature: "tenureMonths", Contribution: -0.8}, // pulls away from churn, skipped
		{Feature: "monthlyCharges", Contribution: 0},  // zero is not churn-pushing
	}

	actions := m.Recommend(risk.TierHigh, drivers)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0], "annual contract")
}

func TestRecommend_PreservesDriverRankOrder(t *testing.T) {
	m := DefaultMapper()

	drivers := []explain.Driver{
		{Feature: "monthlyCharges", Contribution: 1.5},
		{Feature: "contractType=Month-to-month", Contribution: 1.2},
		{Feature: "tenureMonths", Contribution: 0.6},
	}

	actions := m.Recommend(risk.TierHigh, drivers)
	require.Len(t, actions, 3)
	assert.Contains(t, actions[0], "discount")
	assert.Contains(t, actions[1], "annual contract")
	assert.Contains(t, actions[2], "onboarding specialist")
}

func TestRecommend_SkipsUnmappedColumns(t *testing.T) {
	m := DefaultMapper()

	drivers := []explain.Driver{
		{Feature: "obscureSignal", Contribution: 2.0},
		{Feature: "tenureMonths", Contribution: 0.5},
	}

	actions := m.Recommend(risk.TierMedium, drivers)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0], "early-tenure")
}

func TestRecommend_DeduplicatesPreservingFirst(t *testing.T) {
	rules := RuleTable{
		risk.TierHigh: {
			"a": "shared action",
			"b": "shared action",
			"c": "distinct action",
		},
	}
	m := NewMapper(rules)

	drivers := []explain.Driver{
		{Feature: "a", Contribution: 1.0},
		{Feature: "b", Contribution: 0.9},
		{Feature: "c", Contribution: 0.8},
	}

	actions := m.Recommend(risk.TierHigh, drivers)
	assert.Equal(t, []string{"shared action", "distinct action"}, actions)
}

func TestRecommend_TierSelectsRuleSet(t *testing.T) {
	m := DefaultMapper()

	drivers := []explain.Driver{
		{Feature: "contractType=Month-to-month", Contribution: 1.2},
	}

	high := m.Recommend(risk.TierHigh, drivers)
	medium := m.Recommend(risk.TierMedium, drivers)

	require.Len(t, high, 1)
	require.Len(t, medium, 1)
	assert.NotEqual(t, high[0], medium[0])
}

func TestRecommend_NoMatchesYieldsEmptyList(t *testing.T) {
	m := DefaultMapper()

	actions := m.Recommend(risk.TierHigh, []explain.Driver{
		{Feature: "tenureMonths", Contribution: -1.0},
	})

	assert.Empty(t, actions)
}
