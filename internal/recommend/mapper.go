package recommend

import (
	"github.com/ZanzyTHEbar/churn-intelligence/internal/explain"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/risk"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/schema"
)

// LowRiskMessage is the single generic response for low-tier customers
const LowRiskMessage = "No retention action needed; churn risk is low."

// RuleTable maps (tier, feature column with positive contribution) to a
// retention action. Columns without a rule are skipped, not errors.
type RuleTable map[risk.Tier]map[string]string

// Mapper turns a tier and ranked drivers into an ordered action list
type Mapper struct {
	rules RuleTable
}

// NewMapper creates a mapper over a static rule table
func NewMapper(rules RuleTable) *Mapper {
	return &Mapper{rules: rules}
}

// DefaultMapper returns the mapper for the stock telco churn model
func DefaultMapper() *Mapper {
	return NewMapper(defaultRules())
}

// Recommend emits the action for each churn-pushing top driver, in driver
// rank order, de-duplicated preserving first occurrence. Low tier always
// yields the single generic message regardless of drivers.
func (m *Mapper) Recommend(tier risk.Tier, drivers []explain.Driver) []string {
	if tier == risk.TierLow {
		return []string{LowRiskMessage}
	}

	tierRules := m.rules[tier]

	actions := make([]string, 0, len(drivers))
	seen := make(map[string]bool, len(drivers))

	for _, d := range drivers {
		if d.Contribution <= 0 {
			continue
		}
		action, ok := tierRules[d.Feature]
		if !ok || seen[action] {
			continue
		}
		seen[action] = true
		actions = append(actions, action)
	}

	return actions
}

func defaultRules() RuleTable {
	monthToMonth := schema.ColumnName("contractType", "Month-to-month")
	fiberOptic := schema.ColumnName("internetService", "Fiber optic")
	paperless := schema.ColumnName("paperlessBilling", "Yes")

	high := map[string]string{
		"tenureMonths":   "Assign an onboarding specialist; the customer has not yet established loyalty.",
		"monthlyCharges": "Present a tailored discount; the customer is likely sensitive to pricing.",
		"totalCharges":   "Review the account's lifetime spend and offer a loyalty credit.",
		monthToMonth:     "Offer a discounted upgrade to an annual contract; month-to-month plans carry the highest churn risk.",
		fiberOptic:       "Schedule a proactive service-quality check; fiber customers have higher service expectations.",
		paperless:        "Add switching-cost incentives; digital-first customers move between providers easily.",
	}

	medium := map[string]string{
		"tenureMonths":   "Enroll the customer in the early-tenure engagement campaign.",
		"monthlyCharges": "Flag the account for a pricing-plan review at next renewal.",
		"totalCharges":   "Include the account in the next loyalty-reward cycle.",
		monthToMonth:     "Send the annual-contract upgrade offer in the next billing cycle.",
		fiberOptic:       "Include the account in the service-satisfaction survey.",
		paperless:        "Highlight bundled benefits in the next digital statement.",
	}

	return RuleTable{
		risk.TierHigh:   high,
		risk.TierMedium: medium,
	}
}
