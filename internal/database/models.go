package database

import (
	"time"

	"github.com/google/uuid"
)

// ScoreRecord is one persisted scoring outcome
type ScoreRecord struct {
	ID              string    `json:"id" db:"id"`
	CustomerHash    string    `json:"customer_hash" db:"customer_hash"`
	Probability     float64   `json:"probability" db:"probability"`
	Tier            string    `json:"tier" db:"tier"`
	TopDriver       string    `json:"top_driver" db:"top_driver"`
	TopContribution float64   `json:"top_contribution" db:"top_contribution"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// NewScoreRecord creates a score record with a generated ID
func NewScoreRecord(customerHash string, probability float64, tier, topDriver string, topContribution float64) *ScoreRecord {
	return &ScoreRecord{
		ID:              uuid.New().String(),
		CustomerHash:    customerHash,
		Probability:     probability,
		Tier:            tier,
		TopDriver:       topDriver,
		TopContribution: topContribution,
		CreatedAt:       time.Now(),
	}
}

// HistorySummary aggregates scoring history over a period
type HistorySummary struct {
	Period             string           `json:"period"`
	PeriodStart        time.Time        `json:"period_start"`
	Count              int64            `json:"count"`
	AverageProbability float64          `json:"average_probability"`
	TierCounts         map[string]int64 `json:"tier_counts"`
}
