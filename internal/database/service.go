package database

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/types"
)

// ErrUnknownPeriod reports a summary period outside the supported set.
// Callers use it to tell a bad period apart from a storage failure.
var ErrUnknownPeriod = errors.New("unknown summary period")

// HistoryService records scoring outcomes and answers summary queries.
// Persistence is best-effort: a history failure is logged and never
// surfaced to the scoring caller.
type HistoryService struct {
	repo *Repository
}

// NewHistoryService creates a new history service
func NewHistoryService(repo *Repository) *HistoryService {
	return &HistoryService{repo: repo}
}

// HashCustomer derives the anonymized identifier stored in place of the raw
// record. Go's JSON encoder sorts map keys, so the hash is stable across
// attribute orderings.
func HashCustomer(record types.CustomerRecord) string {
	canonical, err := json.Marshal(record)
	if err != nil {
		// Marshal of a decoded JSON map cannot fail; keep the signature simple
		return fmt.Sprintf("%x", sha256.Sum256([]byte(fmt.Sprintf("%v", record))))
	}
	return fmt.Sprintf("%x", sha256.Sum256(canonical))
}

// RecordScore persists one scoring outcome
func (s *HistoryService) RecordScore(record types.CustomerRecord, probability float64, tier, topDriver string, topContribution float64) error {
	rec := NewScoreRecord(HashCustomer(record), probability, tier, topDriver, topContribution)
	return s.repo.InsertScore(rec)
}

// Summary aggregates history for a named period: daily, weekly, monthly, or all_time
func (s *HistoryService) Summary(period string) (*HistorySummary, error) {
	since, err := periodStart(period)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Summary(since)
	if err != nil {
		return nil, err
	}
	summary.Period = period

	return summary, nil
}

// CustomerHistory returns recent records for one customer hash
func (s *HistoryService) CustomerHistory(customerHash string, limit int) ([]ScoreRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.RecentScores(customerHash, limit)
}

// DeleteCustomer removes one customer's stored history
func (s *HistoryService) DeleteCustomer(customerHash string) (int64, error) {
	return s.repo.DeleteCustomer(customerHash)
}

// StartRetentionLoop deletes rows past the retention window once per day.
// Runs until the process exits.
func (s *HistoryService) StartRetentionLoop(retentionDays int) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			deleted, err := s.repo.DeleteOlderThan(retentionDays)
			if err != nil {
				slog.Error("History retention cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("History retention cleanup completed", "deleted_rows", deleted, "retention_days", retentionDays)
			}
		}
	}()
}

func periodStart(period string) (time.Time, error) {
	now := time.Now()

	switch period {
	case "daily":
		return now.AddDate(0, 0, -1), nil
	case "weekly":
		return now.AddDate(0, 0, -7), nil
	case "monthly":
		return now.AddDate(0, -1, 0), nil
	case "all_time":
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("%w %q", ErrUnknownPeriod, period)
	}
}
