package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// InsertScore persists one scoring outcome
func (r *Repository) InsertScore(record *ScoreRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO score_history (id, customer_hash, probability, tier, top_driver, top_contribution, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.CustomerHash, record.Probability, record.Tier,
		record.TopDriver, record.TopContribution, record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert score record: %w", err)
	}

	return nil
}

// Summary aggregates history rows created at or after the given start
func (r *Repository) Summary(since time.Time) (*HistorySummary, error) {
	var count int64
	var avgProbability sql.NullFloat64

	err := r.db.QueryRow(`
		SELECT COUNT(*), AVG(probability)
		FROM score_history
		WHERE created_at >= ?
	`, since).Scan(&count, &avgProbability)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate score history: %w", err)
	}

	summary := &HistorySummary{
		PeriodStart: since,
		Count:       count,
		TierCounts:  make(map[string]int64),
	}
	if avgProbability.Valid {
		summary.AverageProbability = avgProbability.Float64
	}

	rows, err := r.db.Query(`
		SELECT tier, COUNT(*)
		FROM score_history
		WHERE created_at >= ?
		GROUP BY tier
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count tiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tier string
		var tierCount int64
		if err := rows.Scan(&tier, &tierCount); err != nil {
			return nil, fmt.Errorf("failed to scan tier count: %w", err)
		}
		summary.TierCounts[tier] = tierCount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tier counts: %w", err)
	}

	return summary, nil
}

// RecentScores returns the most recent records for one customer hash
func (r *Repository) RecentScores(customerHash string, limit int) ([]ScoreRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, customer_hash, probability, tier, top_driver, top_contribution, created_at
		FROM score_history
		WHERE customer_hash = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, customerHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	records := []ScoreRecord{}
	for rows.Next() {
		var rec ScoreRecord
		if err := rows.Scan(&rec.ID, &rec.CustomerHash, &rec.Probability, &rec.Tier,
			&rec.TopDriver, &rec.TopContribution, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate score records: %w", err)
	}

	return records, nil
}

// DeleteCustomer removes all history rows for one customer hash
func (r *Repository) DeleteCustomer(customerHash string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM score_history WHERE customer_hash = ?`, customerHash)
	if err != nil {
		return 0, fmt.Errorf("failed to delete customer history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	return affected, nil
}

// DeleteOlderThan removes history rows past the retention window
func (r *Repository) DeleteOlderThan(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result, err := r.db.Exec(`DELETE FROM score_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	return affected, nil
}
