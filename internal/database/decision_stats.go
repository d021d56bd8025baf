package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
)

// ErrStatsNotFound is returned when no decision was counted for an owner
var ErrStatsNotFound = errors.New("decision statistics not found")

// DecisionStatsRepository keeps per-owner decision counters in decision_stats
type DecisionStatsRepository struct {
	db *DB
}

// NewDecisionStatsRepository creates a new decision statistics repository
func NewDecisionStatsRepository(db *DB) *DecisionStatsRepository {
	return &DecisionStatsRepository{db: db}
}

// Get returns the counters of owner
func (r *DecisionStatsRepository) Get(ctx context.Context, owner string) (*models.DecisionStats, error) {
	stats := &models.DecisionStats{}
	var lastDecidedAt sql.NullTime

	query := `
		SELECT owner, declined, maybe, maybe_declined, last_decided_at, updated_at
		FROM decision_stats
		WHERE owner = $1
	`
	err := r.db.QueryRowContext(ctx, query, owner).Scan(
		&stats.Owner,
		&stats.Declined,
		&stats.Maybe,
		&stats.MaybeDeclined,
		&lastDecidedAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get decision statistics: %w", err)
	}

	if lastDecidedAt.Valid {
		t := lastDecidedAt.Time.UTC()
		stats.LastDecidedAt = &t
	}
	return stats, nil
}

// Record counts one decision for owner, creating the row on first use
func (r *DecisionStatsRepository) Record(ctx context.Context, owner string, decision models.Decision, decidedAt time.Time) error {
	var s models.DecisionStats
	s.Add(decision)
	if s.Total() == 0 {
		return fmt.Errorf("unknown decision %q", decision)
	}

	query := `
		INSERT INTO decision_stats (owner, declined, maybe, maybe_declined, last_decided_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner) DO UPDATE SET
			declined = decision_stats.declined + EXCLUDED.declined,
			maybe = decision_stats.maybe + EXCLUDED.maybe,
			maybe_declined = decision_stats.maybe_declined + EXCLUDED.maybe_declined,
			last_decided_at = GREATEST(decision_stats.last_decided_at, EXCLUDED.last_decided_at),
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		owner,
		s.Declined,
		s.Maybe,
		s.MaybeDeclined,
		decidedAt.UTC(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// Reset drops the counters of owner
func (r *DecisionStatsRepository) Reset(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM decision_stats WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("failed to reset decision statistics: %w", err)
	}
	return nil
}
