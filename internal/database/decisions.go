package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/benvon/excuse-deck/internal/models"
)

// DecisionRepository stores decision logs in the event_decisions table
type DecisionRepository struct {
	db *DB
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Append inserts d at the end of owner's log
func (r *DecisionRepository) Append(ctx context.Context, owner string, d models.EventDecision) error {
	eventJSON, err := json.Marshal(d.Event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	query := `
		INSERT INTO event_decisions (owner, event_id, event, decision, comment, excuse, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		owner,
		d.EventID,
		eventJSON,
		string(d.Decision),
		d.Comment,
		d.Excuse,
		d.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

// List returns owner's log ordered by insertion
func (r *DecisionRepository) List(ctx context.Context, owner string) ([]models.EventDecision, error) {
	query := `
		SELECT event_id, event, decision, comment, excuse, decided_at
		FROM event_decisions
		WHERE owner = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	decisions := []models.EventDecision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return decisions, nil
}

// Clear deletes owner's log
func (r *DecisionRepository) Clear(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM event_decisions WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("failed to clear decisions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (models.EventDecision, error) {
	var (
		d         models.EventDecision
		eventJSON []byte
		decision  string
	)
	if err := row.Scan(&d.EventID, &eventJSON, &decision, &d.Comment, &d.Excuse, &d.Timestamp); err != nil {
		return models.EventDecision{}, fmt.Errorf("failed to scan decision: %w", err)
	}
	if err := json.Unmarshal(eventJSON, &d.Event); err != nil {
		return models.EventDecision{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	d.Decision = models.Decision(decision)
	d.Timestamp = d.Timestamp.UTC()
	return d, nil
}
