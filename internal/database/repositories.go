package database

import (
	"context"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
)

// DecisionRepositoryInterface defines the decision log operations
type DecisionRepositoryInterface interface {
	Append(ctx context.Context, owner string, d models.EventDecision) error
	List(ctx context.Context, owner string) ([]models.EventDecision, error)
	Clear(ctx context.Context, owner string) error
}

// DecisionStatsRepositoryInterface defines the decision counter operations
type DecisionStatsRepositoryInterface interface {
	Get(ctx context.Context, owner string) (*models.DecisionStats, error)
	Record(ctx context.Context, owner string, decision models.Decision, decidedAt time.Time) error
	Reset(ctx context.Context, owner string) error
}

// Ensure concrete types implement the interfaces
var (
	_ DecisionRepositoryInterface      = (*DecisionRepository)(nil)
	_ DecisionStatsRepositoryInterface = (*DecisionStatsRepository)(nil)
)
