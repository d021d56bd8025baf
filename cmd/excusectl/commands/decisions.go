package commands

import (
	"errors"
	"fmt"

	"github.com/benvon/excuse-deck/internal/database"
	"github.com/benvon/excuse-deck/internal/store"
	"github.com/spf13/cobra"
)

// NewDecisionsCmd creates the decisions command group
func NewDecisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Inspect or clear a decision log",
	}
	cmd.AddCommand(newDecisionsListCmd(), newDecisionsClearCmd(), newDecisionsStatsCmd())
	return cmd
}

func newDecisionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List decisions in the order they were made",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			s, closeStore, err := e.decisionStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open decision store: %w", err)
			}
			defer closeStore()

			decisions, err := store.Bind(s, e.owner).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(decisions) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No decisions yet")
				return err
			}
			renderDecisions(cmd.OutOrStdout(), decisions)
			return nil
		},
	}
}

func newDecisionsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every decision of the owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			s, closeStore, err := e.decisionStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open decision store: %w", err)
			}
			defer closeStore()

			if err := store.Bind(s, e.owner).Clear(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared decisions of %s\n", e.owner)
			return err
		},
	}
}

func newDecisionsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the decision counters kept by the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if e.cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for decision statistics")
			}
			db, err := database.New(e.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			stats, err := database.NewDecisionStatsRepository(db).Get(cmd.Context(), e.owner)
			if errors.Is(err, database.ErrStatsNotFound) {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No decisions counted yet")
				return err
			}
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}
