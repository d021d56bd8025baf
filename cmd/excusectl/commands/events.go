package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benvon/excuse-deck/internal/calendar"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/spf13/cobra"
)

// NewEventsCmd creates the events command
func NewEventsCmd() *cobra.Command {
	var (
		accessToken  string
		refreshToken string
		icsFile      string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming events from the configured calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			var events []models.CalendarEvent
			if icsFile != "" {
				f, err := os.Open(icsFile)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", icsFile, err)
				}
				defer func() { _ = f.Close() }()

				now := time.Now()
				events, err = calendar.ParseICS(f, now, now.Add(calendar.Window))
				if err != nil {
					return err
				}
			} else {
				ctx := withTokens(cmd.Context(), accessToken, refreshToken)
				events, err = e.source().Events(ctx)
				if errors.Is(err, calendar.ErrNotAuthenticated) {
					return fmt.Errorf("%w: pass --access-token or --refresh-token", err)
				}
				if err != nil {
					return err
				}
			}

			if len(events) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No upcoming events")
				return err
			}
			renderEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().StringVar(&accessToken, "access-token", "", "Google access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Google refresh token")
	cmd.Flags().StringVar(&icsFile, "ics-file", "", "read events from a local .ics file instead")
	return cmd
}
