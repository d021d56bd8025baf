package commands

import (
	"fmt"
	"strings"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/spf13/cobra"
)

// NewExcuseCmd creates the excuse command
func NewExcuseCmd() *cobra.Command {
	var (
		title     string
		eventType string
		local     bool
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "excuse [context...]",
		Short: "Generate an excuse",
		Long: `Generate an excuse for a free-form context, or for an event with --title and --type.
Remote failures fall back to the local phrase tables unless --strict is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			svc := e.excuses()

			eventContext := strings.TrimSpace(strings.Join(args, " "))
			if title != "" {
				eventContext = models.ExcuseContext(title, eventType)
			}

			var text string
			switch {
			case local || !svc.HasRemote():
				text = svc.Local()
			case strict:
				text, err = svc.Remote(cmd.Context(), eventContext)
				if err != nil {
					return fmt.Errorf("failed to generate excuse: %w", err)
				}
			default:
				text = svc.ExcuseForContext(cmd.Context(), eventContext)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "event title")
	cmd.Flags().StringVar(&eventType, "type", "", "event type (default Event)")
	cmd.Flags().BoolVar(&local, "local", false, "only use the local phrase tables")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of falling back when the remote generator fails")
	return cmd
}
