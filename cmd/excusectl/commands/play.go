package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benvon/excuse-deck/internal/deck"
	"github.com/benvon/excuse-deck/internal/models"
	"github.com/benvon/excuse-deck/internal/store"
	"github.com/benvon/excuse-deck/internal/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const celebrationMessage = "All events processed. Your calendar is clear!"

// NewPlayCmd creates the play command
func NewPlayCmd() *cobra.Command {
	var (
		accessToken  string
		refreshToken string
		fast         bool
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Swipe through your events in the terminal",
		Long: `Play the deck with single-letter commands:
  l  swipe left (decline)      u  swipe up (maybe, leaning no)
  r  swipe right (attend)      n  dismiss the front excuse card
  c  keep going (confirmation) x  back out (confirmation)
  d  close the confirmation    reset  reload after finishing
  q  quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			ctx := withTokens(cmd.Context(), accessToken, refreshToken)

			s, closeStore, err := e.decisionStore(ctx)
			if err != nil {
				return fmt.Errorf("failed to open decision store: %w", err)
			}
			defer closeStore()

			delay := e.cfg.ThinkingDelay
			if fast {
				delay = 0
			}
			m := deck.New(e.source(), store.Bind(s, e.owner), e.excuses(),
				deck.WithLogger(e.logger),
				deck.WithThinkingDelay(delay),
			)
			defer m.Close()

			return runPlay(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), m)
		},
	}

	cmd.Flags().StringVar(&accessToken, "access-token", "", "Google access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Google refresh token")
	cmd.Flags().BoolVar(&fast, "fast", false, "skip the thinking delay")
	return cmd
}

// runPlay drives m with one command per input line until q or end of input
func runPlay(ctx context.Context, in io.Reader, out io.Writer, m *deck.Machine) error {
	if _, err := m.Load(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		snap := m.Snapshot(deck.DefaultVisibleCards)
		prompt(out, snap)

		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if input == "q" || input == "quit" {
			return nil
		}

		if err := playCommand(ctx, out, m, snap, input); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}
	}
}

func prompt(out io.Writer, snap deck.Snapshot) {
	switch {
	case snap.AllProcessed:
		fmt.Fprintln(out, celebrationMessage)
		fmt.Fprint(out, "[reset] start over, [q]uit > ")
	case snap.Total == 0:
		fmt.Fprintln(out, "No events to decide.")
		fmt.Fprint(out, "[q]uit > ")
	case snap.Confirmation != nil:
		fmt.Fprintf(out, "%s (%d/%d)\n", snap.Confirmation.Message, snap.Confirmation.Attempt, snap.Confirmation.MaxAttempts)
		fmt.Fprint(out, "[c]ontinue, [x] back out, [d]ismiss > ")
	default:
		renderDeck(out, snap)
		if snap.Cards[0].Kind == deck.KindEvent {
			fmt.Fprint(out, "[l]eft, [u]p, [r]ight, [q]uit > ")
		} else {
			fmt.Fprint(out, "[n]ext, [q]uit > ")
		}
	}
}

func playCommand(ctx context.Context, out io.Writer, m *deck.Machine, snap deck.Snapshot, input string) error {
	var (
		res *deck.Resolution
		err error
	)

	switch input {
	case "l", "u", "r":
		if len(snap.Cards) == 0 || snap.Cards[0].Event == nil {
			return deck.ErrNotFront
		}
		dir := map[string]models.Direction{"l": models.DirectionLeft, "u": models.DirectionUp, "r": models.DirectionRight}[input]
		res, err = m.CommitSwipe(snap.Cards[0].Event.ID, dir)
	case "c", "x", "d":
		action := map[string]string{"c": validation.ConfirmContinue, "x": validation.ConfirmCancel, "d": validation.ConfirmDismiss}[input]
		res, err = m.Confirm(action)
	case "n":
		err = m.DismissFront(uuid.Nil)
	case "reset":
		_, err = m.Reset(ctx)
	case "":
		return nil
	default:
		return fmt.Errorf("unknown command %q", input)
	}
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	fmt.Fprintln(out, "Thinking of an excuse...")
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	d, err := res.Wait(waitCtx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		// the card is in place even when the log append failed
		fmt.Fprintf(out, "! decision not saved: %v\n", err)
	}
	if d.Excuse != "" {
		fmt.Fprintf(out, "%s: %s\n", d.Decision.Label(), d.Excuse)
	}
	return nil
}
