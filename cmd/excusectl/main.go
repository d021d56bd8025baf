package main

import (
	"fmt"
	"os"

	"github.com/benvon/excuse-deck/cmd/excusectl/commands"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "excusectl",
		Short:         "Command line companion for the excuse deck",
		Long:          "Generate excuses, inspect calendar events and decision logs, and play the deck in a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	commands.AddPersistentFlags(rootCmd)

	rootCmd.AddCommand(commands.NewExcuseCmd())
	rootCmd.AddCommand(commands.NewEventsCmd())
	rootCmd.AddCommand(commands.NewDecisionsCmd())
	rootCmd.AddCommand(commands.NewPlayCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
