package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newListCmd creates the 'list' subcommand: a dry run that prints the
// discovered events and their completion status without side effects.
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists discovered events and their completion status",
		Long: `Authenticates, fetches the index page and prints each discovered
event with whether it has already been archived. Nothing is written.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			statuses, err := appInstance.Pipeline().Discover(cmd.Context())
			if err != nil {
				return fmt.Errorf("discover events: %w", err)
			}
			for _, status := range statuses {
				mark := " "
				if status.Completed {
					mark = "x"
				}
				fmt.Printf("[%s] %-30s %s\n", mark, status.ID, status.Title)
			}
			fmt.Printf("%d events discovered\n", len(statuses))
			return nil
		},
	}
}
