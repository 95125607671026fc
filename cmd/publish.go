package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timoparlison/febiscrawler/internal/publish"
)

// newPublishCmd creates the 'publish' subcommand: mirror archived events
// to remote storage and database.
func newPublishCmd() *cobra.Command {
	var (
		eventID string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publishes archived events to the remote backend",
		Long: `Uploads each completed event's documents and images to storage and
inserts its rows into the database. Events that already exist remotely
are skipped unless --force is given, in which case they are deleted and
fully recreated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			publisher, err := appInstance.Publisher(cmd.Context())
			if err != nil {
				return err
			}

			if eventID != "" {
				err := publisher.PublishEvent(cmd.Context(), eventID, force)
				if errors.Is(err, publish.ErrAlreadyPublished) {
					fmt.Printf("event %s already published, use --force to replace it\n", eventID)
					return nil
				}
				if err != nil {
					return fmt.Errorf("publish event %s: %w", eventID, err)
				}
				fmt.Printf("event %s published\n", eventID)
				return nil
			}

			summary, err := publisher.PublishAll(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("publish run: %w", err)
			}
			fmt.Println(publish.Describe(summary))
			if summary.Failed > 0 {
				return fmt.Errorf("%d events failed to publish", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "publish exactly one event id")
	cmd.Flags().BoolVar(&force, "force", false, "replace events that already exist remotely")
	return cmd
}
