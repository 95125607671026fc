package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/pipeline"
)

// newCrawlCmd creates the 'crawl' subcommand: authenticate, discover
// events, and archive every non-completed one locally.
func newCrawlCmd() *cobra.Command {
	var (
		eventID string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the members area into the local archive",
		Long: `Authenticates against the members area, discovers all general
assemblies on the index page and downloads each one's record, documents
and images into the local archive. Events with a finalized record are
skipped unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := appInstance.Pipeline().Run(cmd.Context(), pipeline.Options{
				EventID: eventID,
				Force:   force,
			})
			if err != nil {
				return fmt.Errorf("crawl run: %w", err)
			}
			appInstance.Logger().Info("crawl summary",
				zap.String("run_id", summary.RunID),
				zap.Int("succeeded", summary.Succeeded),
				zap.Int("failed", summary.Failed),
				zap.Int("skipped", summary.Skipped),
			)
			fmt.Printf("run %s: %d succeeded, %d failed, %d skipped\n",
				summary.RunID, summary.Succeeded, summary.Failed, summary.Skipped)
			if summary.Failed > 0 {
				return fmt.Errorf("%d events failed", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "process exactly one event id")
	cmd.Flags().BoolVar(&force, "force", false, "re-process events already completed")
	return cmd
}
