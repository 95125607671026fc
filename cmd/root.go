// Package cmd defines and implements the CLI commands for the febiscrawler
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/app"
	"github.com/timoparlison/febiscrawler/internal/config"
	"github.com/timoparlison/febiscrawler/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newAppFn is the application factory, replaceable in tests.
var newAppFn = func(cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(cfg, logger)
}

// newRootCmd creates and configures the root command. Services are built
// in PersistentPreRunE so every subcommand finds a ready App in its
// context, and torn down in PersistentPostRun on all exit paths.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "febiscrawler",
		Short: "Migrates the FEBIS members area into the new site backend",
		Long: `febiscrawler crawls the password-protected FEBIS members area,
archives each general assembly locally (records, documents, images), and
publishes the archive to Supabase storage and database. Completed events
are skipped on re-runs unless forced.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newAppFn(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env and .env are read either way)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newMigrateTeamCmd())
	cmd.AddCommand(newMigrateBoardCmd())

	return cmd
}

// resolveApp fetches the App placed in the context by the root command.
func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
