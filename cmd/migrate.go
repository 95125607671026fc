package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newMigrateTeamCmd creates the 'migrate-team' subcommand.
func newMigrateTeamCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "migrate-team",
		Short: "Migrates the administration page into team_members",
		Long: `Fetches the administration page from the members area, parses the
staff roster, uploads portraits and inserts the rows. With --force the
existing rows are deleted first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			migrator, err := appInstance.TeamMigrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := migrator.Migrate(cmd.Context(), force); err != nil {
				return fmt.Errorf("migrate team members: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete existing team members first")
	return cmd
}

// newMigrateBoardCmd creates the 'migrate-board' subcommand.
func newMigrateBoardCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "migrate-board",
		Short: "Migrates the executive board page into board_members",
		Long: `Fetches the public executive board page, parses the roster, uploads
portraits and inserts the rows. With --force the existing rows are
deleted first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			migrator, err := appInstance.BoardMigrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := migrator.Migrate(cmd.Context(), force); err != nil {
				return fmt.Errorf("migrate board members: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete existing board members first")
	return cmd
}
