package cmd

import (
	"apptrack/feature/applications"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateStatusesCmd represents the migrate-statuses command
var migrateStatusesCmd = &cobra.Command{
	Use:   "migrate-statuses",
	Short: "Rewrite legacy status labels to the current table",
	Long: `Records written before the pipeline grew to seven stages may carry
retired labels like "In Progress" or "Withdrawn". This rewrites them to
their current equivalents in one transaction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		store := applications.NewStore(rt.db)
		migrated, err := store.MigrateLegacyStatuses(cmd.Context())
		if err != nil {
			return err
		}
		rt.logger.Info("Status migration complete", zap.Int64("migrated", migrated))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateStatusesCmd)
}
