package cmd

import (
	"errors"

	"apptrack/feature/applications"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run database consistency checks",
	Long: `Checks event-key uniqueness, ledger entries pointing at missing
applications, statuses outside the known table, and records without an
event key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		store := applications.NewStore(rt.db)
		report, err := store.Verify(cmd.Context())
		if err != nil {
			return err
		}

		rt.logger.Info("Verification report",
			zap.Int64("applications", report.Applications),
			zap.Int64("processed_events", report.ProcessedEvents),
			zap.Int64("linked_events", report.LinkedApplication),
			zap.Int64("duplicate_event_keys", report.DuplicateKeys),
			zap.Int64("dangling_ledger_entries", report.DanglingLedger),
			zap.Int64("invalid_statuses", report.InvalidStatuses),
			zap.Int64("missing_event_keys", report.MissingEventKeys))

		if report.DuplicateKeys > 0 || report.DanglingLedger > 0 ||
			report.InvalidStatuses > 0 || report.MissingEventKeys > 0 {
			return errors.New("verification found inconsistencies")
		}
		rt.logger.Info("Database is consistent")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(verifyCmd)
}
