package cmd

import (
	"apptrack/feature/applications/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// initDBCmd represents the init-db command
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create or migrate the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		err = rt.db.WithContext(cmd.Context()).AutoMigrate(
			&models.Application{},
			&models.ProcessedEvent{},
		)
		if err != nil {
			return err
		}
		rt.logger.Info("Database schema ready",
			zap.String("driver", rt.cfg.Database.Driver),
			zap.String("database", rt.cfg.Database.Name))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(initDBCmd)
}
