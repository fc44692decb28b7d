package cmd

import (
	"apptrack/core/reconcile"
	"apptrack/feature/applications"
	"apptrack/feature/sample"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sampleCmd groups the demo data commands
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Manage demo data",
}

var sampleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Seed demo applications across every pipeline stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		store := applications.NewStore(rt.db)
		engine := reconcile.NewEngine(store, rt.logger)
		gen := sample.NewGenerator(engine, store, rt.logger)

		created, err := gen.Seed(cmd.Context())
		if err != nil {
			return err
		}
		rt.logger.Info("Sample data added", zap.Int("created", created))
		return nil
	},
}

var sampleDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove all demo applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		store := applications.NewStore(rt.db)
		gen := sample.NewGenerator(nil, store, rt.logger)

		deleted, err := gen.Wipe(cmd.Context())
		if err != nil {
			return err
		}
		rt.logger.Info("Sample data removed", zap.Int64("deleted", deleted))
		return nil
	},
}

func init() {
	sampleCmd.AddCommand(sampleAddCmd)
	sampleCmd.AddCommand(sampleDeleteCmd)
	RootCmd.AddCommand(sampleCmd)
}
