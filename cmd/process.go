package cmd

import (
	"apptrack/core/reconcile"
	"apptrack/core/storage"
	"apptrack/feature/applications"
	"apptrack/feature/ingest"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Fetch and reconcile job-application emails",
	Long: `Runs one ingestion pass: fetches messages matching the configured Gmail
query, classifies each one, and reconciles the resulting events into the
application records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		logg := rt.logger
		defer logg.Sync()

		store := applications.NewStore(rt.db)
		engine := reconcile.NewEngine(store, logg)
		source := ingest.NewGmailSource(rt.cfg.Gmail)
		classifier := ingest.NewLLMClassifier(rt.cfg.Classifier, logg)

		var archive storage.Client
		if rt.cfg.Storage.Enabled {
			archive, err = storage.NewClient(rt.cfg.Storage)
			if err != nil {
				return err
			}
			exists, err := archive.BucketExists(cmd.Context(), rt.cfg.Storage.Bucket)
			if err != nil {
				return err
			}
			if !exists {
				err = archive.MakeBucket(cmd.Context(), rt.cfg.Storage.Bucket, minio.MakeBucketOptions{Region: rt.cfg.Storage.Region})
				if err != nil {
					return err
				}
				logg.Info("Archive bucket created", zap.String("bucket", rt.cfg.Storage.Bucket))
			}
		}

		processor := ingest.NewProcessor(source, classifier, engine, store,
			archive, rt.cfg.Storage.Bucket, rt.cfg.Ingest, logg)

		summary, err := processor.Run(cmd.Context())
		if err != nil {
			return err
		}

		logg.Info("Done",
			zap.Int("fetched", summary.Fetched),
			zap.Int("created", summary.Created),
			zap.Int("updated", summary.Updated),
			zap.Int("merged", summary.Merged),
			zap.Int("discarded", summary.Discarded),
			zap.Int("failed", summary.Failed))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(processCmd)
}
