package cmd

import (
	"bytes"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"apptrack/core/storage"
	"apptrack/feature/applications"
)

var exportOutput string
var exportUpload bool

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all applications as CSV",
	Long: `Writes every tracked application as CSV to a file or stdout, and can
additionally upload the export to object storage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		store := applications.NewStore(rt.db)
		svc := applications.NewService(store, rt.logger)

		var buf bytes.Buffer
		if err := svc.ExportCSV(cmd.Context(), &buf); err != nil {
			return err
		}

		if exportOutput == "-" {
			if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
				return err
			}
		} else {
			if err := os.WriteFile(exportOutput, buf.Bytes(), 0o644); err != nil {
				return err
			}
			rt.logger.Info("Export written", zap.String("file", exportOutput))
		}

		if exportUpload {
			if !rt.cfg.Storage.Enabled {
				rt.logger.Warn("Upload requested but storage is disabled")
				return nil
			}
			client, err := storage.NewClient(rt.cfg.Storage)
			if err != nil {
				return err
			}
			objectName := "exports/applications.csv"
			_, err = client.PutObject(cmd.Context(), rt.cfg.Storage.Bucket, objectName,
				bytes.NewReader(buf.Bytes()), int64(buf.Len()),
				minio.PutObjectOptions{ContentType: "text/csv"})
			if err != nil {
				return err
			}
			rt.logger.Info("Export uploaded",
				zap.String("bucket", rt.cfg.Storage.Bucket),
				zap.String("object", objectName))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "applications.csv", "output file, or '-' for stdout")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "also upload the CSV to object storage")
	RootCmd.AddCommand(exportCmd)
}
