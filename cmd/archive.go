package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"apptrack/core/config"
	"apptrack/core/logger"
	"apptrack/core/storage"
)

// archiveClient builds the storage client for the archive commands, which
// need configuration and a logger but no database.
func archiveClient() (*config.Config, *zap.Logger, storage.Client, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	if !cfg.Storage.Enabled {
		return nil, nil, nil, fmt.Errorf("object storage is disabled; set STORAGE_ENABLED=true")
	}
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logg, client, nil
}

// archiveCmd groups the raw-message archive commands
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the raw-message archive",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived raw messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, client, err := archiveClient()
		if err != nil {
			return err
		}
		defer logg.Sync()

		objects := client.ListObjects(cmd.Context(), cfg.Storage.Bucket, minio.ListObjectsOptions{
			Prefix:    cfg.Ingest.ArchivePrefix,
			Recursive: true,
		})
		count := 0
		for obj := range objects {
			if obj.Err != nil {
				return obj.Err
			}
			fmt.Printf("%s\t%d\t%s\n", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"))
			count++
		}
		logg.Info("Archive listed", zap.Int("objects", count))
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <message-id>",
	Short: "Print one archived raw message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, client, err := archiveClient()
		if err != nil {
			return err
		}
		defer logg.Sync()

		objectName := cfg.Ingest.ArchivePrefix + args[0] + ".json"
		obj, err := client.GetObject(cmd.Context(), cfg.Storage.Bucket, objectName, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		defer obj.Close()

		_, err = io.Copy(os.Stdout, obj)
		return err
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <message-id>",
	Short: "Remove one archived raw message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, client, err := archiveClient()
		if err != nil {
			return err
		}
		defer logg.Sync()

		objectName := cfg.Ingest.ArchivePrefix + args[0] + ".json"
		err = client.RemoveObject(cmd.Context(), cfg.Storage.Bucket, objectName, minio.RemoveObjectOptions{})
		if err != nil {
			return err
		}
		logg.Info("Archive object removed", zap.String("object", objectName))
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveDeleteCmd)
	RootCmd.AddCommand(archiveCmd)
}
