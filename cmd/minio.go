package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"moodwave/server"
	"moodwave/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect and manage the MinIO media bucket",
	Long:  `List objects in the MinIO media bucket, show bucket statistics, or delete every object under a prefix.`,
	Example: `  # list all objects
  moodwave minio

  # list uploaded audio
  moodwave minio -p audio/

  # bucket statistics
  moodwave minio -s

  # delete every cover
  moodwave minio -d -p covers/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		fmt.Printf("Connecting to MinIO at %s, bucket %s...\n", cfg.MinioEndpoint, cfg.MinioBucket)
		store, err := storage.NewMinioStore(ctx, server.MinioConfig(cfg))
		if err != nil {
			return err
		}

		if minioDelete {
			if minioPrefix == "" {
				return errors.New("--delete requires --prefix")
			}
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d objects under %s\n", n, minioPrefix)
			return nil
		}

		objects, stats, err := store.List(ctx, minioPrefix)
		if err != nil {
			return err
		}

		if !minioStats {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED\tTYPE")
			for _, obj := range objects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					obj.Key, storage.FormatSize(obj.Size),
					obj.LastModified.Format(time.RFC3339), obj.ContentType)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		fmt.Printf("\n%d objects, %s", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf(", last modified %s", stats.LastModified.Format(time.RFC3339))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only objects whose key starts with this prefix")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print bucket statistics only")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object under --prefix")
}
