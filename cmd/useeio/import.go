package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"useeio/internal/blob"
	"useeio/internal/datastore"
)

func (a *app) newImportCmd() *cobra.Command {
	var pattern, compression string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Copy model files from a local directory into the configured data store",
		Long: `Copy model files from a local directory into the configured data store.
Other encodings of each copied matrix (.bin, .bin.zst, .bin.lz4, .csv) already
in the store are deleted so the copied one is the one served.`,
		Example: `  useeio import ./data --driver sqlite
  useeio import ./data --pattern 'USEEIOv2.0/**' --compression zstd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := datastore.ParseCompression(compression)
			if err != nil {
				return err
			}
			src, err := blob.NewFilesystem(args[0])
			if err != nil {
				return err
			}
			dst, err := blob.Open(cmd.Context(), a.cfg.Data)
			if err != nil {
				return fmt.Errorf("open data store: %w", err)
			}
			report, err := datastore.Import(cmd.Context(), src, dst, datastore.ImportOptions{
				Pattern:     pattern,
				Compression: c,
				Concurrency: concurrency,
				Logger:      a.logger,
			})
			if err != nil {
				return err
			}
			a.logger.Info("import finished", "driver", dst.Driver(), "copied", len(report.Copied), "skipped", len(report.Skipped), "removed", len(report.Removed))
			for _, k := range report.Copied {
				fmt.Fprintln(a.stdout, k)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "**", "Doublestar pattern selecting keys to copy")
	cmd.Flags().StringVar(&compression, "compression", "", "Re-encode binary matrices: none, zstd or lz4")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel copies")
	return cmd
}
