package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	dlOutputDir     string
	dlSupplementary bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <gse-id>",
	Short: "Download a GEO series and export its metadata, without analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		runner := newRunner(logger)

		outputDir := dlOutputDir
		if outputDir == "" {
			outputDir = cfg.OutputDir
		}
		series, downloaded, err := runner.DownloadSeries(cmd.Context(), args[0], outputDir, dlSupplementary)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Downloaded %s: %d samples", series.ID, series.Samples.Len())
		if dlSupplementary {
			fmt.Printf(", %d supplementary files", len(downloaded))
		}
		fmt.Printf("\n✓ Results in %s\n", outputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVarP(&dlOutputDir, "output-dir", "o", "", "output directory (default from config)")
	downloadCmd.Flags().BoolVar(&dlSupplementary, "supplementary", false, "also download supplementary files")
}
