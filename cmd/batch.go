package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genomekit/geoflow-cli/internal/pipeline"
)

var (
	batchOutputDir       string
	batchNoSupplementary bool
	batchFilterPattern   string
	batchFilterColumn    string
	batchCaseSensitive   bool
	batchWorkers         int
	batchQuiet           bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <gse-id...>",
	Short: "Process multiple GEO series, isolating failures per series",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		runner := newRunner(logger)

		outputDir := batchOutputDir
		if outputDir == "" {
			outputDir = cfg.OutputDir
		}
		filterColumn := batchFilterColumn
		if filterColumn == "" {
			filterColumn = cfg.FilterColumn
		}
		workers := batchWorkers
		if workers <= 0 {
			workers = cfg.BatchWorkers
		}

		if !batchQuiet {
			fmt.Printf("Processing %d series...\n", len(args))
		}
		report, err := runner.RunBatch(cmd.Context(), args, pipeline.BatchOptions{
			OutputRoot:            outputDir,
			DownloadSupplementary: !batchNoSupplementary,
			FilterColumn:          filterColumn,
			FilterPattern:         batchFilterPattern,
			CaseSensitive:         batchCaseSensitive,
			Workers:               workers,
		})
		if err != nil {
			return err
		}

		if !batchQuiet {
			total := len(report.Results)
			for i, res := range report.Results {
				switch res.Status {
				case "success":
					fmt.Printf("[%d/%d] ✓ %s: %d samples, %d files renamed\n", i+1, total, res.ID, res.SampleCount, res.RenamedCount)
				default:
					fmt.Printf("[%d/%d] ✗ %s: %s\n", i+1, total, res.ID, res.Error)
				}
			}
		}
		fmt.Printf("✓ Batch complete: %d succeeded, %d failed (run %s)\n", report.Succeeded, report.Failed, report.RunID)
		fmt.Printf("✓ Results in %s\n", outputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchOutputDir, "output-dir", "o", "", "output directory (default from config)")
	batchCmd.Flags().BoolVar(&batchNoSupplementary, "no-supplementary", false, "skip downloading supplementary files")
	batchCmd.Flags().StringVar(&batchFilterPattern, "filter-pattern", "", "pattern to filter samples (regex supported)")
	batchCmd.Flags().StringVar(&batchFilterColumn, "filter-column", "", "column to use for filtering (default: title)")
	batchCmd.Flags().BoolVar(&batchCaseSensitive, "case-sensitive", false, "match the filter pattern case-sensitively")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "concurrent series (default from config; 1 = sequential)")
	batchCmd.Flags().BoolVar(&batchQuiet, "quiet", false, "suppress per-series progress output")
}
