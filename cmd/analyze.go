package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genomekit/geoflow-cli/internal/pipeline"
)

var (
	anaOutputDir       string
	anaNoSupplementary bool
	anaFilterPattern   string
	anaFilterColumn    string
	anaCaseSensitive   bool
	anaColumns         []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <gse-id>",
	Short: "Run the complete workflow for one GEO series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		runner := newRunner(logger)

		outputDir := anaOutputDir
		if outputDir == "" {
			outputDir = cfg.OutputDir
		}
		filterColumn := anaFilterColumn
		if filterColumn == "" {
			filterColumn = cfg.FilterColumn
		}

		res, err := runner.AnalyzeSeries(cmd.Context(), args[0], pipeline.Options{
			OutputDir:             outputDir,
			DownloadSupplementary: !anaNoSupplementary,
			Columns:               anaColumns,
			FilterColumn:          filterColumn,
			FilterPattern:         anaFilterPattern,
			CaseSensitive:         anaCaseSensitive,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Analyzed %s: %d samples", res.ID, res.Table.Len())
		if res.Filtered != nil {
			fmt.Printf(", %d after filter", res.Filtered.Len())
		}
		if res.Rename != nil {
			fmt.Printf(", %d files renamed", len(res.Rename.Renamed))
		}
		fmt.Printf("\n✓ Results in %s\n", res.OutputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputDir, "output-dir", "o", "", "output directory (default from config)")
	analyzeCmd.Flags().BoolVar(&anaNoSupplementary, "no-supplementary", false, "skip downloading supplementary files")
	analyzeCmd.Flags().StringVar(&anaFilterPattern, "filter-pattern", "", "pattern to filter samples (regex supported)")
	analyzeCmd.Flags().StringVar(&anaFilterColumn, "filter-column", "", "column to use for filtering (default: title)")
	analyzeCmd.Flags().BoolVar(&anaCaseSensitive, "case-sensitive", false, "match the filter pattern case-sensitively")
	analyzeCmd.Flags().StringSliceVar(&anaColumns, "columns", nil, "specific metadata columns to extract")
}
