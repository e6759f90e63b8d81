// Package pipeline wires the fetch, select, filter, correlate, and
// summarize stages into the single-series workflow and the batch driver.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/genomekit/geoflow-cli/internal/correlate"
	"github.com/genomekit/geoflow-cli/internal/geo"
	"github.com/genomekit/geoflow-cli/internal/metadata"
	"github.com/genomekit/geoflow-cli/internal/store"
	"github.com/genomekit/geoflow-cli/internal/summary"
)

// Runner executes dataset workflows against an injected client and
// logger. It carries the column conventions the pipeline defaults to;
// commands override them per run through Options.
type Runner struct {
	Client           *geo.Client
	Logger           *slog.Logger
	IdentifierColumn string
	SampleTypeColumn string
}

// Options configures one dataset run.
type Options struct {
	// OutputDir receives every artifact of this dataset.
	OutputDir string
	// DownloadSupplementary controls whether supplementary files are
	// fetched (and therefore whether correlation can rename anything).
	DownloadSupplementary bool
	// Columns restricts the exported metadata; empty means all columns.
	Columns []string
	// FilterColumn/FilterPattern select a sample subset; empty pattern
	// disables filtering.
	FilterColumn  string
	FilterPattern string
	CaseSensitive bool
}

// AnalysisResult collects everything one dataset run produced.
type AnalysisResult struct {
	ID           string
	Series       *geo.Series
	Table        *metadata.Table
	ColumnReport metadata.ColumnReport
	Filtered     *metadata.Table
	Downloaded   []string
	Summary      *summary.DatasetSummary
	Rename       *correlate.Result
	OutputDir    string
}

// AnalyzeSeries runs the complete workflow for one accession: fetch,
// column selection, metadata export, supplementary download, optional
// filter, summary, and file correlation. Structural failures (fetch, dir
// creation, export) propagate; per-row and filter problems degrade to
// warnings so one dirty field never sinks the dataset.
func (r *Runner) AnalyzeSeries(ctx context.Context, id string, opts Options) (*AnalysisResult, error) {
	log := r.Logger.With("series", id)
	if err := store.EnsureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	series, err := r.Client.FetchSeries(ctx, id)
	if err != nil {
		return nil, err
	}
	id = series.ID
	log.Info("fetched series",
		"samples", series.Samples.Len(),
		"platforms", len(series.Platforms),
		"supplementary_files", len(series.SupplementaryFiles))

	report, table := metadata.Select(series.Samples, opts.Columns)
	if len(report.Missing) > 0 {
		log.Warn("requested columns missing from metadata", "missing", report.Missing)
	}
	if len(opts.Columns) > 0 && len(report.Found) == 0 {
		log.Warn("none of the requested columns found; keeping all columns")
	}

	res := &AnalysisResult{
		ID:           id,
		Series:       series,
		Table:        table,
		ColumnReport: report,
		OutputDir:    opts.OutputDir,
	}

	metadataPath := filepath.Join(opts.OutputDir, id+"_metadata.tsv")
	if err := writeTableTSV(metadataPath, table); err != nil {
		return nil, err
	}
	log.Info("metadata exported", "path", metadataPath)

	if opts.DownloadSupplementary {
		res.Downloaded = r.downloadSupplementary(ctx, log, series, opts.OutputDir)
	}

	if opts.FilterPattern != "" {
		col := opts.FilterColumn
		if col == "" {
			col = "title"
		}
		filtered, err := metadata.Filter(table, col, opts.FilterPattern, opts.CaseSensitive)
		if err != nil {
			// Filter problems are logged and dropped; the dataset still
			// completes with the unfiltered table.
			log.Warn("sample filter failed", "column", col, "pattern", opts.FilterPattern, "error", err)
		} else {
			log.Info("filtered samples", "from", table.Len(), "to", filtered.Len())
			if filtered.Len() == 0 {
				log.Warn("no samples matched filter", "column", col, "pattern", opts.FilterPattern)
			} else {
				res.Filtered = filtered
				filteredPath := filepath.Join(opts.OutputDir, id+"_filtered_metadata.tsv")
				if err := writeTableTSV(filteredPath, filtered); err != nil {
					return nil, err
				}
			}
		}
	}

	res.Summary = summary.Build(series, table, r.SampleTypeColumn)
	for _, vc := range res.Summary.SampleTypeDistribution {
		log.Info("sample type", "value", vc.Value, "count", vc.Count)
	}
	summaryJSON, err := res.Summary.JSON()
	if err != nil {
		return nil, err
	}
	summaryPath := filepath.Join(opts.OutputDir, id+"_summary.json")
	if err := store.WriteAtomic(summaryPath, summaryJSON); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	log.Info("summary exported", "path", summaryPath)

	// Correlate against whichever table the filter produced; an unfiltered
	// run correlates every sample.
	corrTable := table
	if res.Filtered != nil {
		corrTable = res.Filtered
	}
	rename, err := correlate.Correlate(log, corrTable, correlate.Options{
		IdentifierColumn: r.IdentifierColumn,
		SourceDir:        opts.OutputDir,
		OutputDir:        filepath.Join(opts.OutputDir, "renamed_files"),
	})
	if err != nil {
		return nil, err
	}
	res.Rename = rename
	log.Info("correlation finished",
		"renamed", len(rename.Renamed),
		"skipped_no_url", rename.SkippedNoURL,
		"skipped_missing_file", rename.SkippedMissingFile,
		"row_errors", len(rename.RowErrors))

	annotationPath := filepath.Join(opts.OutputDir, id+"_sample_annotation.tsv")
	var buf bytes.Buffer
	if err := correlate.WriteAnnotationTSV(&buf, rename); err != nil {
		return nil, err
	}
	if err := store.WriteAtomic(annotationPath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write annotation: %w", err)
	}
	return res, nil
}

// DownloadSeries fetches a series, exports its metadata, and optionally
// pulls supplementary files, without the analysis stages.
func (r *Runner) DownloadSeries(ctx context.Context, id string, outputDir string, withSupplementary bool) (*geo.Series, []string, error) {
	log := r.Logger.With("series", id)
	if err := store.EnsureDir(outputDir); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	series, err := r.Client.FetchSeries(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	metadataPath := filepath.Join(outputDir, series.ID+"_metadata.tsv")
	if err := writeTableTSV(metadataPath, series.Samples); err != nil {
		return nil, nil, err
	}
	var downloaded []string
	if withSupplementary {
		downloaded = r.downloadSupplementary(ctx, log, series, outputDir)
	}
	return series, downloaded, nil
}

// downloadSupplementary fetches every distinct supplementary URL the
// series references: the series-level files plus the first resolvable
// per-sample reference. Individual download failures are logged and
// skipped.
func (r *Runner) downloadSupplementary(ctx context.Context, log *slog.Logger, series *geo.Series, destDir string) []string {
	urls := append([]string(nil), series.SupplementaryFiles...)
	suppCols := correlate.SupplementaryColumns(series.Samples)
	for _, row := range series.Samples.Rows() {
		for _, c := range suppCols {
			if v := row.Value(c); v.Present && strings.TrimSpace(v.Str) != "" {
				urls = append(urls, strings.TrimSpace(v.Str))
				break
			}
		}
	}
	seen := map[string]struct{}{}
	var downloaded []string
	for _, u := range urls {
		name := geo.LeafName(u)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		dest := filepath.Join(destDir, name)
		if err := r.Client.FetchFile(ctx, u, dest); err != nil {
			log.Error("supplementary download failed", "url", u, "error", err)
			continue
		}
		downloaded = append(downloaded, name)
	}
	log.Info("supplementary downloads finished", "requested", len(seen), "downloaded", len(downloaded))
	return downloaded
}

func writeTableTSV(path string, t *metadata.Table) error {
	var buf bytes.Buffer
	if err := metadata.WriteTSV(&buf, t); err != nil {
		return err
	}
	if err := store.WriteAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
