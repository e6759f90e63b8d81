package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genomekit/geoflow-cli/internal/store"
)

// BatchOptions configures a multi-series run.
type BatchOptions struct {
	// OutputRoot receives one subdirectory per series.
	OutputRoot            string
	DownloadSupplementary bool
	FilterColumn          string
	FilterPattern         string
	CaseSensitive         bool
	// Workers bounds concurrent series; values below 2 run sequentially.
	Workers int
}

// BatchResult is the tagged per-series outcome.
type BatchResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"` // "success" or "error"
	Error         string `json:"error,omitempty"`
	SampleCount   int    `json:"sample_count,omitempty"`
	FilteredCount int    `json:"filtered_count,omitempty"`
	RenamedCount  int    `json:"renamed_count,omitempty"`
	OutputDir     string `json:"output_directory,omitempty"`
}

// BatchReport aggregates a run: one result per requested series in input
// order, plus the tally.
type BatchReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Results    []BatchResult `json:"results"`
}

// Result returns the entry for a series id.
func (r *BatchReport) Result(id string) (BatchResult, bool) {
	for _, res := range r.Results {
		if res.ID == id {
			return res, true
		}
	}
	return BatchResult{}, false
}

// RunBatch processes each series independently: any failure inside one
// series becomes its error result and the batch moves on. Each series
// owns the subdirectory named after it, so workers never contend on
// writes. Results land at their input position regardless of completion
// order. Cancelling ctx stops the batch; cancelling one series (its
// derived context) leaves the others running.
func (r *Runner) RunBatch(ctx context.Context, ids []string, opts BatchOptions) (*BatchReport, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no series accessions given")
	}
	if err := store.EnsureDir(opts.OutputRoot); err != nil {
		return nil, fmt.Errorf("create batch output root: %w", err)
	}

	report := &BatchReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   make([]BatchResult, len(ids)),
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			// Each series gets its own cancellable context so one can be
			// torn down without touching its neighbors.
			seriesCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			report.Results[i] = r.runOne(seriesCtx, id, opts)
		}(i, id)
	}
	wg.Wait()
	report.FinishedAt = time.Now().UTC()

	for _, res := range report.Results {
		if res.Status == "success" {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	r.Logger.Info("batch finished",
		"run_id", report.RunID,
		"succeeded", report.Succeeded,
		"failed", report.Failed)

	if err := writeBatchReport(filepath.Join(opts.OutputRoot, "batch_report.json"), report); err != nil {
		r.Logger.Error("write batch report", "error", err)
	}
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, id string, opts BatchOptions) BatchResult {
	res, err := r.AnalyzeSeries(ctx, id, Options{
		OutputDir:             filepath.Join(opts.OutputRoot, id),
		DownloadSupplementary: opts.DownloadSupplementary,
		FilterColumn:          opts.FilterColumn,
		FilterPattern:         opts.FilterPattern,
		CaseSensitive:         opts.CaseSensitive,
	})
	if err != nil {
		r.Logger.Error("series failed", "series", id, "error", err)
		return BatchResult{ID: id, Status: "error", Error: err.Error()}
	}
	out := BatchResult{
		ID:          id,
		Status:      "success",
		SampleCount: res.Table.Len(),
		OutputDir:   res.OutputDir,
	}
	if res.Filtered != nil {
		out.FilteredCount = res.Filtered.Len()
	}
	if res.Rename != nil {
		out.RenamedCount = len(res.Rename.Renamed)
	}
	return out
}

func writeBatchReport(path string, report *BatchReport) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch report: %w", err)
	}
	return store.WriteAtomic(path, b)
}
