package pipeline_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/genomekit/geoflow-cli/internal/pipeline"
)

func TestRunBatchIsolatesFailures(t *testing.T) {
	srv := geoServer(t)
	runner := testRunner(t, srv.URL)
	root := t.TempDir()

	report, err := runner.RunBatch(context.Background(), []string{"GSE101", "GSE102"}, pipeline.BatchOptions{
		OutputRoot:            root,
		DownloadSupplementary: true,
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	if report.Succeeded != 1 || report.Failed != 1 {
		t.Fatalf("tally = %d/%d", report.Succeeded, report.Failed)
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %d", len(report.Results))
	}
	// Input order preserved regardless of completion order.
	if report.Results[0].ID != "GSE101" || report.Results[1].ID != "GSE102" {
		t.Fatalf("order = %v, %v", report.Results[0].ID, report.Results[1].ID)
	}

	ok, found := report.Result("GSE101")
	if !found || ok.Status != "success" || ok.SampleCount != 2 {
		t.Fatalf("GSE101 result = %+v", ok)
	}
	bad, found := report.Result("GSE102")
	if !found || bad.Status != "error" || bad.Error == "" {
		t.Fatalf("GSE102 result = %+v", bad)
	}

	// Successful series has its own subdirectory with artifacts.
	if _, err := os.Stat(filepath.Join(root, "GSE101", "GSE101_summary.json")); err != nil {
		t.Fatalf("GSE101 artifacts missing: %v", err)
	}
}

func TestRunBatchWritesReport(t *testing.T) {
	srv := geoServer(t)
	runner := testRunner(t, srv.URL)
	root := t.TempDir()

	report, err := runner.RunBatch(context.Background(), []string{"GSE101"}, pipeline.BatchOptions{
		OutputRoot: root,
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if report.RunID == "" {
		t.Fatal("run id missing")
	}

	b, err := os.ReadFile(filepath.Join(root, "batch_report.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded pipeline.BatchReport
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if decoded.RunID != report.RunID || decoded.Succeeded != 1 {
		t.Fatalf("report = %+v", decoded)
	}
}

func TestRunBatchConcurrentWorkers(t *testing.T) {
	srv := geoServer(t)
	runner := testRunner(t, srv.URL)

	ids := []string{"GSE101", "GSE102", "GSE103", "GSE104"}
	report, err := runner.RunBatch(context.Background(), ids, pipeline.BatchOptions{
		OutputRoot: t.TempDir(),
		Workers:    3,
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 3 {
		t.Fatalf("tally = %d/%d", report.Succeeded, report.Failed)
	}
	for i, id := range ids {
		if report.Results[i].ID != id {
			t.Fatalf("result %d = %q, want %q", i, report.Results[i].ID, id)
		}
	}
}

func TestRunBatchRejectsEmptyInput(t *testing.T) {
	srv := geoServer(t)
	runner := testRunner(t, srv.URL)
	if _, err := runner.RunBatch(context.Background(), nil, pipeline.BatchOptions{OutputRoot: t.TempDir()}); err == nil {
		t.Fatal("expected error for empty id list")
	}
}
