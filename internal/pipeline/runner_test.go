package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/genomekit/geoflow-cli/internal/geo"
	"github.com/genomekit/geoflow-cli/internal/pipeline"
)

// geoServer fakes the GEO FTP tree: one good series (GSE101) with two
// samples and two supplementary files, everything else 404.
func geoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "GSE101_family.soft.gz"):
			io.WriteString(w, softBody(r.Host))
		case r.URL.Path == "/suppl/a.txt.gz":
			io.WriteString(w, "bytes-of-a")
		case r.URL.Path == "/suppl/b.txt.gz":
			io.WriteString(w, "bytes-of-b")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func softBody(host string) string {
	return "^SERIES = GSE101\n" +
		"!Series_title = Liver histone profiling\n" +
		"!Series_summary = Test fixture series\n" +
		"^PLATFORM = GPL1\n" +
		"!Platform_title = Test platform\n" +
		"!Platform_technology = high-throughput sequencing\n" +
		"!Platform_organism = Homo sapiens\n" +
		"^SAMPLE = GSM1\n" +
		"!Sample_title = H3K4me3 ChIP\n" +
		"!Sample_geo_accession = GSM1\n" +
		"!Sample_source_name_ch1 = liver tissue\n" +
		"!Sample_supplementary_file_1 = http://" + host + "/suppl/a.txt.gz\n" +
		"^SAMPLE = GSM2\n" +
		"!Sample_title = Input control\n" +
		"!Sample_geo_accession = GSM2\n" +
		"!Sample_source_name_ch1 =\n" +
		"!Sample_supplementary_file_1 = http://" + host + "/suppl/b.txt.gz\n"
}

func testRunner(t *testing.T, baseURL string) *pipeline.Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &pipeline.Runner{
		Client:           geo.NewClientWithBaseURL(logger, 5*time.Second, 2, time.Millisecond, 5*time.Millisecond, baseURL),
		Logger:           logger,
		IdentifierColumn: "source_name_ch1",
		SampleTypeColumn: "source_name_ch1",
	}
}

func TestAnalyzeSeriesFullWorkflow(t *testing.T) {
	srv := geoServer(t)
	out := t.TempDir()
	runner := testRunner(t, srv.URL)

	res, err := runner.AnalyzeSeries(context.Background(), "GSE101", pipeline.Options{
		OutputDir:             out,
		DownloadSupplementary: true,
		FilterColumn:          "title",
		FilterPattern:         "H3K",
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if res.Table.Len() != 2 {
		t.Fatalf("samples = %d", res.Table.Len())
	}
	if res.Filtered == nil || res.Filtered.Len() != 1 {
		t.Fatalf("filtered = %+v", res.Filtered)
	}
	if res.Filtered.Rows()[0].Key != "GSM1" {
		t.Fatalf("filtered row = %q", res.Filtered.Rows()[0].Key)
	}
	if len(res.Downloaded) != 2 {
		t.Fatalf("downloaded = %v", res.Downloaded)
	}

	// Correlation runs on the filtered table: only GSM1's file renamed.
	if got := res.Rename.Renamed["a.txt.gz"]; got != "liver_tissue-a.txt.gz" {
		t.Fatalf("rename = %q", got)
	}
	if len(res.Rename.Renamed) != 1 {
		t.Fatalf("renamed count = %d", len(res.Rename.Renamed))
	}

	for _, name := range []string{
		"GSE101_metadata.tsv",
		"GSE101_filtered_metadata.tsv",
		"GSE101_summary.json",
		"GSE101_sample_annotation.tsv",
		filepath.Join("renamed_files", "liver_tissue-a.txt.gz"),
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("expected artifact %s: %v", name, err)
		}
	}

	b, err := os.ReadFile(filepath.Join(out, "GSE101_metadata.tsv"))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if !strings.HasPrefix(string(b), "accession\t") {
		t.Fatalf("metadata header = %q", strings.SplitN(string(b), "\n", 2)[0])
	}
}

func TestAnalyzeSeriesFilterFailureDoesNotAbort(t *testing.T) {
	srv := geoServer(t)
	runner := testRunner(t, srv.URL)

	res, err := runner.AnalyzeSeries(context.Background(), "GSE101", pipeline.Options{
		OutputDir:     t.TempDir(),
		FilterColumn:  "no_such_column",
		FilterPattern: "H3K",
	})
	if err != nil {
		t.Fatalf("analyze should survive a bad filter column: %v", err)
	}
	if res.Filtered != nil {
		t.Fatal("expected no filtered result")
	}
	if res.Summary == nil || res.Summary.SampleCount != 2 {
		t.Fatalf("summary = %+v", res.Summary)
	}
}

func TestAnalyzeSeriesWithoutSupplementarySkipsRenames(t *testing.T) {
	srv := geoServer(t)
	runner := testRunner(t, srv.URL)

	res, err := runner.AnalyzeSeries(context.Background(), "GSE101", pipeline.Options{
		OutputDir:             t.TempDir(),
		DownloadSupplementary: false,
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(res.Downloaded) != 0 {
		t.Fatalf("downloaded = %v", res.Downloaded)
	}
	// Both rows reference files that were never fetched locally.
	if len(res.Rename.Renamed) != 0 || res.Rename.SkippedMissingFile != 2 {
		t.Fatalf("rename result = %+v", res.Rename)
	}
}

func TestAnalyzeSeriesColumnSelection(t *testing.T) {
	srv := geoServer(t)
	runner := testRunner(t, srv.URL)

	res, err := runner.AnalyzeSeries(context.Background(), "GSE101", pipeline.Options{
		OutputDir: t.TempDir(),
		Columns:   []string{"title", "nonexistent"},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(res.ColumnReport.Missing) != 1 || res.ColumnReport.Missing[0] != "nonexistent" {
		t.Fatalf("missing = %v", res.ColumnReport.Missing)
	}
	if cols := res.Table.Columns(); len(cols) != 1 || cols[0] != "title" {
		t.Fatalf("columns = %v", cols)
	}
}

func TestDownloadSeries(t *testing.T) {
	srv := geoServer(t)
	runner := testRunner(t, srv.URL)
	out := t.TempDir()

	series, downloaded, err := runner.DownloadSeries(context.Background(), "GSE101", out, true)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if series.ID != "GSE101" || len(downloaded) != 2 {
		t.Fatalf("series = %q, downloaded = %v", series.ID, downloaded)
	}
	if _, err := os.Stat(filepath.Join(out, "GSE101_metadata.tsv")); err != nil {
		t.Fatalf("metadata export missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "a.txt.gz")); err != nil {
		t.Fatalf("supplementary download missing: %v", err)
	}
}
