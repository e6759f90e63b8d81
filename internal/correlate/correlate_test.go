package correlate

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/genomekit/geoflow-cli/internal/metadata"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func corrTable(t *testing.T, rows []metadata.Row) *metadata.Table {
	t.Helper()
	tab, err := metadata.NewTable(
		[]string{"title", "source_name_ch1", "supplementary_file_1"},
		rows,
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return tab
}

func writeSourceFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0o644); err != nil {
		t.Fatalf("write source %s: %v", name, err)
	}
}

func TestCorrelateRenamesByIdentifier(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "renamed")
	writeSourceFile(t, src, "a.txt.gz")
	writeSourceFile(t, src, "b.txt.gz")

	tab := corrTable(t, []metadata.Row{
		{Key: "GSM1", Cells: map[string]metadata.Value{
			"title":                metadata.Some("H3K4me3 ChIP"),
			"source_name_ch1":      metadata.Some("liver tissue"),
			"supplementary_file_1": metadata.Some("http://x/a.txt.gz"),
		}},
		{Key: "GSM2", Cells: map[string]metadata.Value{
			"title":                metadata.Some("Input control"),
			"source_name_ch1":      metadata.Some(""),
			"supplementary_file_1": metadata.Some("http://x/b.txt.gz"),
		}},
	})

	res, err := Correlate(discardLogger(), tab, Options{
		IdentifierColumn: "source_name_ch1",
		SourceDir:        src,
		OutputDir:        out,
	})
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	want := map[string]string{
		"a.txt.gz": "liver_tissue-a.txt.gz",
		// blank identifier falls back to the accession
		"b.txt.gz": "GSM2-b.txt.gz",
	}
	if !reflect.DeepEqual(res.Renamed, want) {
		t.Fatalf("renamed = %v", res.Renamed)
	}
	for _, name := range want {
		p := filepath.Join(out, name)
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("renamed copy missing: %v", err)
		}
	}
	b, _ := os.ReadFile(filepath.Join(out, "liver_tissue-a.txt.gz"))
	if string(b) != "content of a.txt.gz" {
		t.Fatalf("copy content = %q", b)
	}
}

func TestCorrelateSkipsRowsWithoutFileReference(t *testing.T) {
	src := t.TempDir()
	tab := corrTable(t, []metadata.Row{
		{Key: "GSM1", Cells: map[string]metadata.Value{
			"title": metadata.Some("no file here"),
		}},
	})
	res, err := Correlate(discardLogger(), tab, Options{
		IdentifierColumn: "source_name_ch1",
		SourceDir:        src,
		OutputDir:        filepath.Join(t.TempDir(), "out"),
	})
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if len(res.Renamed) != 0 || res.SkippedNoURL != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestCorrelateSkipsMissingLocalFiles(t *testing.T) {
	src := t.TempDir() // nothing downloaded
	tab := corrTable(t, []metadata.Row{
		{Key: "GSM1", Cells: map[string]metadata.Value{
			"source_name_ch1":      metadata.Some("liver"),
			"supplementary_file_1": metadata.Some("http://x/never_downloaded.gz"),
		}},
	})
	res, err := Correlate(discardLogger(), tab, Options{
		IdentifierColumn: "source_name_ch1",
		SourceDir:        src,
		OutputDir:        filepath.Join(t.TempDir(), "out"),
	})
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if len(res.Renamed) != 0 || res.SkippedMissingFile != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestCorrelateCollisionDisambiguates(t *testing.T) {
	src := t.TempDir()
	writeSourceFile(t, src, "a.txt.gz")
	tab := corrTable(t, []metadata.Row{
		{Key: "GSM1", Cells: map[string]metadata.Value{
			"source_name_ch1":      metadata.Some("liver"),
			"supplementary_file_1": metadata.Some("http://x/a.txt.gz"),
		}},
		{Key: "GSM2", Cells: map[string]metadata.Value{
			"source_name_ch1":      metadata.Some("liver"),
			"supplementary_file_1": metadata.Some("http://x/a.txt.gz"),
		}},
	})
	out := filepath.Join(t.TempDir(), "out")
	res, err := Correlate(discardLogger(), tab, Options{
		IdentifierColumn: "source_name_ch1",
		SourceDir:        src,
		OutputDir:        out,
	})
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d", len(res.Entries))
	}
	if res.Entries[0].Renamed != "liver-a.txt.gz" {
		t.Fatalf("first rename = %q", res.Entries[0].Renamed)
	}
	if res.Entries[1].Renamed != "liver_GSM2-a.txt.gz" {
		t.Fatalf("collision rename = %q", res.Entries[1].Renamed)
	}
	for _, e := range res.Entries {
		if _, err := os.Stat(filepath.Join(out, e.Renamed)); err != nil {
			t.Fatalf("copy for %s missing: %v", e.Accession, err)
		}
	}
}

func TestCorrelateRowIndependence(t *testing.T) {
	src := t.TempDir()
	writeSourceFile(t, src, "a.txt.gz")
	full := corrTable(t, []metadata.Row{
		{Key: "GSM1", Cells: map[string]metadata.Value{
			"source_name_ch1":      metadata.Some("liver"),
			"supplementary_file_1": metadata.Some("http://x/a.txt.gz"),
		}},
		{Key: "GSM2", Cells: map[string]metadata.Value{
			"title": metadata.Some("unrelated"),
		}},
	})
	reduced := corrTable(t, []metadata.Row{full.Rows()[0]})

	resFull, err := Correlate(discardLogger(), full, Options{
		IdentifierColumn: "source_name_ch1",
		SourceDir:        src,
		OutputDir:        filepath.Join(t.TempDir(), "out1"),
	})
	if err != nil {
		t.Fatalf("correlate full: %v", err)
	}
	resReduced, err := Correlate(discardLogger(), reduced, Options{
		IdentifierColumn: "source_name_ch1",
		SourceDir:        src,
		OutputDir:        filepath.Join(t.TempDir(), "out2"),
	})
	if err != nil {
		t.Fatalf("correlate reduced: %v", err)
	}
	if !reflect.DeepEqual(resFull.Renamed, resReduced.Renamed) {
		t.Fatalf("removing an unrelated row changed the outcome: %v vs %v", resFull.Renamed, resReduced.Renamed)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"liver tissue":      "liver_tissue",
		"a  b\tc":           "a_b_c",
		"hepatic/portal":    "hepatic_portal",
		`back\slash`:        "back_slash",
		"  padded  tokens ": "padded_tokens",
	}
	for in, want := range cases {
		if got := SanitizeIdentifier(in); got != want {
			t.Fatalf("SanitizeIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSupplementaryColumnsDiscovery(t *testing.T) {
	tab, err := metadata.NewTable(
		[]string{"title", "supplementary_file_1", "notes", "supplementary_file_2"},
		nil,
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	got := SupplementaryColumns(tab)
	if !reflect.DeepEqual(got, []string{"supplementary_file_1", "supplementary_file_2"}) {
		t.Fatalf("columns = %v", got)
	}
}

func TestWriteAnnotationTSV(t *testing.T) {
	res := &Result{Entries: []Entry{
		{Accession: "GSM1", Identifier: "liver_tissue", Original: "a.txt.gz", Renamed: "liver_tissue-a.txt.gz"},
	}}
	var buf bytes.Buffer
	if err := WriteAnnotationTSV(&buf, res); err != nil {
		t.Fatalf("write annotation: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0] != "accession\tidentifier\toriginal_file\trenamed_file" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "GSM1\tliver_tissue\ta.txt.gz\tliver_tissue-a.txt.gz" {
		t.Fatalf("row = %q", lines[1])
	}
}
