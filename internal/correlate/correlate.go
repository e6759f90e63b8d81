// Package correlate maps metadata rows to their downloaded supplementary
// files and produces a deterministic renaming scheme. This is the one part
// of the pipeline that has to tolerate dirty data: identifiers come from
// free-text fields, the column carrying the file URL varies per dataset,
// and files referenced by metadata may never have arrived locally.
package correlate

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/genomekit/geoflow-cli/internal/geo"
	"github.com/genomekit/geoflow-cli/internal/metadata"
	"github.com/genomekit/geoflow-cli/internal/store"
)

// Options configures one correlation pass.
type Options struct {
	// IdentifierColumn supplies human-readable naming tokens; rows with no
	// value there fall back to the row key.
	IdentifierColumn string
	// SourceDir holds the previously downloaded supplementary files.
	SourceDir string
	// OutputDir receives the renamed copies. Created if missing.
	OutputDir string
}

// Entry records one successfully renamed file.
type Entry struct {
	Accession  string
	Identifier string
	Original   string
	Renamed    string
}

// Result accumulates the rename mapping and the per-row bookkeeping. A
// row that cannot be correlated is counted, never fatal.
type Result struct {
	// Renamed maps original filename to new filename, one entry per
	// successful copy.
	Renamed map[string]string
	// Entries holds the successful renames in row order.
	Entries []Entry
	// SkippedNoURL counts rows with no supplementary file column value.
	SkippedNoURL int
	// SkippedMissingFile counts rows whose file was never downloaded.
	SkippedMissingFile int
	// RowErrors holds copy failures, one message per affected row.
	RowErrors []string
}

var sanitizeRe = regexp.MustCompile(`[\s/\\]+`)

// SanitizeIdentifier collapses whitespace runs and path separators into
// single underscores so the identifier is safe as a filename prefix.
func SanitizeIdentifier(s string) string {
	return sanitizeRe.ReplaceAllString(strings.TrimSpace(s), "_")
}

// SupplementaryColumns returns, in column order, every column whose name
// carries a supplementary file reference. Which columns those are differs
// between datasets, so this is discovered per table rather than fixed.
func SupplementaryColumns(t *metadata.Table) []string {
	var cols []string
	for _, c := range t.Columns() {
		if strings.Contains(c, "supplementary_file") {
			cols = append(cols, c)
		}
	}
	return cols
}

// Correlate walks every row of t, derives an identifier, locates the
// row's supplementary file on disk, and copies it into opts.OutputDir
// under "{identifier}-{originalFilename}". Rows without a resolvable file
// are skipped and counted. When two rows would produce the same new
// filename, later rows disambiguate by inserting their accession instead
// of silently overwriting the earlier copy.
func Correlate(logger *slog.Logger, t *metadata.Table, opts Options) (*Result, error) {
	if err := store.EnsureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("create rename output dir: %w", err)
	}
	suppCols := SupplementaryColumns(t)
	res := &Result{Renamed: map[string]string{}}
	taken := map[string]struct{}{}

	for _, row := range t.Rows() {
		identifier := row.Key
		if opts.IdentifierColumn != "" {
			if v := row.Value(opts.IdentifierColumn); v.Present && strings.TrimSpace(v.Str) != "" {
				identifier = SanitizeIdentifier(v.Str)
			}
		}

		fileURL := ""
		for _, c := range suppCols {
			if v := row.Value(c); v.Present && strings.TrimSpace(v.Str) != "" {
				fileURL = strings.TrimSpace(v.Str)
				break
			}
		}
		if fileURL == "" {
			logger.Debug("no supplementary file reference", "accession", row.Key)
			res.SkippedNoURL++
			continue
		}

		original := geo.LeafName(fileURL)
		srcPath := filepath.Join(opts.SourceDir, original)
		if !store.Exists(srcPath) {
			logger.Warn("supplementary file not found locally", "accession", row.Key, "file", original)
			res.SkippedMissingFile++
			continue
		}

		newName := identifier + "-" + original
		if _, clash := taken[newName]; clash {
			newName = identifier + "_" + row.Key + "-" + original
		}
		if err := store.Copy(srcPath, filepath.Join(opts.OutputDir, newName)); err != nil {
			msg := fmt.Sprintf("copy %s for %s: %v", original, row.Key, err)
			logger.Error("rename copy failed", "accession", row.Key, "error", err)
			res.RowErrors = append(res.RowErrors, msg)
			continue
		}
		taken[newName] = struct{}{}
		res.Renamed[original] = newName
		res.Entries = append(res.Entries, Entry{
			Accession:  row.Key,
			Identifier: identifier,
			Original:   original,
			Renamed:    newName,
		})
		logger.Info("renamed supplementary file", "from", original, "to", newName)
	}
	return res, nil
}
