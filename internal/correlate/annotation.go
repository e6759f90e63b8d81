package correlate

import (
	"fmt"
	"io"
	"strings"
)

// WriteAnnotationTSV writes the rename entries as a tab-separated
// annotation table: one line per renamed file, accession first.
func WriteAnnotationTSV(w io.Writer, res *Result) error {
	header := []string{"accession", "identifier", "original_file", "renamed_file"}
	if _, err := io.WriteString(w, strings.Join(header, "\t")+"\n"); err != nil {
		return fmt.Errorf("write annotation header: %w", err)
	}
	for _, e := range res.Entries {
		line := strings.Join([]string{e.Accession, e.Identifier, e.Original, e.Renamed}, "\t")
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("write annotation row %q: %w", e.Accession, err)
		}
	}
	return nil
}
