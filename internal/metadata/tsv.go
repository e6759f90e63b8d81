package metadata

import (
	"fmt"
	"io"
	"strings"
)

// KeyHeader is the header written for the row-key column in exports.
const KeyHeader = "accession"

// WriteTSV writes the table as tab-separated values: a header row with the
// row key first, then one line per row in table order. Absent cells export
// as empty fields. Embedded tabs and newlines inside values are flattened
// to single spaces so the file stays one-line-per-row.
func WriteTSV(w io.Writer, t *Table) error {
	header := append([]string{KeyHeader}, t.columns...)
	if _, err := io.WriteString(w, strings.Join(header, "\t")+"\n"); err != nil {
		return fmt.Errorf("write tsv header: %w", err)
	}
	for _, r := range t.rows {
		fields := make([]string, 0, len(t.columns)+1)
		fields = append(fields, tsvField(r.Key))
		for _, c := range t.columns {
			v := r.Value(c)
			if v.Present {
				fields = append(fields, tsvField(v.Str))
			} else {
				fields = append(fields, "")
			}
		}
		if _, err := io.WriteString(w, strings.Join(fields, "\t")+"\n"); err != nil {
			return fmt.Errorf("write tsv row %q: %w", r.Key, err)
		}
	}
	return nil
}

func tsvField(s string) string {
	if !strings.ContainsAny(s, "\t\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\r', '\n':
			return ' '
		}
		return r
	}, s)
}
