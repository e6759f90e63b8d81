package metadata

// ColumnReport records the outcome of a column selection: what was asked
// for, what the table actually had, and what it lacked. Found and Missing
// preserve the requested order.
type ColumnReport struct {
	Requested []string
	Found     []string
	Missing   []string
}

// Select validates requested against the table's columns and projects onto
// the ones that exist. With no requested columns the table passes through
// untouched. When none of the requested columns exist the original table is
// returned unchanged; the caller is expected to surface Missing as a
// warning, not an error.
func Select(t *Table, requested []string) (ColumnReport, *Table) {
	report := ColumnReport{Requested: append([]string(nil), requested...)}
	if len(requested) == 0 {
		report.Found = t.Columns()
		return report, t
	}
	for _, want := range requested {
		if t.HasColumn(want) {
			report.Found = append(report.Found, want)
		} else {
			report.Missing = append(report.Missing, want)
		}
	}
	if len(report.Found) == 0 {
		return report, t
	}
	return report, t.project(report.Found)
}
