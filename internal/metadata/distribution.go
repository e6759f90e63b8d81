package metadata

import "sort"

// ValueCount is one value and how often it occurs in a column.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts is a column's value distribution, ordered by descending
// count; ties keep first-encountered order so output is deterministic.
type ValueCounts []ValueCount

// Total sums the counts.
func (vc ValueCounts) Total() int {
	n := 0
	for _, c := range vc {
		n += c.Count
	}
	return n
}

// Distribution counts the present values of column. Absent cells do not
// contribute a "missing" bucket; they are simply excluded.
func Distribution(t *Table, column string) (ValueCounts, error) {
	if !t.HasColumn(column) {
		return nil, &ColumnNotFoundError{Column: column, Available: t.Columns()}
	}
	counts := map[string]int{}
	first := map[string]int{}
	order := 0
	for _, r := range t.rows {
		v := r.Value(column)
		if !v.Present {
			continue
		}
		if _, seen := counts[v.Str]; !seen {
			first[v.Str] = order
			order++
		}
		counts[v.Str]++
	}
	out := make(ValueCounts, 0, len(counts))
	for val, n := range counts {
		out = append(out, ValueCount{Value: val, Count: n})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return first[out[i].Value] < first[out[j].Value]
	})
	return out, nil
}
