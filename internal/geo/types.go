// Package geo fetches GEO series records over HTTP and turns the SOFT
// family file into a typed metadata table plus dataset-level fields.
package geo

import "github.com/genomekit/geoflow-cli/internal/metadata"

// Platform describes one measurement platform attached to a series.
type Platform struct {
	ID         string
	Title      string
	Technology string
	Organism   string
}

// Series is one fetched GEO series: dataset-level fields, platform
// records, the sample metadata table, and series-level supplementary
// file URLs.
type Series struct {
	ID        string
	Fields    map[string][]string
	Platforms []Platform
	Samples   *metadata.Table
	// SupplementaryFiles holds series-level supplementary URLs; per-sample
	// URLs live in the sample table's supplementary_file columns.
	SupplementaryFiles []string
}

// Field returns the first value of a series-level field, or "" when the
// series does not carry it.
func (s *Series) Field(name string) (string, bool) {
	vals, ok := s.Fields[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
