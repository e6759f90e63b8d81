package geo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/genomekit/geoflow-cli/internal/metadata"
)

// SOFT family files are line-oriented: entity markers ("^SERIES = GSE1"),
// attribute lines ("!Series_title = ..."), and data-table lines ("#" and
// bare rows) which this parser ignores entirely — supplementary file
// content is never inspected, and expression matrices are out of scope.

type softSample struct {
	id    string
	attrs map[string][]string
	order []string
}

// ParseSOFT reads a decoded SOFT family stream and builds a Series. Sample
// attributes become table columns in first-seen order; attributes repeated
// within one sample join with "; " so every sample contributes at most one
// cell per column, matching how GEO phenotype tables flatten.
func ParseSOFT(r io.Reader) (*Series, error) {
	series := &Series{Fields: map[string][]string{}}
	var samples []*softSample
	var cur *softSample
	var curPlatform *Platform
	section := ""

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "^"):
			entity, value := splitSOFTLine(line[1:])
			section = strings.ToUpper(entity)
			cur = nil
			curPlatform = nil
			switch section {
			case "SERIES":
				series.ID = value
			case "PLATFORM":
				series.Platforms = append(series.Platforms, Platform{ID: value})
				curPlatform = &series.Platforms[len(series.Platforms)-1]
			case "SAMPLE":
				cur = &softSample{id: value, attrs: map[string][]string{}}
				samples = append(samples, cur)
			}
		case strings.HasPrefix(line, "!"):
			key, value := splitSOFTLine(line[1:])
			switch section {
			case "SERIES":
				name, ok := strings.CutPrefix(key, "Series_")
				if !ok {
					continue
				}
				series.Fields[name] = append(series.Fields[name], value)
				if strings.HasPrefix(name, "supplementary_file") && value != "" {
					series.SupplementaryFiles = append(series.SupplementaryFiles, value)
				}
			case "PLATFORM":
				if curPlatform == nil {
					continue
				}
				name, ok := strings.CutPrefix(key, "Platform_")
				if !ok {
					continue
				}
				switch name {
				case "title":
					curPlatform.Title = value
				case "technology":
					curPlatform.Technology = value
				case "organism", "organism_ch1":
					if curPlatform.Organism == "" {
						curPlatform.Organism = value
					}
				}
			case "SAMPLE":
				if cur == nil {
					continue
				}
				name, ok := strings.CutPrefix(key, "Sample_")
				if !ok {
					continue
				}
				if _, seen := cur.attrs[name]; !seen {
					cur.order = append(cur.order, name)
				}
				cur.attrs[name] = append(cur.attrs[name], value)
			}
		}
		// "#" descriptors and bare data rows fall through untouched.
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read SOFT stream: %w", err)
	}

	table, err := samplesToTable(samples)
	if err != nil {
		return nil, err
	}
	series.Samples = table
	return series, nil
}

func samplesToTable(samples []*softSample) (*metadata.Table, error) {
	var columns []string
	seen := map[string]struct{}{}
	for _, s := range samples {
		for _, name := range s.order {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				columns = append(columns, name)
			}
		}
	}
	// geo_accession is always a column; it is derivable from the sample
	// marker even when the attribute line is missing.
	if _, ok := seen["geo_accession"]; !ok {
		columns = append([]string{"geo_accession"}, columns...)
	}
	rows := make([]metadata.Row, 0, len(samples))
	for _, s := range samples {
		cells := make(map[string]metadata.Value, len(s.attrs)+1)
		for name, vals := range s.attrs {
			cells[name] = metadata.Some(strings.Join(vals, "; "))
		}
		if _, ok := cells["geo_accession"]; !ok {
			cells["geo_accession"] = metadata.Some(s.id)
		}
		rows = append(rows, metadata.Row{Key: s.id, Cells: cells})
	}
	return metadata.NewTable(columns, rows)
}

func splitSOFTLine(s string) (string, string) {
	if i := strings.Index(s, "="); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return strings.TrimSpace(s), ""
}
