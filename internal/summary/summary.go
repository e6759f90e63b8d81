// Package summary aggregates dataset-level facts into one serializable
// record written alongside the exported metadata.
package summary

import (
	"encoding/json"
	"fmt"

	"github.com/genomekit/geoflow-cli/internal/geo"
	"github.com/genomekit/geoflow-cli/internal/metadata"
)

// NotAvailable is the sentinel for descriptive fields the series does not
// carry.
const NotAvailable = "N/A"

// PlatformInfo is one platform entry in the summary.
type PlatformInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Technology string `json:"technology"`
	Organism   string `json:"organism"`
}

// ValueCount mirrors metadata.ValueCount with JSON tags for export.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DatasetSummary is the exported per-dataset record. Built once, never
// mutated afterwards.
type DatasetSummary struct {
	ID                     string         `json:"gse_id"`
	Title                  string         `json:"title"`
	Summary                string         `json:"summary"`
	OverallDesign          string         `json:"overall_design"`
	SubmissionDate         string         `json:"submission_date"`
	LastUpdateDate         string         `json:"last_update_date"`
	PubmedID               string         `json:"pubmed_id"`
	PlatformCount          int            `json:"platform_count"`
	SampleCount            int            `json:"sample_count"`
	SupplementaryFileCount int            `json:"supplementary_file_count"`
	Columns                []string       `json:"columns_in_metadata"`
	Platforms              []PlatformInfo `json:"platforms,omitempty"`
	SampleTypeColumn       string         `json:"sample_type_column,omitempty"`
	SampleTypeDistribution []ValueCount   `json:"sample_type_distribution,omitempty"`
}

// Build assembles the summary for a fetched series and its (possibly
// column-selected) metadata table. When sampleTypeColumn is present in the
// table its value distribution is attached; when absent the field is
// simply omitted.
func Build(series *geo.Series, table *metadata.Table, sampleTypeColumn string) *DatasetSummary {
	s := &DatasetSummary{
		ID:                     series.ID,
		Title:                  fieldOr(series, "title"),
		Summary:                fieldOr(series, "summary"),
		OverallDesign:          fieldOr(series, "overall_design"),
		SubmissionDate:         fieldOr(series, "submission_date"),
		LastUpdateDate:         fieldOr(series, "last_update_date"),
		PubmedID:               fieldOr(series, "pubmed_id"),
		PlatformCount:          len(series.Platforms),
		SampleCount:            table.Len(),
		SupplementaryFileCount: len(series.SupplementaryFiles),
		Columns:                table.Columns(),
	}
	for _, p := range series.Platforms {
		s.Platforms = append(s.Platforms, PlatformInfo{
			ID:         p.ID,
			Title:      orNA(p.Title),
			Technology: orNA(p.Technology),
			Organism:   orNA(p.Organism),
		})
	}
	if sampleTypeColumn != "" && table.HasColumn(sampleTypeColumn) {
		dist, err := metadata.Distribution(table, sampleTypeColumn)
		if err == nil {
			s.SampleTypeColumn = sampleTypeColumn
			for _, vc := range dist {
				s.SampleTypeDistribution = append(s.SampleTypeDistribution, ValueCount{Value: vc.Value, Count: vc.Count})
			}
		}
	}
	return s
}

// JSON renders the summary as indented JSON.
func (s *DatasetSummary) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return b, nil
}

func fieldOr(series *geo.Series, name string) string {
	if v, ok := series.Field(name); ok && v != "" {
		return v
	}
	return NotAvailable
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
