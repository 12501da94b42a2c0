package domain

import "time"

// Granularity is the temporal resolution of a dataset.
type Granularity string

const (
	GranularityAnnual   Granularity = "annual"
	GranularityMonthly  Granularity = "monthly"
	GranularityDaily    Granularity = "daily"
	GranularityDrySpell Granularity = "dry-spell"
)

// DefaultMissingPolicy returns the missing-value policy used by a granularity
// when no sentinel is configured.
func (g Granularity) DefaultMissingPolicy() MissingPolicy {
	if g == GranularityDaily {
		return NaNPolicy{}
	}
	return SentinelPolicy{Value: DefaultSentinel}
}

// RegionSeries is the interpolated series of one region, aligned with the
// grid's time axis. NaN marks steps without a valid value.
type RegionSeries struct {
	RegionID string
	Values   []float64
}

// DailyRecord is one day of precipitation for a region.
type DailyRecord struct {
	Date          time.Time
	Precipitation float64
}

// Table is an output table with one row per region.
type Table struct {
	IDColumn string
	IDFirst  bool // Identifier column placed before the value columns.
	Columns  []string
	Rows     []Row
}

// Row is one region's values, aligned with Table.Columns.
type Row struct {
	ID     string
	Values []float64
}

// Header returns the full column list including the identifier column.
func (t *Table) Header() []string {
	header := make([]string, 0, len(t.Columns)+1)
	if t.IDFirst {
		header = append(header, t.IDColumn)
	}
	header = append(header, t.Columns...)
	if !t.IDFirst {
		header = append(header, t.IDColumn)
	}
	return header
}
