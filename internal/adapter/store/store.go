// Package store defines the collaborators that feed and persist the
// extraction pipeline.
package store

import (
	"errors"

	"go.ngs.io/precip-regions/internal/domain"
)

// ErrSeriesNotFound is returned when a region has no stored daily series.
var ErrSeriesNotFound = errors.New("daily series not found")

// GridReader loads a gridded dataset into memory.
type GridReader interface {
	// ReadGrid reads the axes and the [time, lat, lon] value variable.
	// Cells equal to _FillValue or missing_value are returned as NaN; other
	// missing-value policies are applied later.
	ReadGrid(path string, vars Variables) (*domain.Grid, error)
}

// RegistryLoader loads the region registry.
type RegistryLoader interface {
	LoadRegistry(path, idColumn string) (*domain.Registry, error)
}

// SeriesStore persists per-region daily series.
type SeriesStore interface {
	WriteDaily(regionID string, records []domain.DailyRecord) error
	// ReadDaily returns ErrSeriesNotFound (wrapped) when no file exists.
	ReadDaily(regionID string) ([]domain.DailyRecord, error)
}

// TableWriter commits an output table.
type TableWriter interface {
	WriteTable(path string, t *domain.Table) error
}

// Variables names the NetCDF variables of a dataset.
type Variables struct {
	Lon   string
	Lat   string
	Time  string
	Value string

	// Window limits the read to the cells around a bounding box plus
	// WindowMargin. Nil reads the whole grid.
	Window *Window
}

// DefaultVariables returns the CHIRPS variable names.
func DefaultVariables() Variables {
	return Variables{
		Lon:   "longitude",
		Lat:   "latitude",
		Time:  "time",
		Value: "precip",
	}
}

// LonNames returns the configured longitude name followed by common fallbacks.
func (v Variables) LonNames() []string {
	return withFallbacks(v.Lon, "longitude", "lon", "x")
}

// LatNames returns the configured latitude name followed by common fallbacks.
func (v Variables) LatNames() []string {
	return withFallbacks(v.Lat, "latitude", "lat", "y")
}

// TimeNames returns the configured time name followed by common fallbacks.
func (v Variables) TimeNames() []string {
	return withFallbacks(v.Time, "time", "t")
}

// ValueNames returns the configured value name followed by common fallbacks.
func (v Variables) ValueNames() []string {
	return withFallbacks(v.Value, "precip", "precipitation", "pr", "data")
}

func withFallbacks(first string, fallbacks ...string) []string {
	names := make([]string, 0, len(fallbacks)+1)
	seen := make(map[string]bool, len(fallbacks)+1)
	for _, n := range append([]string{first}, fallbacks...) {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}
