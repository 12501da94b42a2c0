// Package domain holds the gridded precipitation model and the per-region
// aggregations computed from it.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrShapeMismatch is returned when grid values do not match the axis lengths.
var ErrShapeMismatch = errors.New("grid shape mismatch")

// Grid is a regular latitude/longitude grid of values over time.
// Values are stored flat in [time, lat, lon] order.
type Grid struct {
	Lons   []float64   // Longitude axis (any order).
	Lats   []float64   // Latitude axis (any order).
	Times  []time.Time // Optional time axis; empty when the dataset has none.
	NTime  int         // Length of the time axis.
	Values []float64
}

// NewGrid builds a grid from a [time][lat][lon] array.
func NewGrid(lons, lats []float64, values [][][]float64) (*Grid, error) {
	g := &Grid{
		Lons:   lons,
		Lats:   lats,
		NTime:  len(values),
		Values: make([]float64, 0, len(values)*len(lats)*len(lons)),
	}
	for t, plane := range values {
		if len(plane) != len(lats) {
			return nil, fmt.Errorf("%w: time %d has %d rows, expected %d", ErrShapeMismatch, t, len(plane), len(lats))
		}
		for i, row := range plane {
			if len(row) != len(lons) {
				return nil, fmt.Errorf("%w: time %d row %d has %d values, expected %d", ErrShapeMismatch, t, i, len(row), len(lons))
			}
			g.Values = append(g.Values, row...)
		}
	}
	return g, nil
}

// Validate checks that the value array matches the axes.
func (g *Grid) Validate() error {
	if len(g.Lons) == 0 {
		return fmt.Errorf("grid has no longitudes")
	}
	if len(g.Lats) == 0 {
		return fmt.Errorf("grid has no latitudes")
	}
	if g.NTime <= 0 {
		return fmt.Errorf("grid has no time steps")
	}
	if want := g.NTime * len(g.Lats) * len(g.Lons); len(g.Values) != want {
		return fmt.Errorf("%w: %d values, expected %d (%d x %d x %d)",
			ErrShapeMismatch, len(g.Values), want, g.NTime, len(g.Lats), len(g.Lons))
	}
	if len(g.Times) != 0 && len(g.Times) != g.NTime {
		return fmt.Errorf("%w: time axis has %d entries, expected %d", ErrShapeMismatch, len(g.Times), g.NTime)
	}
	return nil
}

// At returns the value at a time, latitude and longitude index.
func (g *Grid) At(t, latIdx, lonIdx int) float64 {
	return g.Values[(t*len(g.Lats)+latIdx)*len(g.Lons)+lonIdx]
}

// Series copies the full time series of one grid cell.
func (g *Grid) Series(latIdx, lonIdx int) ([]float64, error) {
	if latIdx < 0 || latIdx >= len(g.Lats) || lonIdx < 0 || lonIdx >= len(g.Lons) {
		return nil, fmt.Errorf("%w: cell (%d, %d) outside %d x %d grid", ErrShapeMismatch, latIdx, lonIdx, len(g.Lats), len(g.Lons))
	}
	if len(g.Values) < g.NTime*len(g.Lats)*len(g.Lons) {
		return nil, fmt.Errorf("%w: %d values for %d time steps", ErrShapeMismatch, len(g.Values), g.NTime)
	}
	out := make([]float64, g.NTime)
	for t := range out {
		out[t] = g.At(t, latIdx, lonIdx)
	}
	return out, nil
}

// MissingPolicy decides whether a raw grid value is missing data.
type MissingPolicy interface {
	IsMissing(v float64) bool
}

// DefaultSentinel is the missing-value marker of the annual and monthly products.
const DefaultSentinel = -9999.0

// SentinelPolicy treats a fixed sentinel value (and NaN) as missing.
type SentinelPolicy struct {
	Value float64
}

// IsMissing implements MissingPolicy.
func (p SentinelPolicy) IsMissing(v float64) bool {
	return v == p.Value || math.IsNaN(v)
}

// NaNPolicy treats only NaN as missing. Daily products rely on it.
type NaNPolicy struct{}

// IsMissing implements MissingPolicy.
func (NaNPolicy) IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// NaNSeries returns a series of n NaN values.
func NaNSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
