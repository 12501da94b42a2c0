package usecase

import (
	"errors"
	"fmt"
	"math"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/domain"
)

var (
	// ErrRegionNotFound is returned for an identifier absent from the registry.
	ErrRegionNotFound = errors.New("region not found")
	// ErrInvalidCoordinate is returned for an out-of-range query point.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// SeriesResult is one region's labelled series.
type SeriesResult struct {
	RegionID string
	Lat      float64
	Lon      float64
	Labels   []string
	Values   []float64 // NaN where no candidate had data.
}

// SeriesUseCase answers series lookups against one loaded grid.
type SeriesUseCase struct {
	grid     *domain.Grid
	registry *domain.Registry
	ip       *interp.Interpolator
	labels   []string
}

// NewSeriesUseCase precomputes the period labels of g.
func NewSeriesUseCase(g *domain.Grid, registry *domain.Registry, ip *interp.Interpolator,
	granularity domain.Granularity, origin domain.PeriodOrigin,
) (*SeriesUseCase, error) {
	labels, err := domain.PeriodColumns(granularity, g.Times, g.NTime, origin)
	if err != nil {
		return nil, fmt.Errorf("period labels: %w", err)
	}
	return &SeriesUseCase{grid: g, registry: registry, ip: ip, labels: labels}, nil
}

// Regions returns the registry in file order.
func (u *SeriesUseCase) Regions() []domain.Region {
	return u.registry.Regions
}

// IDColumn names the registry's identifier column.
func (u *SeriesUseCase) IDColumn() string {
	return u.registry.IDColumn
}

// ForRegion interpolates the series of a registered region.
func (u *SeriesUseCase) ForRegion(id string) (*SeriesResult, error) {
	r, ok := u.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, id)
	}
	return u.compute(r)
}

// ForPoint interpolates the series of an ad-hoc centroid.
func (u *SeriesUseCase) ForPoint(lat, lon float64) (*SeriesResult, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 360 {
		return nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat, lon)
	}
	return u.compute(domain.Region{ID: "point", Lat: lat, Lon: lon})
}

func (u *SeriesUseCase) compute(r domain.Region) (*SeriesResult, error) {
	series, err := u.ip.Interpolate(u.grid, r)
	if err != nil {
		return nil, err
	}
	return &SeriesResult{
		RegionID: r.ID,
		Lat:      r.Lat,
		Lon:      r.Lon,
		Labels:   u.labels,
		Values:   series.Values,
	}, nil
}
