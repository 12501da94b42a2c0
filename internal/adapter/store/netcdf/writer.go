package netcdf

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/precip-regions/internal/adapter/store"
	"go.ngs.io/precip-regions/internal/domain"
)

// DefaultTimeUnits matches the CHIRPS time axis.
const DefaultTimeUnits = "days since 1980-1-1 0:0:0"

// WriteOptions controls how a grid is written.
type WriteOptions struct {
	Vars         store.Variables
	TimeUnits    string
	MissingValue float32
}

// DefaultWriteOptions returns CHIRPS-like naming with a -9999 sentinel.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		Vars:         store.DefaultVariables(),
		TimeUnits:    DefaultTimeUnits,
		MissingValue: float32(domain.DefaultSentinel),
	}
}

// WriteGrid writes g as longitude, latitude, time and a FLOAT
// [time, latitude, longitude] value variable. The time variable is only
// written when g carries a time axis.
func WriteGrid(path string, g *domain.Grid, opts WriteOptions) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid grid: %w", err)
	}

	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create NetCDF file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	timeDim, err := f.AddDim(opts.Vars.Time, uint64(g.NTime))
	if err != nil {
		return fmt.Errorf("add time dim: %w", err)
	}
	latDim, err := f.AddDim(opts.Vars.Lat, uint64(len(g.Lats)))
	if err != nil {
		return fmt.Errorf("add lat dim: %w", err)
	}
	lonDim, err := f.AddDim(opts.Vars.Lon, uint64(len(g.Lons)))
	if err != nil {
		return fmt.Errorf("add lon dim: %w", err)
	}

	lonVar, err := f.AddVar(opts.Vars.Lon, netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return fmt.Errorf("add lon var: %w", err)
	}
	latVar, err := f.AddVar(opts.Vars.Lat, netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return fmt.Errorf("add lat var: %w", err)
	}

	var (
		timeVar     netcdf.Var
		timeOffsets []float64
	)
	if len(g.Times) > 0 {
		base, err := store.ParseTimeUnits(opts.TimeUnits)
		if err != nil {
			return err
		}
		timeOffsets = base.Encode(g.Times)
		if timeVar, err = f.AddVar(opts.Vars.Time, netcdf.DOUBLE, []netcdf.Dim{timeDim}); err != nil {
			return fmt.Errorf("add time var: %w", err)
		}
		if err := timeVar.Attr("units").WriteBytes([]byte(opts.TimeUnits)); err != nil {
			return fmt.Errorf("write time units: %w", err)
		}
	}

	dataVar, err := f.AddVar(opts.Vars.Value, netcdf.FLOAT, []netcdf.Dim{timeDim, latDim, lonDim})
	if err != nil {
		return fmt.Errorf("add data var: %w", err)
	}
	if err := dataVar.Attr("missing_value").WriteFloat32s([]float32{opts.MissingValue}); err != nil {
		return fmt.Errorf("write missing_value: %w", err)
	}

	if err := f.EndDef(); err != nil {
		return fmt.Errorf("enddef: %w", err)
	}

	if err := lonVar.WriteFloat64s(g.Lons); err != nil {
		return fmt.Errorf("write lon: %w", err)
	}
	if err := latVar.WriteFloat64s(g.Lats); err != nil {
		return fmt.Errorf("write lat: %w", err)
	}
	if timeOffsets != nil {
		if err := timeVar.WriteFloat64s(timeOffsets); err != nil {
			return fmt.Errorf("write time: %w", err)
		}
	}

	flat := make([]float32, len(g.Values))
	for i, v := range g.Values {
		flat[i] = float32(v)
	}
	if err := dataVar.WriteFloat32s(flat); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}
