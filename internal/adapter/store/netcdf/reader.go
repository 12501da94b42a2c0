// Package netcdf reads and writes precipitation grids with the NetCDF C
// library.
package netcdf

import (
	"fmt"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/precip-regions/internal/adapter/store"
	"go.ngs.io/precip-regions/internal/domain"
)

// Reader loads grids from NetCDF files.
type Reader struct{}

// NewReader creates a NetCDF grid reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadGrid reads the longitude, latitude and optional time axes and the
// 3-D value variable of the file at path. With vars.Window set only the
// lat/lon hyperslab around the window is read, across all time steps.
//
//nolint:gocyclo // Variable probing and dimension-order detection.
func (r *Reader) ReadGrid(path string, vars store.Variables) (*domain.Grid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	lonVar, err := findVar(nc, vars.LonNames())
	if err != nil {
		return nil, fmt.Errorf("longitude variable not found (tried: %v)", vars.LonNames())
	}
	lons, err := readAxis(lonVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read longitude: %w", err)
	}

	latVar, err := findVar(nc, vars.LatNames())
	if err != nil {
		return nil, fmt.Errorf("latitude variable not found (tried: %v)", vars.LatNames())
	}
	lats, err := readAxis(latVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read latitude: %w", err)
	}

	dataVar, err := findVar(nc, vars.ValueNames())
	if err != nil {
		return nil, fmt.Errorf("data variable not found (tried: %v)", vars.ValueNames())
	}

	dims, err := dataVar.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("expected 3D data, got %dD", len(dims))
	}
	lens := make([]uint64, 3)
	for i, d := range dims {
		if lens[i], err = d.Len(); err != nil {
			return nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
	}

	nTime, nLat, nLon := int(lens[0]), len(lats), len(lons)
	var lonFirst bool
	switch {
	case lens[1] == uint64(nLat) && lens[2] == uint64(nLon):
	case lens[1] == uint64(nLon) && lens[2] == uint64(nLat):
		// Data is [time, lon, lat].
		lonFirst = true
	default:
		return nil, fmt.Errorf("%w: data is [%d, %d, %d], expected [time, %d, %d] or [time, %d, %d]",
			domain.ErrShapeMismatch, lens[0], lens[1], lens[2], nLat, nLon, nLon, nLat)
	}

	lonStart, lonCount, latStart, latCount := vars.Window.Slice(lons, lats)
	//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF indices.
	start := []uint64{0, uint64(latStart), uint64(lonStart)}
	//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF dimensions.
	count := []uint64{uint64(nTime), uint64(latCount), uint64(lonCount)}
	if lonFirst {
		start[1], start[2] = start[2], start[1]
		count[1], count[2] = count[2], count[1]
	}

	values, err := readSlice(dataVar, start, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if lonFirst {
		values = transposePlanes(values, nTime, lonCount, latCount)
	}
	store.MaskFill(values, fillValues(dataVar))
	applyScale(dataVar, values)

	lons = lons[lonStart : lonStart+lonCount]
	lats = lats[latStart : latStart+latCount]
	grid := &domain.Grid{Lons: lons, Lats: lats, NTime: nTime, Values: values}

	if timeVar, err := findVar(nc, vars.TimeNames()); err == nil {
		offsets, err := readAxis(timeVar)
		if err != nil {
			return nil, fmt.Errorf("failed to read time: %w", err)
		}
		if units, ok := stringAttr(timeVar, "units"); ok {
			if grid.Times, err = store.DecodeTimes(units, offsets); err != nil {
				return nil, fmt.Errorf("time axis: %w", err)
			}
		}
	}

	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid in %s: %w", path, err)
	}
	return grid, nil
}

func findVar(nc netcdf.Dataset, names []string) (netcdf.Var, error) {
	var lastErr error
	for _, name := range names {
		v, err := nc.Var(name)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return netcdf.Var{}, lastErr
}

// readAxis reads a 1D variable as float64.
func readAxis(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readSlice(v, []uint64{0}, []uint64{length})
}

// readSlice reads the hyperslab at start with extent count, converting to
// float64.
func readSlice(v netcdf.Var, start, count []uint64) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	n := 1
	for _, c := range count {
		n *= int(c) //nolint:gosec // G115: Bounded by the dimension lengths.
	}
	out := make([]float64, n)
	switch t {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
	case netcdf.FLOAT:
		tmp := make([]float32, n)
		if err := v.ReadFloat32Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, n)
		if err := v.ReadInt32Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, n)
		if err := v.ReadInt16Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
	return out, nil
}

// transposePlanes turns each [nRows][nCols] time plane into [nCols][nRows].
func transposePlanes(values []float64, nTime, nRows, nCols int) []float64 {
	out := make([]float64, len(values))
	plane := nRows * nCols
	for t := 0; t < nTime; t++ {
		base := t * plane
		for i := 0; i < nRows; i++ {
			for j := 0; j < nCols; j++ {
				out[base+j*nRows+i] = values[base+i*nCols+j]
			}
		}
	}
	return out
}

// applyScale applies scale_factor and add_offset when present.
func applyScale(v netcdf.Var, values []float64) {
	scale, hasScale := floatAttr(v, "scale_factor")
	offset, hasOffset := floatAttr(v, "add_offset")
	if !hasScale && !hasOffset {
		return
	}
	if !hasScale {
		scale = 1
	}
	for i, val := range values {
		values[i] = val*scale + offset
	}
}

// fillValues returns the _FillValue and missing_value attributes in packed
// space.
func fillValues(v netcdf.Var) []float64 {
	var fills []float64
	for _, name := range []string{"_FillValue", "missing_value"} {
		if f, ok := floatAttr(v, name); ok {
			fills = append(fills, f)
		}
	}
	return fills
}

// floatAttr returns a numeric attribute as float64.
func floatAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, 1)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, 1)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi := make([]int32, 1)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	bufs := make([]int16, 1)
	if err := a.ReadInt16s(bufs); err == nil {
		return float64(bufs[0]), true
	}
	return 0, false
}

// stringAttr returns a text attribute.
func stringAttr(v netcdf.Var, name string) (string, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return "", false
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", false
	}
	return strings.TrimRight(string(buf), "\x00"), true
}
