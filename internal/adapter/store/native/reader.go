// Package native reads precipitation grids with a pure-Go NetCDF decoder, for
// hosts without the NetCDF C library.
package native

import (
	"errors"
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"go.ngs.io/precip-regions/internal/adapter/store"
	"go.ngs.io/precip-regions/internal/domain"
)

var errUnsupportedType = errors.New("unsupported variable type")

// Reader loads grids through github.com/batchatco/go-native-netcdf.
type Reader struct{}

// NewReader creates a pure-Go grid reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadGrid mirrors the cgo reader: 1-D axes, optional CF time axis, and a
// [time, lat, lon] (or [time, lon, lat]) value variable decoded one time
// step at a time and cropped to vars.Window.
func (r *Reader) ReadGrid(path string, vars store.Variables) (*domain.Grid, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer nc.Close()

	lons, err := readAxis(nc, vars.LonNames())
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}
	lats, err := readAxis(nc, vars.LatNames())
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}

	dataVar, err := findGetter(nc, vars.ValueNames())
	if err != nil {
		return nil, fmt.Errorf("data variable: %w", err)
	}

	nLat, nLon := len(lats), len(lons)
	lonStart, lonCount, latStart, latCount := vars.Window.Slice(lons, lats)
	nTime := int(dataVar.Len())
	values := make([]float64, 0, nTime*latCount*lonCount)
	for t := int64(0); t < dataVar.Len(); t++ {
		plane, err := readPlane(dataVar, t)
		if err != nil {
			return nil, fmt.Errorf("data variable: time step %d: %w", t, err)
		}
		switch {
		case planeShape(plane, nLat, nLon):
			for i := latStart; i < latStart+latCount; i++ {
				values = append(values, plane[i][lonStart:lonStart+lonCount]...)
			}
		case planeShape(plane, nLon, nLat):
			for i := latStart; i < latStart+latCount; i++ {
				for j := lonStart; j < lonStart+lonCount; j++ {
					values = append(values, plane[j][i])
				}
			}
		default:
			return nil, fmt.Errorf("%w: time step %d does not match [%d, %d] or [%d, %d]",
				domain.ErrShapeMismatch, t, nLat, nLon, nLon, nLat)
		}
	}
	attrs := dataVar.Attributes()
	store.MaskFill(values, fillValues(attrs))
	applyScale(attrs, values)

	lons = lons[lonStart : lonStart+lonCount]
	lats = lats[latStart : latStart+latCount]
	grid := &domain.Grid{Lons: lons, Lats: lats, NTime: nTime, Values: values}

	if timeVar, err := findVariable(nc, vars.TimeNames()); err == nil {
		offsets, err := toFloat64s(timeVar.Values)
		if err != nil {
			return nil, fmt.Errorf("time: %w", err)
		}
		if units, ok := stringAttr(timeVar.Attributes, "units"); ok {
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

func findVariable(nc api.Group, names []string) (*api.Variable, error) {
	for _, name := range names {
		if v, err := nc.GetVariable(name); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("not found (tried: %v)", names)
}

func findGetter(nc api.Group, names []string) (api.VarGetter, error) {
	for _, name := range names {
		if v, err := nc.GetVarGetter(name); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("not found (tried: %v)", names)
}

// readPlane decodes time step t of a 3D variable without loading the others.
func readPlane(vg api.VarGetter, t int64) ([][]float64, error) {
	raw, err := vg.GetSlice(t, t+1)
	if err != nil {
		return nil, err
	}
	cube, err := toFloat64Cube(raw)
	if err != nil {
		return nil, err
	}
	if len(cube) != 1 {
		return nil, fmt.Errorf("%w: slice holds %d steps", domain.ErrShapeMismatch, len(cube))
	}
	return cube[0], nil
}

func readAxis(nc api.Group, names []string) ([]float64, error) {
	v, err := findVariable(nc, names)
	if err != nil {
		return nil, err
	}
	return toFloat64s(v.Values)
}

func planeShape(plane [][]float64, rows, cols int) bool {
	if len(plane) != rows {
		return false
	}
	for _, row := range plane {
		if len(row) != cols {
			return false
		}
	}
	return true
}

type number interface {
	~float64 | ~float32 | ~int64 | ~int32 | ~int16 | ~int8 | ~uint8
}

func convert[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func convertCube[T number](in [][][]T) [][][]float64 {
	out := make([][][]float64, len(in))
	for t, plane := range in {
		out[t] = make([][]float64, len(plane))
		for i, row := range plane {
			out[t][i] = convert(row)
		}
	}
	return out
}

func toFloat64s(values any) ([]float64, error) {
	switch v := values.(type) {
	case []float64:
		return v, nil
	case []float32:
		return convert(v), nil
	case []int64:
		return convert(v), nil
	case []int32:
		return convert(v), nil
	case []int16:
		return convert(v), nil
	case []int8:
		return convert(v), nil
	}
	return nil, fmt.Errorf("%w: %T", errUnsupportedType, values)
}

func toFloat64Cube(values any) ([][][]float64, error) {
	switch v := values.(type) {
	case [][][]float64:
		return v, nil
	case [][][]float32:
		return convertCube(v), nil
	case [][][]int32:
		return convertCube(v), nil
	case [][][]int16:
		return convertCube(v), nil
	}
	return nil, fmt.Errorf("%w: %T (expected a 3D numeric variable)", errUnsupportedType, values)
}

func floatAttr(attrs api.AttributeMap, name string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	raw, ok := attrs.Get(name)
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return 0, false
}

// fillValues returns the _FillValue and missing_value attributes in packed
// space.
func fillValues(attrs api.AttributeMap) []float64 {
	var fills []float64
	for _, name := range []string{"_FillValue", "missing_value"} {
		if f, ok := floatAttr(attrs, name); ok {
			fills = append(fills, f)
		}
	}
	return fills
}

func stringAttr(attrs api.AttributeMap, name string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	raw, ok := attrs.Get(name)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func applyScale(attrs api.AttributeMap, values []float64) {
	scale, hasScale := floatAttr(attrs, "scale_factor")
	offset, hasOffset := floatAttr(attrs, "add_offset")
	if !hasScale && !hasOffset {
		return
	}
	if !hasScale {
		scale = 1
	}
	for i, v := range values {
		values[i] = v*scale + offset
	}
}
