package netcdf

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/adapter/store"
	"go.ngs.io/precip-regions/internal/domain"
)

// assertValues compares grid values, treating NaN as equal to NaN.
func assertValues(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "value %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-6, "value %d", i)
	}
}

// masked returns values with the writer's missing value replaced by NaN.
func masked(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == -9999 {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

func sampleGrid(t *testing.T) *domain.Grid {
	t.Helper()
	g, err := domain.NewGrid(
		[]float64{-100, -99.75, -99.5},
		[]float64{20, 20.25},
		[][][]float64{
			{{1, 2, 3}, {4, 5, -9999}},
			{{0.5, 0, 0.25}, {8, 16, 32}},
		},
	)
	require.NoError(t, err)
	g.Times = []time.Time{
		time.Date(1981, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1981, time.January, 2, 0, 0, 0, 0, time.UTC),
	}
	return g
}

func TestWriteThenReadGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chirps.nc")
	want := sampleGrid(t)
	require.NoError(t, WriteGrid(path, want, DefaultWriteOptions()))

	got, err := NewReader().ReadGrid(path, store.DefaultVariables())
	require.NoError(t, err)

	assert.Equal(t, want.Lons, got.Lons)
	assert.Equal(t, want.Lats, got.Lats)
	assert.Equal(t, want.NTime, got.NTime)
	assertValues(t, masked(want.Values), got.Values)
	require.Len(t, got.Times, 2)
	assert.True(t, want.Times[1].Equal(got.Times[1]))
}

func TestReadGrid_NoTimeVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annual.nc")
	g := sampleGrid(t)
	g.Times = nil
	require.NoError(t, WriteGrid(path, g, DefaultWriteOptions()))

	got, err := NewReader().ReadGrid(path, store.DefaultVariables())
	require.NoError(t, err)
	assert.Nil(t, got.Times)
	assert.Equal(t, 2, got.NTime)
}

// writeLonLatFile writes a [time, lon, lat] file with short lon/lat names
// and a scaled SHORT data variable.
func writeLonLatFile(t *testing.T, path string) {
	t.Helper()
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	timeDim, err := f.AddDim("time", 1)
	require.NoError(t, err)
	lonDim, err := f.AddDim("lon", 3)
	require.NoError(t, err)
	latDim, err := f.AddDim("lat", 2)
	require.NoError(t, err)

	vlon, err := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	require.NoError(t, err)
	vlat, err := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	require.NoError(t, err)
	vdata, err := f.AddVar("precip", netcdf.SHORT, []netcdf.Dim{timeDim, lonDim, latDim})
	require.NoError(t, err)
	require.NoError(t, vdata.Attr("scale_factor").WriteFloat64s([]float64{0.5}))
	require.NoError(t, vdata.Attr("add_offset").WriteFloat64s([]float64{1}))
	require.NoError(t, f.EndDef())

	require.NoError(t, vlon.WriteFloat64s([]float64{10, 11, 12}))
	require.NoError(t, vlat.WriteFloat64s([]float64{0, 1}))
	// [lon][lat]: lon0 -> {0, 2}, lon1 -> {4, 6}, lon2 -> {8, 10}.
	require.NoError(t, vdata.WriteInt16s([]int16{0, 2, 4, 6, 8, 10}))
}

func TestReadGrid_TransposesLonLatAndScales(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lonlat.nc")
	writeLonLatFile(t, path)

	got, err := NewReader().ReadGrid(path, store.DefaultVariables())
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 11, 12}, got.Lons)
	assert.Equal(t, []float64{0, 1}, got.Lats)
	// [lat][lon] after transpose, then v*0.5 + 1.
	assert.Equal(t, []float64{1, 3, 5, 2, 4, 6}, got.Values)
	assert.Equal(t, 4.0, got.At(0, 1, 1))
}

// writePackedFile writes a [time, lat, lon] SHORT variable packed with
// scale_factor 0.1 and carrying both _FillValue and missing_value.
func writePackedFile(t *testing.T, path string) {
	t.Helper()
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	timeDim, err := f.AddDim("time", 1)
	require.NoError(t, err)
	latDim, err := f.AddDim("latitude", 2)
	require.NoError(t, err)
	lonDim, err := f.AddDim("longitude", 3)
	require.NoError(t, err)

	vlon, err := f.AddVar("longitude", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	require.NoError(t, err)
	vlat, err := f.AddVar("latitude", netcdf.DOUBLE, []netcdf.Dim{latDim})
	require.NoError(t, err)
	vdata, err := f.AddVar("precip", netcdf.SHORT, []netcdf.Dim{timeDim, latDim, lonDim})
	require.NoError(t, err)
	require.NoError(t, vdata.Attr("scale_factor").WriteFloat64s([]float64{0.1}))
	require.NoError(t, vdata.Attr("_FillValue").WriteInt16s([]int16{-32768}))
	require.NoError(t, vdata.Attr("missing_value").WriteInt16s([]int16{-9999}))
	require.NoError(t, f.EndDef())

	require.NoError(t, vlon.WriteFloat64s([]float64{30, 30.05, 30.1}))
	require.NoError(t, vlat.WriteFloat64s([]float64{-1, -0.95}))
	require.NoError(t, vdata.WriteInt16s([]int16{10, -9999, 25, -32768, 0, 7}))
}

func TestReadGrid_PackedShortMasksFillBeforeScaling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packed.nc")
	writePackedFile(t, path)

	got, err := NewReader().ReadGrid(path, store.DefaultVariables())
	require.NoError(t, err)
	assertValues(t, []float64{1, math.NaN(), 2.5, math.NaN(), 0, 0.7}, got.Values)

	// Under the NaN-only policy the missing cell stays missing instead of
	// reading as -999.9.
	ip := interp.NewInterpolator(interp.MethodNearest, domain.NaNPolicy{})
	series, err := ip.Interpolate(got, domain.Region{ID: "r", Lon: 30.05, Lat: -1})
	require.NoError(t, err)
	require.Len(t, series.Values, 1)
	assert.True(t, math.IsNaN(series.Values[0]))
}

// largeGrid builds a 24 x 16 grid of distinct values over three steps.
func largeGrid(t *testing.T) *domain.Grid {
	t.Helper()
	lons := make([]float64, 24)
	for j := range lons {
		lons[j] = 20 + 0.25*float64(j)
	}
	// Descending latitudes, as in many CHIRPS derivatives.
	lats := make([]float64, 16)
	for i := range lats {
		lats[i] = 10 - 0.25*float64(i)
	}
	values := make([][][]float64, 3)
	for s := range values {
		values[s] = make([][]float64, len(lats))
		for i := range lats {
			values[s][i] = make([]float64, len(lons))
			for j := range lons {
				values[s][i][j] = 0.25 * float64(s*400+i*24+j)
			}
		}
	}
	g, err := domain.NewGrid(lons, lats, values)
	require.NoError(t, err)
	return g
}

func TestReadGrid_WindowMatchesFullRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.nc")
	require.NoError(t, WriteGrid(path, largeGrid(t), DefaultWriteOptions()))

	regions := []domain.Region{
		{ID: "a", Lon: 21.6, Lat: 7.4},
		{ID: "b", Lon: 22.9, Lat: 8.1},
		{ID: "c", Lon: 22.1, Lat: 6.6},
		{ID: "none", Lon: math.NaN(), Lat: math.NaN()},
	}

	full, err := NewReader().ReadGrid(path, store.DefaultVariables())
	require.NoError(t, err)
	vars := store.DefaultVariables()
	vars.Window = store.RegionWindow(regions)
	sub, err := NewReader().ReadGrid(path, vars)
	require.NoError(t, err)

	assert.Less(t, len(sub.Lons), len(full.Lons))
	assert.Less(t, len(sub.Lats), len(full.Lats))
	assert.Len(t, sub.Values, sub.NTime*len(sub.Lats)*len(sub.Lons))
	assert.Equal(t, full.NTime, sub.NTime)

	for _, method := range []interp.Method{interp.MethodIDW, interp.MethodNearest, interp.MethodBilinear} {
		ip := interp.NewInterpolator(method, domain.NaNPolicy{})
		for _, r := range regions[:3] {
			want, err := ip.Interpolate(full, r)
			require.NoError(t, err)
			got, err := ip.Interpolate(sub, r)
			require.NoError(t, err)
			assert.InDeltaSlice(t, want.Values, got.Values, 1e-9, "%s %s", method, r.ID)
		}
	}
}

// writeLonFirstGrid writes g as a DOUBLE [time, lon, lat] variable.
func writeLonFirstGrid(t *testing.T, path string, g *domain.Grid) {
	t.Helper()
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	timeDim, err := f.AddDim("time", uint64(g.NTime))
	require.NoError(t, err)
	lonDim, err := f.AddDim("lon", uint64(len(g.Lons)))
	require.NoError(t, err)
	latDim, err := f.AddDim("lat", uint64(len(g.Lats)))
	require.NoError(t, err)

	vlon, err := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	require.NoError(t, err)
	vlat, err := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	require.NoError(t, err)
	vdata, err := f.AddVar("precip", netcdf.DOUBLE, []netcdf.Dim{timeDim, lonDim, latDim})
	require.NoError(t, err)
	require.NoError(t, f.EndDef())

	require.NoError(t, vlon.WriteFloat64s(g.Lons))
	require.NoError(t, vlat.WriteFloat64s(g.Lats))
	data := make([]float64, 0, len(g.Values))
	for s := 0; s < g.NTime; s++ {
		for j := range g.Lons {
			for i := range g.Lats {
				data = append(data, g.At(s, i, j))
			}
		}
	}
	require.NoError(t, vdata.WriteFloat64s(data))
}

func TestReadGrid_WindowOnLonFirstLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lonfirst.nc")
	g := largeGrid(t)
	writeLonFirstGrid(t, path, g)

	vars := store.DefaultVariables()
	vars.Window = &store.Window{LonMin: 22, LonMax: 22.5, LatMin: 8, LatMax: 8}
	got, err := NewReader().ReadGrid(path, vars)
	require.NoError(t, err)

	// Lon indices 8..10 and lat index 8, each widened by two cells.
	assert.Equal(t, g.Lons[6:13], got.Lons)
	assert.Equal(t, g.Lats[6:11], got.Lats)
	for s := 0; s < g.NTime; s++ {
		for i := range got.Lats {
			for j := range got.Lons {
				assert.Equal(t, g.At(s, i+6, j+6), got.At(s, i, j))
			}
		}
	}
}

func TestReadGrid_MissingVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chirps.nc")
	require.NoError(t, WriteGrid(path, sampleGrid(t), DefaultWriteOptions()))

	vars := store.DefaultVariables()
	vars.Value = "rainfall"
	vars.Lon = "lng"
	_, err := NewReader().ReadGrid(path, vars)
	require.NoError(t, err, "fallback names still find longitude and precip")

	opts := DefaultWriteOptions()
	opts.Vars.Value = "tmax"
	other := filepath.Join(t.TempDir(), "tmax.nc")
	require.NoError(t, WriteGrid(other, sampleGrid(t), opts))
	_, err = NewReader().ReadGrid(other, store.DefaultVariables())
	assert.ErrorContains(t, err, "data variable not found")
}

func TestReadGrid_FileNotFound(t *testing.T) {
	_, err := NewReader().ReadGrid(filepath.Join(t.TempDir(), "absent.nc"), store.DefaultVariables())
	assert.Error(t, err)
}

func TestTransposePlanes(t *testing.T) {
	// Two planes of [2][3] -> [3][2].
	in := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	got := transposePlanes(in, 2, 2, 3)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6, 7, 10, 8, 11, 9, 12}, got)
}
