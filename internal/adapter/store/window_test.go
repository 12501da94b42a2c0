package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/precip-regions/internal/domain"
)

func TestRegionWindow(t *testing.T) {
	assert.Nil(t, RegionWindow(nil))
	assert.Nil(t, RegionWindow([]domain.Region{{ID: "x", Lon: math.NaN(), Lat: 1}}))

	w := RegionWindow([]domain.Region{
		{ID: "a", Lon: 36.8, Lat: -1.3},
		{ID: "b", Lon: math.NaN(), Lat: math.NaN()},
		{ID: "c", Lon: 34.7, Lat: 0.5},
		{ID: "d", Lon: 39.6, Lat: -4.0},
	})
	require.NotNil(t, w)
	assert.Equal(t, Window{LonMin: 34.7, LonMax: 39.6, LatMin: -4.0, LatMax: 0.5}, *w)
}

func TestSpan(t *testing.T) {
	ascending := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	descending := []float64{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}

	tests := []struct {
		name      string
		axis      []float64
		lo, hi    float64
		margin    int
		wantStart int
		wantCount int
	}{
		{"interior", ascending, 3.2, 5.9, 2, 1, 8},
		{"clamped low", ascending, -5, 1, 2, 0, 4},
		{"clamped high", ascending, 8.4, 20, 2, 6, 4},
		{"single point", ascending, 4, 4, 1, 3, 3},
		{"descending", descending, 3, 5, 2, 2, 7},
		{"empty", nil, 0, 1, 2, 0, 0},
		{"not monotonic", []float64{0, 2, 1, 3}, 1, 1, 0, 0, 4},
		{"repeated", []float64{0, 1, 1, 2}, 1, 1, 0, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, count := Span(tt.axis, tt.lo, tt.hi, tt.margin)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestWindowSlice(t *testing.T) {
	lons := []float64{0, 60, 120, 180, 240, 300}
	lats := []float64{-60, -30, 0, 30, 60}

	var none *Window
	lonStart, lonCount, latStart, latCount := none.Slice(lons, lats)
	assert.Equal(t, []int{0, 6, 0, 5}, []int{lonStart, lonCount, latStart, latCount})

	// -60 is expressed as 300 on a 0..360 axis before the span is taken.
	w := &Window{LonMin: -60, LonMax: -60, LatMin: 60, LatMax: 60}
	lonStart, lonCount, latStart, latCount = w.Slice(lons, lats)
	assert.Equal(t, []int{3, 3, 2, 3}, []int{lonStart, lonCount, latStart, latCount})
}

func TestMaskFill(t *testing.T) {
	values := []float64{1, -9999, 3, -32768, math.NaN()}
	MaskFill(values, []float64{-9999, -32768})
	assert.Equal(t, 1.0, values[0])
	assert.True(t, math.IsNaN(values[1]))
	assert.Equal(t, 3.0, values[2])
	assert.True(t, math.IsNaN(values[3]))
	assert.True(t, math.IsNaN(values[4]))

	untouched := []float64{-9999}
	MaskFill(untouched, nil)
	assert.Equal(t, []float64{-9999}, untouched)
}
