package store

import (
	"math"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/domain"
)

// WindowMargin is the number of cells read beyond a window on every side.
// The locator's two nearest indices per axis are at most one cell from the
// nearest one, so two keeps every candidate inside the read.
const WindowMargin = 2

// Window is a longitude/latitude bounding box a read is limited to.
type Window struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
}

// RegionWindow returns the bounding box of the regions that have a
// coordinate, or nil when none has one.
func RegionWindow(regions []domain.Region) *Window {
	var w *Window
	for _, r := range regions {
		if !r.HasCoordinate() {
			continue
		}
		if w == nil {
			w = &Window{LonMin: r.Lon, LonMax: r.Lon, LatMin: r.Lat, LatMax: r.Lat}
			continue
		}
		w.LonMin, w.LonMax = math.Min(w.LonMin, r.Lon), math.Max(w.LonMax, r.Lon)
		w.LatMin, w.LatMax = math.Min(w.LatMin, r.Lat), math.Max(w.LatMax, r.Lat)
	}
	return w
}

// Slice resolves w against the axes into [start, start+count) index ranges.
// A nil window selects the whole grid. Window longitudes are expressed in the
// axis convention first.
func (w *Window) Slice(lons, lats []float64) (lonStart, lonCount, latStart, latCount int) {
	if w == nil {
		return 0, len(lons), 0, len(lats)
	}
	lo := interp.NormalizeLon(lons, w.LonMin)
	hi := interp.NormalizeLon(lons, w.LonMax)
	lonStart, lonCount = Span(lons, math.Min(lo, hi), math.Max(lo, hi), WindowMargin)
	latStart, latCount = Span(lats, w.LatMin, w.LatMax, WindowMargin)
	return lonStart, lonCount, latStart, latCount
}

// Span returns the index range covering [lo, hi] on axis plus margin cells
// on each side, clamped to the axis. Axes that are not strictly monotonic
// are returned whole.
func Span(axis []float64, lo, hi float64, margin int) (start, count int) {
	n := len(axis)
	if n == 0 || !monotonic(axis) {
		return 0, n
	}
	i0, i1 := nearestIndex(axis, lo), nearestIndex(axis, hi)
	first, last := min(i0, i1)-margin, max(i0, i1)+margin
	first, last = max(first, 0), min(last, n-1)
	return first, last - first + 1
}

func monotonic(axis []float64) bool {
	if len(axis) < 2 {
		return true
	}
	ascending := axis[1] > axis[0]
	for i := 1; i < len(axis); i++ {
		if axis[i] == axis[i-1] || (axis[i] > axis[i-1]) != ascending {
			return false
		}
	}
	return true
}

func nearestIndex(axis []float64, x float64) int {
	best := 0
	for i := 1; i < len(axis); i++ {
		if math.Abs(axis[i]-x) < math.Abs(axis[best]-x) {
			best = i
		}
	}
	return best
}

// IsFill reports whether raw equals one of the fill values. Comparison is in
// packed space, before any scale_factor/add_offset.
func IsFill(raw float64, fills []float64) bool {
	for _, f := range fills {
		if raw == f {
			return true
		}
	}
	return false
}

// MaskFill replaces fill values with NaN.
func MaskFill(values, fills []float64) {
	if len(fills) == 0 {
		return
	}
	for i, v := range values {
		if IsFill(v, fills) {
			values[i] = math.NaN()
		}
	}
}
