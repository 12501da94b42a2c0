package interp

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNoCoordinate is returned for a query point with a NaN coordinate.
	ErrNoCoordinate = errors.New("region has no coordinate")
	// ErrAxisTooShort is returned when an axis has fewer than two points.
	ErrAxisTooShort = errors.New("axis has fewer than two points")
)

// CellIndices holds the two nearest longitude and latitude indices of a point.
type CellIndices struct {
	Lon1, Lon2 int
	Lat1, Lat2 int
}

// Locate finds the two nearest longitudes and the two nearest latitudes to
// (lon, lat). Selection is by distance rank, so the two indices need not be
// neighbours on the axis. Ties go to the lower index.
func Locate(lons, lats []float64, lon, lat float64) (CellIndices, error) {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return CellIndices{}, ErrNoCoordinate
	}
	lon1, lon2, err := nearestTwo(lons, lon)
	if err != nil {
		return CellIndices{}, fmt.Errorf("longitude: %w", err)
	}
	lat1, lat2, err := nearestTwo(lats, lat)
	if err != nil {
		return CellIndices{}, fmt.Errorf("latitude: %w", err)
	}
	return CellIndices{Lon1: lon1, Lon2: lon2, Lat1: lat1, Lat2: lat2}, nil
}

// nearestTwo returns the indices of the two axis values closest to target,
// in the order of a stable ascending sort by absolute difference.
func nearestTwo(axis []float64, target float64) (int, int, error) {
	if len(axis) < 2 {
		return 0, 0, ErrAxisTooShort
	}
	idx := make([]int, len(axis))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(axis[idx[a]]-target) < math.Abs(axis[idx[b]]-target)
	})
	return idx[0], idx[1], nil
}

// Nearest returns the single nearest longitude and latitude index
// (argmin of the absolute difference, lower index on tie).
func Nearest(lons, lats []float64, lon, lat float64) (lonIdx, latIdx int, err error) {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return 0, 0, ErrNoCoordinate
	}
	if len(lons) == 0 || len(lats) == 0 {
		return 0, 0, fmt.Errorf("empty axis")
	}
	return argmin(lons, lon), argmin(lats, lat), nil
}

func argmin(axis []float64, target float64) int {
	best := 0
	bestDist := math.Abs(axis[0] - target)
	for i := 1; i < len(axis); i++ {
		if d := math.Abs(axis[i] - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// NormalizeLon expresses lon in the convention of the axis: [0, 360) for
// axes that extend past 180, (-180, 180] otherwise.
func NormalizeLon(lons []float64, lon float64) float64 {
	if len(lons) == 0 || math.IsNaN(lon) {
		return lon
	}
	lo, hi := lons[0], lons[0]
	for _, v := range lons[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo >= 0 && hi > 180 {
		lon = math.Mod(lon, 360)
		if lon < 0 {
			lon += 360
		}
		return lon
	}
	if lon > 180 {
		return lon - 360
	}
	return lon
}
