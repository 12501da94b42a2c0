package interp

import (
	"errors"
	"fmt"
	"math"

	"go.ngs.io/precip-regions/internal/domain"
)

// ErrOutsideGrid is returned when a point lies outside the axis range.
var ErrOutsideGrid = errors.New("point is outside the grid")

// Corner is one of the four cells enclosing a point, with its bilinear weight.
type Corner struct {
	LatIdx int
	LonIdx int
	Weight float64
}

// BilinearCorners finds the cell enclosing (lon, lat) on monotonic axes and
// returns its corners weighted by
//
//	(1-t)(1-u), t(1-u), (1-t)u, tu
//
// where t and u are the normalized positions along the longitude and
// latitude segments. Axes may be ascending or descending.
func BilinearCorners(lons, lats []float64, lon, lat float64) ([4]Corner, error) {
	var corners [4]Corner
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return corners, ErrNoCoordinate
	}
	j, t, err := bracket(lons, lon)
	if err != nil {
		return corners, fmt.Errorf("longitude: %w", err)
	}
	i, u, err := bracket(lats, lat)
	if err != nil {
		return corners, fmt.Errorf("latitude: %w", err)
	}
	corners[0] = Corner{LatIdx: i, LonIdx: j, Weight: (1 - t) * (1 - u)}
	corners[1] = Corner{LatIdx: i, LonIdx: j + 1, Weight: t * (1 - u)}
	corners[2] = Corner{LatIdx: i + 1, LonIdx: j, Weight: (1 - t) * u}
	corners[3] = Corner{LatIdx: i + 1, LonIdx: j + 1, Weight: t * u}
	return corners, nil
}

// bracket returns the segment [axis[k], axis[k+1]] containing x and the
// normalized position of x within it, clamped to [0, 1].
func bracket(axis []float64, x float64) (int, float64, error) {
	if len(axis) < 2 {
		return 0, 0, ErrAxisTooShort
	}
	const epsilon = 1e-9
	for k := 0; k < len(axis)-1; k++ {
		a0, a1 := axis[k], axis[k+1]
		if a0 == a1 {
			return 0, 0, fmt.Errorf("axis is not strictly monotonic at index %d", k)
		}
		lo, hi := math.Min(a0, a1), math.Max(a0, a1)
		if x < lo-epsilon || x > hi+epsilon {
			continue
		}
		pos := (x - a0) / (a1 - a0)
		return k, math.Max(0, math.Min(1, pos)), nil
	}
	return 0, 0, fmt.Errorf("%w: %.6f not in [%.6f, %.6f]", ErrOutsideGrid, x, axis[0], axis[len(axis)-1])
}

// Bilinear combines the corner series of g into one series. Missing
// corners are dropped and the remaining weights renormalized; a step is
// NaN when every corner with a non-zero weight is missing.
func Bilinear(g *domain.Grid, corners [4]Corner, policy domain.MissingPolicy) ([]float64, error) {
	var series [4][]float64
	for k, c := range corners {
		s, err := g.Series(c.LatIdx, c.LonIdx)
		if err != nil {
			return nil, err
		}
		series[k] = s
	}

	out := make([]float64, g.NTime)
	for t := range out {
		var num, den float64
		for k, c := range corners {
			v := series[k][t]
			if c.Weight == 0 || policy.IsMissing(v) {
				continue
			}
			num += c.Weight * v
			den += c.Weight
		}
		if den == 0 {
			out[t] = math.NaN()
			continue
		}
		out[t] = num / den
	}
	return out, nil
}

func (ip *Interpolator) bilinear(g *domain.Grid, r domain.Region) ([]float64, error) {
	corners, err := BilinearCorners(g.Lons, g.Lats, r.Lon, r.Lat)
	if err != nil {
		return nil, err
	}
	return Bilinear(g, corners, ip.Policy)
}
