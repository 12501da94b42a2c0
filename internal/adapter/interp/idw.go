// Package interp attributes gridded values to region centroids.
package interp

import (
	"fmt"
	"math"

	"go.ngs.io/precip-regions/internal/domain"
)

// Candidate is one of the four grid cells surrounding a centroid.
type Candidate struct {
	LatIdx   int
	LonIdx   int
	Distance float64   // Euclidean distance in degrees.
	Series   []float64 // Raw values over time.
}

// Candidates forms the four cells (lat1,lon1), (lat1,lon2), (lat2,lon1),
// (lat2,lon2) and their distances to (lon, lat).
func Candidates(g *domain.Grid, lon, lat float64, idx CellIndices) ([]Candidate, error) {
	pairs := [4][2]int{
		{idx.Lat1, idx.Lon1},
		{idx.Lat1, idx.Lon2},
		{idx.Lat2, idx.Lon1},
		{idx.Lat2, idx.Lon2},
	}
	out := make([]Candidate, 0, len(pairs))
	for _, p := range pairs {
		series, err := g.Series(p[0], p[1])
		if err != nil {
			return nil, err
		}
		dx := g.Lons[p[1]] - lon
		dy := g.Lats[p[0]] - lat
		out = append(out, Candidate{
			LatIdx:   p[0],
			LonIdx:   p[1],
			Distance: math.Sqrt(dx*dx + dy*dy),
			Series:   series,
		})
	}
	return out, nil
}

// InverseDistance combines candidate series into one series of length n.
//
// At each step the value is sum(v/d) / sum(1/d) over the candidates whose
// value is not missing under policy; the step is NaN when all are missing.
// A candidate at distance zero supplies its value outright; when that value
// is missing the remaining candidates are weighted as usual.
func InverseDistance(cands []Candidate, policy domain.MissingPolicy, n int) ([]float64, error) {
	exact := -1
	for i, c := range cands {
		if len(c.Series) != n {
			return nil, fmt.Errorf("%w: candidate (%d, %d) has %d steps, expected %d",
				domain.ErrShapeMismatch, c.LatIdx, c.LonIdx, len(c.Series), n)
		}
		if c.Distance == 0 && exact < 0 {
			exact = i
		}
	}

	out := make([]float64, n)
	for t := range out {
		if exact >= 0 {
			if v := cands[exact].Series[t]; !policy.IsMissing(v) {
				out[t] = v
				continue
			}
		}
		var num, den float64
		for _, c := range cands {
			v := c.Series[t]
			if c.Distance == 0 || policy.IsMissing(v) {
				continue
			}
			num += v / c.Distance
			den += 1 / c.Distance
		}
		if den == 0 {
			out[t] = math.NaN()
			continue
		}
		out[t] = num / den
	}
	return out, nil
}

// Method selects how a region's value is taken from the grid.
type Method string

const (
	// MethodIDW weights the four surrounding cells by inverse distance.
	MethodIDW Method = "idw"
	// MethodNearest takes the single nearest cell.
	MethodNearest Method = "nearest"
	// MethodBilinear interpolates within the enclosing cell of sorted axes.
	MethodBilinear Method = "bilinear"
)

// ParseMethod converts a configuration value into a Method.
// An empty value selects MethodIDW.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodIDW:
		return MethodIDW, nil
	case MethodNearest:
		return MethodNearest, nil
	case MethodBilinear:
		return MethodBilinear, nil
	}
	return "", fmt.Errorf("unknown interpolation method %q (use %s, %s or %s)", s, MethodIDW, MethodNearest, MethodBilinear)
}

// Interpolator produces region series from a grid.
type Interpolator struct {
	Method Method
	Policy domain.MissingPolicy
}

// NewInterpolator creates an interpolator; a nil policy means NaN-only.
func NewInterpolator(method Method, policy domain.MissingPolicy) *Interpolator {
	if method == "" {
		method = MethodIDW
	}
	if policy == nil {
		policy = domain.NaNPolicy{}
	}
	return &Interpolator{Method: method, Policy: policy}
}

// Interpolate computes the series of one region. The centroid longitude is
// first expressed in the convention of the grid's longitude axis.
func (ip *Interpolator) Interpolate(g *domain.Grid, r domain.Region) (domain.RegionSeries, error) {
	r.Lon = NormalizeLon(g.Lons, r.Lon)
	var (
		values []float64
		err    error
	)
	switch ip.Method {
	case MethodNearest:
		values, err = ip.nearest(g, r)
	case MethodBilinear:
		values, err = ip.bilinear(g, r)
	default:
		values, err = ip.idw(g, r)
	}
	if err != nil {
		return domain.RegionSeries{}, fmt.Errorf("region %s: %w", r.ID, err)
	}
	return domain.RegionSeries{RegionID: r.ID, Values: values}, nil
}

func (ip *Interpolator) idw(g *domain.Grid, r domain.Region) ([]float64, error) {
	idx, err := Locate(g.Lons, g.Lats, r.Lon, r.Lat)
	if err != nil {
		return nil, err
	}
	cands, err := Candidates(g, r.Lon, r.Lat, idx)
	if err != nil {
		return nil, err
	}
	return InverseDistance(cands, ip.Policy, g.NTime)
}

func (ip *Interpolator) nearest(g *domain.Grid, r domain.Region) ([]float64, error) {
	lonIdx, latIdx, err := Nearest(g.Lons, g.Lats, r.Lon, r.Lat)
	if err != nil {
		return nil, err
	}
	series, err := g.Series(latIdx, lonIdx)
	if err != nil {
		return nil, err
	}
	for t, v := range series {
		if ip.Policy.IsMissing(v) {
			series[t] = math.NaN()
		}
	}
	return series, nil
}
