package domain

import (
	"fmt"
	"math"
)

// Region is an administrative unit represented by its centroid.
type Region struct {
	ID  string
	Lat float64
	Lon float64
}

// HasCoordinate reports whether both centroid coordinates are set.
func (r Region) HasCoordinate() bool {
	return !math.IsNaN(r.Lat) && !math.IsNaN(r.Lon)
}

// Registry is an ordered set of regions with unique identifiers.
type Registry struct {
	IDColumn string // Name of the identifier column (e.g., "inegi_code").
	Regions  []Region
	index    map[string]int
}

// NewRegistry builds a registry, rejecting duplicate identifiers.
func NewRegistry(idColumn string, regions []Region) (*Registry, error) {
	index := make(map[string]int, len(regions))
	for i, r := range regions {
		if _, ok := index[r.ID]; ok {
			return nil, fmt.Errorf("duplicate region identifier %q", r.ID)
		}
		index[r.ID] = i
	}
	return &Registry{
		IDColumn: idColumn,
		Regions:  regions,
		index:    index,
	}, nil
}

// Lookup returns the region with the given identifier.
func (r *Registry) Lookup(id string) (Region, bool) {
	i, ok := r.index[id]
	if !ok {
		return Region{}, false
	}
	return r.Regions[i], true
}

// Len returns the number of regions.
func (r *Registry) Len() int {
	return len(r.Regions)
}
