// Package csv provides CSV-based region registry and daily series storage.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.ngs.io/precip-regions/internal/domain"
)

var (
	latColumns = []string{"lat", "latitude"}
	lonColumns = []string{"lon", "longitude", "lng"}
)

// RegistryLoader reads region registries from CSV files with a header row.
type RegistryLoader struct{}

// NewRegistryLoader creates a CSV registry loader.
func NewRegistryLoader() *RegistryLoader {
	return &RegistryLoader{}
}

// LoadRegistry reads the identifier, lat and lon columns of path. Columns are
// located by header name; extra columns are ignored. Empty coordinates load
// as NaN so the region can be reported instead of failing the whole registry.
func (l *RegistryLoader) LoadRegistry(path, idColumn string) (*domain.Registry, error) {
	//nolint:gosec // G304: path comes from configuration.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	regions, err := parseRegistry(file, idColumn)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return domain.NewRegistry(idColumn, regions)
}

func parseRegistry(r io.Reader, idColumn string) ([]domain.Region, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idIdx := columnIndex(header, idColumn)
	if idIdx < 0 {
		return nil, fmt.Errorf("identifier column %q not found in header %v", idColumn, header)
	}
	latIdx := columnIndex(header, latColumns...)
	if latIdx < 0 {
		return nil, fmt.Errorf("latitude column not found in header %v (tried: %v)", header, latColumns)
	}
	lonIdx := columnIndex(header, lonColumns...)
	if lonIdx < 0 {
		return nil, fmt.Errorf("longitude column not found in header %v (tried: %v)", header, lonColumns)
	}

	regions := make([]domain.Region, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		id := strings.TrimSpace(record[idIdx])
		if id == "" {
			return nil, fmt.Errorf("line %d: empty identifier", line)
		}
		lat, err := parseCoordinate(record[latIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid latitude for region %s: %w", line, id, err)
		}
		lon, err := parseCoordinate(record[lonIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid longitude for region %s: %w", line, id, err)
		}

		regions = append(regions, domain.Region{ID: id, Lat: lat, Lon: lon})
	}

	if len(regions) == 0 {
		return nil, errors.New("no regions found")
	}
	return regions, nil
}

func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// columnIndex returns the position of the first header matching one of
// names (case-insensitive), or -1.
func columnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}
