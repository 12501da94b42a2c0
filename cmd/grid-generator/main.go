// Package main generates synthetic CHIRPS-like precipitation grids for
// local testing of the extractor and the server.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"go.ngs.io/precip-regions/internal/adapter/store/netcdf"
	"go.ngs.io/precip-regions/internal/domain"
	"go.ngs.io/precip-regions/internal/observability"
)

// RegionalGrid defines the geographic bounds and resolution.
type RegionalGrid struct {
	LatMin     float64
	LatMax     float64
	LonMin     float64
	LonMax     float64
	Resolution float64 // degrees
}

// Size returns the number of latitudes and longitudes.
func (r RegionalGrid) Size() (nLat, nLon int) {
	nLat = int(math.Round((r.LatMax-r.LatMin)/r.Resolution)) + 1
	nLon = int(math.Round((r.LonMax-r.LonMin)/r.Resolution)) + 1
	return nLat, nLon
}

// Options controls the synthetic field.
type Options struct {
	Granularity     domain.Granularity
	Start           time.Time
	Steps           int
	MissingFraction float64
	Sentinel        float64
	Seed            int64
}

func main() {
	// Command line flags
	out := flag.String("out", "./data/chirps-synthetic.nc", "Output NetCDF file")
	registryOut := flag.String("registry-out", "", "Also write a registry CSV of random centroids inside the grid")
	regions := flag.Int("regions", 25, "Number of centroids for -registry-out")
	latMin := flag.Float64("lat-min", 14.5, "Minimum latitude")
	latMax := flag.Float64("lat-max", 32.7, "Maximum latitude")
	lonMin := flag.Float64("lon-min", -118.4, "Minimum longitude")
	lonMax := flag.Float64("lon-max", -86.7, "Maximum longitude")
	resolution := flag.Float64("resolution", 0.25, "Grid resolution in degrees")
	granularity := flag.String("granularity", "monthly", "annual, monthly or daily")
	startYear := flag.Int("start-year", 1981, "Year of the first time step")
	steps := flag.Int("steps", 24, "Number of time steps")
	missing := flag.Float64("missing-fraction", 0.02, "Share of cells set to the sentinel")
	seed := flag.Int64("seed", 1, "Random seed")
	logFormat := flag.String("log-format", "console", "json or console")
	flag.Parse()

	log := observability.NewLogger("info", *logFormat, "grid-generator", "")

	grid := RegionalGrid{LatMin: *latMin, LatMax: *latMax, LonMin: *lonMin, LonMax: *lonMax, Resolution: *resolution}
	opts := Options{
		Granularity:     domain.Granularity(*granularity),
		Start:           time.Date(*startYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		Steps:           *steps,
		MissingFraction: *missing,
		Sentinel:        domain.DefaultSentinel,
		Seed:            *seed,
	}

	if err := run(grid, opts, *out, *registryOut, *regions, log); err != nil {
		log.Fatal().Err(err).Msg("generation failed")
	}
}

func run(grid RegionalGrid, opts Options, out, registryOut string, regions int, log zerolog.Logger) error {
	g, err := Generate(grid, opts)
	if err != nil {
		return err
	}
	nLat, nLon := grid.Size()
	log.Info().
		Str("granularity", string(opts.Granularity)).
		Int("lats", nLat).
		Int("lons", nLon).
		Int("steps", g.NTime).
		Msg("generated grid")

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	wopts := netcdf.DefaultWriteOptions()
	wopts.MissingValue = float32(opts.Sentinel)
	if err := netcdf.WriteGrid(out, g, wopts); err != nil {
		return err
	}
	log.Info().Str("path", out).Msg("wrote grid")

	if registryOut == "" {
		return nil
	}
	if err := WriteRegistry(registryOut, grid, regions, opts.Seed); err != nil {
		return err
	}
	log.Info().Str("path", registryOut).Int("regions", regions).Msg("wrote registry")
	return nil
}

// Generate builds a grid whose values follow a seasonal cycle with a
// west-east gradient and random noise. A share of cells is replaced with
// the sentinel to exercise missing-value handling.
func Generate(grid RegionalGrid, opts Options) (*domain.Grid, error) {
	if grid.Resolution <= 0 {
		return nil, fmt.Errorf("resolution must be positive, got %g", grid.Resolution)
	}
	if grid.LatMax < grid.LatMin || grid.LonMax < grid.LonMin {
		return nil, fmt.Errorf("invalid bounds")
	}
	if opts.Steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", opts.Steps)
	}

	var step func(time.Time, int) time.Time
	switch opts.Granularity {
	case domain.GranularityAnnual:
		step = func(t time.Time, i int) time.Time { return t.AddDate(i, 0, 0) }
	case domain.GranularityMonthly:
		step = func(t time.Time, i int) time.Time { return t.AddDate(0, i, 0) }
	case domain.GranularityDaily:
		step = func(t time.Time, i int) time.Time { return t.AddDate(0, 0, i) }
	default:
		return nil, fmt.Errorf("unknown granularity %q (use annual, monthly or daily)", opts.Granularity)
	}

	nLat, nLon := grid.Size()
	lats := make([]float64, nLat)
	for i := range lats {
		lats[i] = grid.LatMin + float64(i)*grid.Resolution
	}
	lons := make([]float64, nLon)
	for i := range lons {
		lons[i] = grid.LonMin + float64(i)*grid.Resolution
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	g := &domain.Grid{
		Lons:   lons,
		Lats:   lats,
		Times:  make([]time.Time, opts.Steps),
		NTime:  opts.Steps,
		Values: make([]float64, opts.Steps*nLat*nLon),
	}
	for t := range g.Times {
		g.Times[t] = step(opts.Start, t)
		season := 1 + math.Sin(2*math.Pi*float64(g.Times[t].YearDay())/365.25)
		for i := range lats {
			for j := range lons {
				idx := (t*nLat+i)*nLon + j
				if rng.Float64() < opts.MissingFraction {
					g.Values[idx] = opts.Sentinel
					continue
				}
				gradient := float64(j+1) / float64(nLon)
				v := scale(opts.Granularity) * season * gradient * (0.5 + rng.Float64())
				// Daily fields get dry days.
				if opts.Granularity == domain.GranularityDaily && rng.Float64() < 0.6 {
					v = 0
				}
				g.Values[idx] = math.Round(v*100) / 100
			}
		}
	}
	return g, g.Validate()
}

// scale is a typical precipitation total in mm for one step.
func scale(g domain.Granularity) float64 {
	switch g {
	case domain.GranularityAnnual:
		return 800
	case domain.GranularityMonthly:
		return 70
	}
	return 6
}

// WriteRegistry writes random centroids within the grid bounds as an
// inegi_code,lat,lon CSV.
func WriteRegistry(path string, grid RegionalGrid, n int, seed int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create registry: %w", err)
	}
	defer func() { _ = f.Close() }()

	rng := rand.New(rand.NewSource(seed + 1))
	w := csv.NewWriter(f)
	if err := w.Write([]string{"inegi_code", "lat", "lon"}); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		lat := grid.LatMin + rng.Float64()*(grid.LatMax-grid.LatMin)
		lon := grid.LonMin + rng.Float64()*(grid.LonMax-grid.LonMin)
		if err := w.Write([]string{
			strconv.Itoa(1001 + i),
			strconv.FormatFloat(lat, 'f', 4, 64),
			strconv.FormatFloat(lon, 'f', 4, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
