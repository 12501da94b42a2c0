// Package config loads extraction runs from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/adapter/store"
	"go.ngs.io/precip-regions/internal/domain"
)

// ErrInvalid marks configuration validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Grid reader backends.
const (
	ReaderNetCDF = "netcdf"
	ReaderNative = "native"
)

// Behaviour when a region's daily series file is absent.
const (
	OnMissingSkip  = "skip"
	OnMissingAbort = "abort"
)

// CHIRPS starts in January 1981.
const (
	DefaultStartYear  = 1981
	DefaultStartMonth = 1
)

// Config is a batch of extraction runs.
type Config struct {
	LogLevel    string   `toml:"log_level"`
	LogFormat   string   `toml:"log_format"`
	Workers     int      `toml:"workers"`
	GridReader  string   `toml:"grid_reader"`
	MetricsAddr string   `toml:"metrics_addr"`
	Registry    Registry `toml:"registry"`
	Runs        []Run    `toml:"runs"`
}

// Registry locates the region registry CSV.
type Registry struct {
	Path     string `toml:"path"`
	IDColumn string `toml:"id_column"`
}

// Variables names the dataset variables; empty fields use the defaults.
type Variables struct {
	Lon   string `toml:"lon"`
	Lat   string `toml:"lat"`
	Time  string `toml:"time"`
	Value string `toml:"value"`
}

// Run is one extraction.
type Run struct {
	Name            string    `toml:"name"`
	Granularity     string    `toml:"granularity"`
	Registry        *Registry `toml:"registry"`
	Datasets        []string  `toml:"datasets"`
	Output          string    `toml:"output"`
	Format          string    `toml:"format"`
	SeriesDir       string    `toml:"series_dir"`
	SeriesSuffix    string    `toml:"series_suffix"`
	Method          string    `toml:"method"`
	StartYear       int       `toml:"start_year"`
	StartMonth      int       `toml:"start_month"`
	MissingSentinel *float64  `toml:"missing_sentinel"`
	Years           []int     `toml:"years"`
	Window          string    `toml:"window"`
	OnMissing       string    `toml:"on_missing"`
	Variables       Variables `toml:"variables"`
}

// Load decodes path, applies environment overrides and defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	c := new(Config)
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.GridReader = getEnv("GRID_READER", c.GridReader)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.Registry.Path = getEnv("REGISTRY_PATH", c.Registry.Path)
	c.Registry.IDColumn = getEnv("REGISTRY_ID_COLUMN", c.Registry.IDColumn)
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: WORKERS=%q is not an integer", ErrInvalid, v)
		}
		c.Workers = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.GridReader == "" {
		c.GridReader = ReaderNetCDF
	}
	if c.Registry.IDColumn == "" {
		c.Registry.IDColumn = "inegi_code"
	}
	for i := range c.Runs {
		r := &c.Runs[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("%s-%d", r.Granularity, i+1)
		}
		if r.StartYear == 0 {
			r.StartYear = DefaultStartYear
		}
		if r.StartMonth == 0 {
			r.StartMonth = DefaultStartMonth
		}
		if r.OnMissing == "" {
			r.OnMissing = OnMissingSkip
		}
		if r.Method == "" && domain.Granularity(r.Granularity) == domain.GranularityDaily {
			r.Method = string(interp.MethodNearest)
		}
	}
}

// Validate reports every problem found, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Workers < 1 {
		fail("workers must be at least 1, got %d", c.Workers)
	}
	switch c.GridReader {
	case ReaderNetCDF, ReaderNative:
	default:
		fail("grid_reader %q (use %s or %s)", c.GridReader, ReaderNetCDF, ReaderNative)
	}
	if len(c.Runs) == 0 {
		fail("no runs defined")
	}

	for _, r := range c.Runs {
		prefix := fmt.Sprintf("run %q", r.Name)
		if reg := c.RegistryFor(r); reg.Path == "" {
			fail("%s: registry path is required", prefix)
		}
		switch domain.Granularity(r.Granularity) {
		case domain.GranularityAnnual, domain.GranularityMonthly:
			if len(r.Datasets) != 1 {
				fail("%s: %s runs take exactly one dataset, got %d", prefix, r.Granularity, len(r.Datasets))
			}
			if r.Output == "" {
				fail("%s: output is required", prefix)
			}
		case domain.GranularityDaily:
			if len(r.Datasets) == 0 {
				fail("%s: daily runs need at least one dataset", prefix)
			}
			if r.SeriesDir == "" {
				fail("%s: series_dir is required", prefix)
			}
		case domain.GranularityDrySpell:
			if r.SeriesDir == "" {
				fail("%s: series_dir is required", prefix)
			}
			if r.Output == "" {
				fail("%s: output is required", prefix)
			}
			if len(r.Years) != 2 || r.Years[0] > r.Years[1] {
				fail("%s: years must be [first, last] with first <= last, got %v", prefix, r.Years)
			}
			if _, err := domain.ParseYearWindow(r.Window); err != nil {
				fail("%s: %v", prefix, err)
			}
		default:
			fail("%s: unknown granularity %q", prefix, r.Granularity)
		}
		if _, err := interp.ParseMethod(r.Method); err != nil {
			fail("%s: %v", prefix, err)
		}
		switch r.Format {
		case "", "csv", "parquet":
		default:
			fail("%s: unknown format %q", prefix, r.Format)
		}
		switch r.OnMissing {
		case OnMissingSkip, OnMissingAbort:
		default:
			fail("%s: on_missing %q (use %s or %s)", prefix, r.OnMissing, OnMissingSkip, OnMissingAbort)
		}
		if r.StartMonth < 1 || r.StartMonth > 12 {
			fail("%s: start_month %d out of range", prefix, r.StartMonth)
		}
	}
	return errors.Join(errs...)
}

// RegistryFor returns the run's registry, falling back to the global one.
func (c *Config) RegistryFor(r Run) Registry {
	reg := c.Registry
	if r.Registry != nil {
		if r.Registry.Path != "" {
			reg.Path = r.Registry.Path
		}
		if r.Registry.IDColumn != "" {
			reg.IDColumn = r.Registry.IDColumn
		}
	}
	return reg
}

// MissingPolicy returns the sentinel override or the granularity default.
func (r Run) MissingPolicy() domain.MissingPolicy {
	if r.MissingSentinel != nil {
		return domain.SentinelPolicy{Value: *r.MissingSentinel}
	}
	return domain.Granularity(r.Granularity).DefaultMissingPolicy()
}

// Origin returns the label origin used when a dataset has no time axis.
func (r Run) Origin() domain.PeriodOrigin {
	return domain.PeriodOrigin{StartYear: r.StartYear, StartMonth: r.StartMonth}
}

// YearList expands Years into every year of the range.
func (r Run) YearList() []int {
	if len(r.Years) != 2 {
		return nil
	}
	return domain.YearRange(r.Years[0], r.Years[1])
}

// StoreVariables merges configured names over the dataset defaults.
func (r Run) StoreVariables() store.Variables {
	vars := store.DefaultVariables()
	if r.Variables.Lon != "" {
		vars.Lon = r.Variables.Lon
	}
	if r.Variables.Lat != "" {
		vars.Lat = r.Variables.Lat
	}
	if r.Variables.Time != "" {
		vars.Time = r.Variables.Time
	}
	if r.Variables.Value != "" {
		vars.Value = r.Variables.Value
	}
	return vars
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
