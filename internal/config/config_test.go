package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/precip-regions/internal/domain"
)

const sampleConfig = `
log_level = "debug"
workers = 4

[registry]
path = "data/municipalities.csv"
id_column = "inegi_code"

[[runs]]
name = "annual"
granularity = "annual"
datasets = ["data/chirps-v2.0.annual.nc"]
output = "out/annual.csv"

[[runs]]
granularity = "monthly"
datasets = ["data/chirps-v2.0.monthly.nc"]
output = "out/monthly.parquet"
format = "parquet"
missing_sentinel = -999.0

[[runs]]
name = "state daily"
granularity = "daily"
datasets = ["data/chirps-v2.0.1981.days_p05.nc", "data/chirps-v2.0.1982.days_p05.nc"]
series_dir = "out/series"
series_suffix = "_12"

[runs.registry]
path = "data/state_12.csv"
id_column = "state_12"

[[runs]]
name = "dry spells"
granularity = "dry-spell"
series_dir = "out/series"
series_suffix = "_12"
output = "out/dry.csv"
years = [1981, 2015]
window = "calendar"
on_missing = "abort"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, ReaderNetCDF, c.GridReader)
	require.Len(t, c.Runs, 4)

	annual := c.Runs[0]
	assert.Equal(t, domain.PeriodOrigin{StartYear: 1981, StartMonth: 1}, annual.Origin())
	assert.Equal(t, domain.SentinelPolicy{Value: -9999}, annual.MissingPolicy())
	assert.Equal(t, "longitude", annual.StoreVariables().Lon)

	monthly := c.Runs[1]
	assert.Equal(t, "monthly-2", monthly.Name)
	assert.Equal(t, domain.SentinelPolicy{Value: -999}, monthly.MissingPolicy())

	daily := c.Runs[2]
	assert.Equal(t, "nearest", daily.Method)
	assert.IsType(t, domain.NaNPolicy{}, daily.MissingPolicy())
	assert.Equal(t, Registry{Path: "data/state_12.csv", IDColumn: "state_12"}, c.RegistryFor(daily))
	assert.Equal(t, "data/municipalities.csv", c.RegistryFor(annual).Path)

	dry := c.Runs[3]
	assert.Equal(t, OnMissingAbort, dry.OnMissing)
	years := dry.YearList()
	assert.Len(t, years, 35)
	assert.Equal(t, 2015, years[len(years)-1])
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("WORKERS", "2")
	t.Setenv("GRID_READER", "native")
	t.Setenv("REGISTRY_PATH", "/srv/registry.csv")

	c, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, ReaderNative, c.GridReader)
	assert.Equal(t, "/srv/registry.csv", c.Registry.Path)
}

func TestLoad_BadWorkersEnv(t *testing.T) {
	t.Setenv("WORKERS", "many")
	_, err := Load(writeConfig(t, sampleConfig))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		run  string
		want string
	}{
		{"unknown granularity", `granularity = "hourly"`, "unknown granularity"},
		{"annual without dataset", `granularity = "annual"
output = "a.csv"`, "exactly one dataset"},
		{"daily without series dir", `granularity = "daily"
datasets = ["a.nc"]`, "series_dir is required"},
		{"reversed years", `granularity = "dry-spell"
series_dir = "s"
output = "d.csv"
years = [2015, 1981]`, "first <= last"},
		{"bad window", `granularity = "dry-spell"
series_dir = "s"
output = "d.csv"
years = [1981, 1982]
window = "fiscal"`, "unknown year window"},
		{"bad method", `granularity = "daily"
datasets = ["a.nc"]
series_dir = "s"
method = "kriging"`, "unknown interpolation method"},
		{"bad format", `granularity = "annual"
datasets = ["a.nc"]
output = "a.xlsx"
format = "xlsx"`, "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "[registry]\npath = \"r.csv\"\n\n[[runs]]\n" + tt.run + "\n"
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_NoRegistry(t *testing.T) {
	_, err := Load(writeConfig(t, "[[runs]]\ngranularity = \"annual\"\ndatasets = [\"a.nc\"]\noutput = \"a.csv\"\n"))
	assert.ErrorContains(t, err, "registry path is required")
}

func TestLoadServer(t *testing.T) {
	t.Setenv("GRID_PATH", "/data/annual.nc")
	t.Setenv("GRANULARITY", "annual")
	t.Setenv("START_YEAR", "1990")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	s, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, "/data/annual.nc", s.GridPath)
	assert.Equal(t, domain.GranularityAnnual, s.Granularity)
	assert.Equal(t, domain.PeriodOrigin{StartYear: 1990, StartMonth: 1}, s.Origin())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORSAllowedOrigins)
	assert.Equal(t, domain.SentinelPolicy{Value: -9999}, s.MissingPolicy())
	assert.Equal(t, "idw", s.Method)
}

func TestLoadServer_Invalid(t *testing.T) {
	t.Setenv("GRANULARITY", "dry-spell")
	_, err := LoadServer()
	assert.ErrorIs(t, err, ErrInvalid)

	t.Setenv("GRANULARITY", "daily")
	t.Setenv("MISSING_SENTINEL", "none")
	_, err = LoadServer()
	assert.ErrorIs(t, err, ErrInvalid)

	t.Setenv("MISSING_SENTINEL", "")
	t.Setenv("INTERP_METHOD", "spline")
	_, err = LoadServer()
	assert.ErrorIs(t, err, ErrInvalid)
}
