package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/domain"
)

// Server configures the HTTP server, read from the environment only.
type Server struct {
	Port               string
	LogLevel           string
	LogFormat          string
	GridReader         string
	GridPath           string
	Method             string
	Registry           Registry
	Granularity        domain.Granularity
	StartYear          int
	StartMonth         int
	MissingSentinel    *float64
	CORSAllowedOrigins []string
}

// LoadServer reads the server configuration from the environment.
func LoadServer() (*Server, error) {
	s := &Server{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		GridReader:  getEnv("GRID_READER", ReaderNetCDF),
		GridPath:    getEnv("GRID_PATH", "./data/chirps-v2.0.monthly.nc"),
		Method:      getEnv("INTERP_METHOD", string(interp.MethodIDW)),
		Granularity: domain.Granularity(getEnv("GRANULARITY", string(domain.GranularityMonthly))),
		Registry: Registry{
			Path:     getEnv("REGISTRY_PATH", "./data/municipalities.csv"),
			IDColumn: getEnv("REGISTRY_ID_COLUMN", "inegi_code"),
		},
	}

	var err error
	if s.StartYear, err = envInt("START_YEAR", DefaultStartYear); err != nil {
		return nil, err
	}
	if s.StartMonth, err = envInt("START_MONTH", DefaultStartMonth); err != nil {
		return nil, err
	}
	if v := os.Getenv("MISSING_SENTINEL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: MISSING_SENTINEL=%q is not a number", ErrInvalid, v)
		}
		s.MissingSentinel = &f
	}
	for _, o := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			s.CORSAllowedOrigins = append(s.CORSAllowedOrigins, o)
		}
	}

	switch s.Granularity {
	case domain.GranularityAnnual, domain.GranularityMonthly, domain.GranularityDaily:
	default:
		return nil, fmt.Errorf("%w: GRANULARITY %q (use annual, monthly or daily)", ErrInvalid, s.Granularity)
	}
	if _, err := interp.ParseMethod(s.Method); err != nil {
		return nil, fmt.Errorf("%w: INTERP_METHOD: %v", ErrInvalid, err)
	}
	if s.GridReader != ReaderNetCDF && s.GridReader != ReaderNative {
		return nil, fmt.Errorf("%w: GRID_READER %q", ErrInvalid, s.GridReader)
	}
	return s, nil
}

// MissingPolicy returns the sentinel override or the granularity default.
func (s *Server) MissingPolicy() domain.MissingPolicy {
	if s.MissingSentinel != nil {
		return domain.SentinelPolicy{Value: *s.MissingSentinel}
	}
	return s.Granularity.DefaultMissingPolicy()
}

// Origin returns the label origin used when the grid has no time axis.
func (s *Server) Origin() domain.PeriodOrigin {
	return domain.PeriodOrigin{StartYear: s.StartYear, StartMonth: s.StartMonth}
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
	}
	return n, nil
}
