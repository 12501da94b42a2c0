// Package main provides the region precipitation HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/adapter/store"
	csvstore "go.ngs.io/precip-regions/internal/adapter/store/csv"
	"go.ngs.io/precip-regions/internal/adapter/store/grids"
	"go.ngs.io/precip-regions/internal/config"
	httpHandler "go.ngs.io/precip-regions/internal/http"
	"go.ngs.io/precip-regions/internal/observability"
	"go.ngs.io/precip-regions/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("precip-regions version %s\n", version)
		return
	}

	// Load configuration from environment.
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, "precip-regions", version)

	log.Info().
		Str("port", cfg.Port).
		Str("grid", cfg.GridPath).
		Str("registry", cfg.Registry.Path).
		Str("granularity", string(cfg.Granularity)).
		Str("method", cfg.Method).
		Msg("starting precipitation server")

	// Load grid and registry. The whole grid is kept since point lookups
	// may fall anywhere on it.
	reader, err := grids.NewReader(cfg.GridReader)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid grid reader")
	}
	grid, err := reader.ReadGrid(cfg.GridPath, store.DefaultVariables())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load grid")
	}
	registry, err := csvstore.NewRegistryLoader().LoadRegistry(cfg.Registry.Path, cfg.Registry.IDColumn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load registry")
	}
	log.Info().
		Int("lons", len(grid.Lons)).
		Int("lats", len(grid.Lats)).
		Int("steps", grid.NTime).
		Int("regions", registry.Len()).
		Msg("data loaded")

	// Initialize use case.
	method, err := interp.ParseMethod(cfg.Method)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid interpolation method")
	}
	ip := interp.NewInterpolator(method, cfg.MissingPolicy())
	seriesUC, err := usecase.NewSeriesUseCase(grid, registry, ip, cfg.Granularity, cfg.Origin())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize series lookups")
	}

	// Setup router.
	metrics := observability.NewMetrics()
	handler := httpHandler.NewHandler(seriesUC, metrics, clockwork.NewRealClock(), log)
	router := httpHandler.SetupRouter(handler, log, cfg.CORSAllowedOrigins)

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().Str("addr", addr).Msg("server listening")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Region Precipitation Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  precip-regions [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  GRID_PATH               NetCDF grid to serve (default: ./data/chirps-v2.0.monthly.nc)")
	fmt.Println("  GRID_READER             netcdf or native (default: netcdf)")
	fmt.Println("  INTERP_METHOD           idw, nearest or bilinear (default: idw)")
	fmt.Println("  GRANULARITY             annual, monthly or daily (default: monthly)")
	fmt.Println("  START_YEAR              First label year when the grid has no time axis (default: 1981)")
	fmt.Println("  START_MONTH             First label month when the grid has no time axis (default: 1)")
	fmt.Println("  MISSING_SENTINEL        Missing-value sentinel (default: -9999, none for daily)")
	fmt.Println("  REGISTRY_PATH           Region registry CSV (default: ./data/municipalities.csv)")
	fmt.Println("  REGISTRY_ID_COLUMN      Identifier column (default: inegi_code)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  LOG_LEVEL, LOG_FORMAT   Logging (default: info, json)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  GRID_PATH=./data/chirps-v2.0.annual.nc GRANULARITY=annual precip-regions")
}
