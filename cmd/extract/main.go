// Package main runs the region precipitation extraction batch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/adapter/store"
	csvstore "go.ngs.io/precip-regions/internal/adapter/store/csv"
	"go.ngs.io/precip-regions/internal/adapter/store/grids"
	"go.ngs.io/precip-regions/internal/adapter/store/table"
	"go.ngs.io/precip-regions/internal/config"
	"go.ngs.io/precip-regions/internal/domain"
	"go.ngs.io/precip-regions/internal/observability"
	"go.ngs.io/precip-regions/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	configPath := flag.String("config", "runs.toml", "Path to the TOML run configuration")
	only := flag.String("run", "", "Execute only the run with this name")
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		fmt.Printf("precip-extract version %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, "precip-extract", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *only, log); err != nil {
		log.Error().Err(err).Msg("extraction failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, only string, log zerolog.Logger) error {
	reader, err := grids.NewReader(cfg.GridReader)
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	uc := usecase.NewExtractUseCase(usecase.Dependencies{
		Grids:      reader,
		Registries: csvstore.NewRegistryLoader(),
		Series: func(dir, suffix string) store.SeriesStore {
			return csvstore.NewSeriesStore(dir, suffix)
		},
		Tables:  table.NewWriter,
		Logger:  log,
		Metrics: metrics,
		Clock:   clockwork.NewRealClock(),
		Workers: cfg.Workers,
	})

	executed := 0
	for _, r := range cfg.Runs {
		if only != "" && r.Name != only {
			continue
		}
		job, err := buildJob(cfg, r)
		if err != nil {
			return err
		}
		report, err := uc.Execute(ctx, job)
		if err != nil {
			return err
		}
		for _, f := range report.Failures {
			log.Warn().
				Str("run", report.Name).
				Str("region", f.RegionID).
				Str("dataset", f.Dataset).
				Str("reason", f.Reason()).
				Msg("region reported as missing data")
		}
		executed++
	}
	if executed == 0 {
		return fmt.Errorf("no run named %q", only)
	}
	return nil
}

// buildJob resolves a configured run into a use case job.
func buildJob(cfg *config.Config, r config.Run) (usecase.Job, error) {
	method, err := interp.ParseMethod(r.Method)
	if err != nil {
		return usecase.Job{}, err
	}
	window, err := domain.ParseYearWindow(r.Window)
	if err != nil {
		return usecase.Job{}, err
	}
	reg := cfg.RegistryFor(r)
	return usecase.Job{
		Name:           r.Name,
		Granularity:    domain.Granularity(r.Granularity),
		RegistryPath:   reg.Path,
		IDColumn:       reg.IDColumn,
		Datasets:       r.Datasets,
		Vars:           r.StoreVariables(),
		Method:         method,
		Policy:         r.MissingPolicy(),
		Origin:         r.Origin(),
		Output:         r.Output,
		Format:         r.Format,
		SeriesDir:      r.SeriesDir,
		SeriesSuffix:   r.SeriesSuffix,
		Years:          r.YearList(),
		Window:         window,
		AbortOnMissing: r.OnMissing == config.OnMissingAbort,
	}, nil
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Region Precipitation Extractor v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  precip-extract [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -config PATH   TOML run configuration (default: runs.toml)")
	fmt.Println("  -run NAME      Execute only the named run")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  LOG_LEVEL            debug, info, warn, error (default: info)")
	fmt.Println("  LOG_FORMAT           json or console (default: json)")
	fmt.Println("  WORKERS              Concurrent regions (default: number of CPUs)")
	fmt.Println("  GRID_READER          netcdf or native (default: netcdf)")
	fmt.Println("  METRICS_ADDR         Serve /metrics on this address while running")
	fmt.Println("  REGISTRY_PATH        Override the registry CSV path")
	fmt.Println("  REGISTRY_ID_COLUMN   Override the registry identifier column")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  precip-extract -config runs.toml")
	fmt.Println("  LOG_FORMAT=console precip-extract -config runs.toml -run annual")
}
