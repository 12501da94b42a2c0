// Package usecase orchestrates region precipitation extraction.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/adapter/store"
	"go.ngs.io/precip-regions/internal/domain"
	"go.ngs.io/precip-regions/internal/observability"
)

// Job describes one extraction run.
type Job struct {
	Name         string
	Granularity  domain.Granularity
	RegistryPath string
	IDColumn     string

	Datasets []string
	Vars     store.Variables
	Method   interp.Method
	Policy   domain.MissingPolicy
	Origin   domain.PeriodOrigin

	// Output table (annual, monthly, dry-spell).
	Output string
	Format string

	// Per-region daily series (daily writes, dry-spell reads).
	SeriesDir    string
	SeriesSuffix string

	// Dry-spell summary.
	Years          []int
	Window         domain.YearWindow
	AbortOnMissing bool
}

// Dependencies wires the extraction collaborators.
type Dependencies struct {
	Grids      store.GridReader
	Registries store.RegistryLoader
	Series     func(dir, suffix string) store.SeriesStore
	Tables     func(format string) (store.TableWriter, error)
	Logger     zerolog.Logger
	Metrics    *observability.Metrics
	Clock      clockwork.Clock
	Workers    int
}

// ExtractUseCase runs extraction jobs.
type ExtractUseCase struct {
	deps Dependencies
}

// NewExtractUseCase creates the use case; a nil clock means the real clock.
func NewExtractUseCase(deps Dependencies) *ExtractUseCase {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.Workers < 1 {
		deps.Workers = 1
	}
	return &ExtractUseCase{deps: deps}
}

// Execute runs job. Faults confined to one region are recorded in the report
// and do not fail the run; anything else aborts it.
func (u *ExtractUseCase) Execute(ctx context.Context, job Job) (*RunReport, error) {
	log := u.deps.Logger.With().
		Str("run", job.Name).
		Str("granularity", string(job.Granularity)).
		Logger()

	started := u.deps.Clock.Now()
	report := &RunReport{
		Name:        job.Name,
		Granularity: job.Granularity,
		Output:      job.Output,
		Started:     started,
	}
	log.Info().Int("workers", u.deps.Workers).Msg("run started")

	registry, err := u.deps.Registries.LoadRegistry(job.RegistryPath, job.IDColumn)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", job.Name, err)
	}
	report.Regions = registry.Len()

	rec := &recorder{}
	switch job.Granularity {
	case domain.GranularityAnnual, domain.GranularityMonthly:
		err = u.periodTable(ctx, log, job, registry, rec)
	case domain.GranularityDaily:
		err = u.dailySeries(ctx, log, job, registry, rec)
	case domain.GranularityDrySpell:
		err = u.drySpells(ctx, log, job, registry, rec)
	default:
		err = fmt.Errorf("unsupported granularity %q", job.Granularity)
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", job.Name, err)
	}

	rec.fill(report)
	report.Duration = u.deps.Clock.Since(started)

	label := string(job.Granularity)
	u.deps.Metrics.RegionsProcessed.WithLabelValues(label).Add(float64(report.Processed))
	u.deps.Metrics.RegionsSkipped.WithLabelValues(label).Add(float64(len(report.Skipped)))
	for _, f := range report.Failures {
		u.deps.Metrics.RegionFailures.WithLabelValues(label, f.Reason()).Inc()
	}
	u.deps.Metrics.RunDuration.WithLabelValues(label).Observe(report.Duration.Seconds())

	log.Info().
		Int("regions", report.Regions).
		Int("processed", report.Processed).
		Int("failures", len(report.Failures)).
		Int("skipped", len(report.Skipped)).
		Dur("duration", report.Duration).
		Msg("run finished")
	return report, nil
}

// loadGrid reads only the cells around the registry centroids.
func (u *ExtractUseCase) loadGrid(log zerolog.Logger, path string, vars store.Variables,
	regions []domain.Region,
) (*domain.Grid, error) {
	vars.Window = store.RegionWindow(regions)
	start := u.deps.Clock.Now()
	g, err := u.deps.Grids.ReadGrid(path, vars)
	if err != nil {
		return nil, err
	}
	elapsed := u.deps.Clock.Since(start)
	u.deps.Metrics.GridLoadDuration.Observe(elapsed.Seconds())
	log.Debug().
		Str("dataset", path).
		Int("lons", len(g.Lons)).
		Int("lats", len(g.Lats)).
		Int("steps", g.NTime).
		Dur("duration", elapsed).
		Msg("grid loaded")
	return g, nil
}

// interpolateAll computes every region's series into a slice indexed by
// registry position. Failed regions get an all-NaN series.
func (u *ExtractUseCase) interpolateAll(ctx context.Context, log zerolog.Logger, g *domain.Grid,
	ip *interp.Interpolator, regions []domain.Region, dataset string, rec *recorder,
) ([][]float64, error) {
	out := make([][]float64, len(regions))
	err := forEachRegion(ctx, u.deps.Workers, regions, func(_ context.Context, i int, r domain.Region) error {
		series, err := ip.Interpolate(g, r)
		if err != nil {
			log.Error().Err(err).Str("region", r.ID).Str("dataset", dataset).Msg("region failed")
			rec.fail(RegionFailure{RegionID: r.ID, Dataset: dataset, Err: err})
			out[i] = domain.NaNSeries(g.NTime)
			return nil
		}
		out[i] = series.Values
		return nil
	})
	return out, err
}

func (u *ExtractUseCase) periodTable(ctx context.Context, log zerolog.Logger, job Job,
	registry *domain.Registry, rec *recorder,
) error {
	if len(job.Datasets) != 1 {
		return fmt.Errorf("%s runs take exactly one dataset, got %d", job.Granularity, len(job.Datasets))
	}
	writer, err := u.deps.Tables(job.Format)
	if err != nil {
		return err
	}

	g, err := u.loadGrid(log, job.Datasets[0], job.Vars, registry.Regions)
	if err != nil {
		return err
	}
	columns, err := domain.PeriodColumns(job.Granularity, g.Times, g.NTime, job.Origin)
	if err != nil {
		return err
	}

	ip := interp.NewInterpolator(job.Method, job.Policy)
	values, err := u.interpolateAll(ctx, log, g, ip, registry.Regions, job.Datasets[0], rec)
	if err != nil {
		return err
	}

	table := &domain.Table{
		IDColumn: registry.IDColumn,
		Columns:  columns,
		Rows:     make([]domain.Row, len(registry.Regions)),
	}
	for i, r := range registry.Regions {
		table.Rows[i] = domain.Row{ID: r.ID, Values: values[i]}
	}
	countProcessed(rec, len(registry.Regions))

	if err := writer.WriteTable(job.Output, table); err != nil {
		return err
	}
	log.Info().Str("output", job.Output).Int("columns", len(columns)).Msg("table written")
	return nil
}

// dailySeries opens each dataset once, appends every region's values to its
// accumulator, then writes one file per region.
func (u *ExtractUseCase) dailySeries(ctx context.Context, log zerolog.Logger, job Job,
	registry *domain.Registry, rec *recorder,
) error {
	if len(job.Datasets) == 0 {
		return errors.New("daily runs need at least one dataset")
	}
	regions := registry.Regions
	acc := make([][]domain.DailyRecord, len(regions))
	ip := interp.NewInterpolator(job.Method, job.Policy)

	for _, path := range job.Datasets {
		g, err := u.loadGrid(log, path, job.Vars, regions)
		if err != nil {
			return err
		}
		if len(g.Times) != g.NTime {
			return fmt.Errorf("dataset %s has no usable time axis", path)
		}
		values, err := u.interpolateAll(ctx, log, g, ip, regions, path, rec)
		if err != nil {
			return err
		}
		for i := range regions {
			for t, v := range values[i] {
				acc[i] = append(acc[i], domain.DailyRecord{Date: g.Times[t], Precipitation: v})
			}
		}
		log.Info().Str("dataset", path).Int("steps", g.NTime).Msg("dataset extracted")
	}

	series := u.deps.Series(job.SeriesDir, job.SeriesSuffix)
	err := forEachRegion(ctx, u.deps.Workers, regions, func(_ context.Context, i int, r domain.Region) error {
		if err := series.WriteDaily(r.ID, acc[i]); err != nil {
			return fmt.Errorf("region %s: %w", r.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	countProcessed(rec, len(regions))
	log.Info().Str("series_dir", job.SeriesDir).Int("files", len(regions)).Msg("daily series written")
	return nil
}

func (u *ExtractUseCase) drySpells(ctx context.Context, log zerolog.Logger, job Job,
	registry *domain.Registry, rec *recorder,
) error {
	if len(job.Years) == 0 {
		return errors.New("dry-spell runs need a year range")
	}
	writer, err := u.deps.Tables(job.Format)
	if err != nil {
		return err
	}
	series := u.deps.Series(job.SeriesDir, job.SeriesSuffix)
	columns := domain.DrySpellColumns(job.Years)

	regions := registry.Regions
	rows := make([]*domain.Row, len(regions))
	err = forEachRegion(ctx, u.deps.Workers, regions, func(_ context.Context, i int, r domain.Region) error {
		records, err := series.ReadDaily(r.ID)
		switch {
		case errors.Is(err, store.ErrSeriesNotFound):
			if job.AbortOnMissing {
				return err
			}
			log.Warn().Str("region", r.ID).Msg("daily series missing, region skipped")
			rec.skip(r.ID)
			return nil
		case err != nil:
			log.Error().Err(err).Str("region", r.ID).Msg("region failed")
			rec.fail(RegionFailure{RegionID: r.ID, Err: err})
			rows[i] = &domain.Row{ID: r.ID, Values: domain.NaNSeries(len(columns))}
			return nil
		}
		stats := domain.AggregateDrySpells(records, job.Years, job.Window)
		row := domain.DrySpellRow(r.ID, stats, job.Years)
		rows[i] = &row
		rec.ok()
		return nil
	})
	if err != nil {
		return err
	}

	table := &domain.Table{
		IDColumn: registry.IDColumn,
		IDFirst:  true,
		Columns:  columns,
		Rows:     make([]domain.Row, 0, len(rows)),
	}
	for _, row := range rows {
		if row != nil {
			table.Rows = append(table.Rows, *row)
		}
	}
	if err := writer.WriteTable(job.Output, table); err != nil {
		return err
	}
	log.Info().Str("output", job.Output).Int("rows", len(table.Rows)).Msg("dry-spell table written")
	return nil
}

// countProcessed marks every region that did not fail as processed.
func countProcessed(rec *recorder, total int) {
	rec.mu.Lock()
	failed := make(map[string]bool, len(rec.failures))
	for _, f := range rec.failures {
		failed[f.RegionID] = true
	}
	rec.processed += total - len(failed)
	rec.mu.Unlock()
}

