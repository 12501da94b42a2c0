package usecase

import (
	"errors"
	"sort"
	"sync"
	"time"

	"go.ngs.io/precip-regions/internal/adapter/interp"
	"go.ngs.io/precip-regions/internal/domain"
)

// RegionFailure records a region whose series could not be computed.
type RegionFailure struct {
	RegionID string
	Dataset  string
	Err      error
}

// Reason returns a short metric label for the failure.
func (f RegionFailure) Reason() string {
	switch {
	case errors.Is(f.Err, interp.ErrNoCoordinate):
		return "no_coordinate"
	case errors.Is(f.Err, interp.ErrAxisTooShort):
		return "axis_too_short"
	case errors.Is(f.Err, interp.ErrOutsideGrid):
		return "outside_grid"
	case errors.Is(f.Err, domain.ErrShapeMismatch):
		return "shape_mismatch"
	}
	return "other"
}

// RunReport summarizes one extraction run.
type RunReport struct {
	Name        string
	Granularity domain.Granularity
	Output      string
	Regions     int
	Processed   int
	Failures    []RegionFailure
	Skipped     []string
	Started     time.Time
	Duration    time.Duration
}

// recorder collects per-region outcomes from concurrent workers.
type recorder struct {
	mu        sync.Mutex
	processed int
	failures  []RegionFailure
	skipped   []string
}

func (r *recorder) ok() {
	r.mu.Lock()
	r.processed++
	r.mu.Unlock()
}

func (r *recorder) fail(f RegionFailure) {
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

func (r *recorder) skip(id string) {
	r.mu.Lock()
	r.skipped = append(r.skipped, id)
	r.mu.Unlock()
}

// fill copies the outcomes into rep in a deterministic order.
func (r *recorder) fill(rep *RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.SliceStable(r.failures, func(a, b int) bool {
		if r.failures[a].Dataset != r.failures[b].Dataset {
			return r.failures[a].Dataset < r.failures[b].Dataset
		}
		return r.failures[a].RegionID < r.failures[b].RegionID
	})
	sort.Strings(r.skipped)
	rep.Processed = r.processed
	rep.Failures = r.failures
	rep.Skipped = r.skipped
}
