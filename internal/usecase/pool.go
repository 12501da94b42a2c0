package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"go.ngs.io/precip-regions/internal/domain"
)

// forEachRegion runs fn for every region with at most workers in flight.
// fn receives the registry position so results can be stored by index
// without locking. A non-nil error from fn stops the run.
func forEachRegion(ctx context.Context, workers int, regions []domain.Region, fn func(ctx context.Context, i int, r domain.Region) error) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, r := range regions {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i, r)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
