package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// FanOut shards per-flow work across a bounded number of goroutines. Flows
// share no annotation state, so each flow's work runs independently.
type FanOut struct {
	workers    int
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut running at most workers flows at once; a
// value below 1 means 1. onProgress is called synchronously from each
// goroutine; it may be nil.
func NewFanOut(workers int, onProgress func(ProgressEvent)) *FanOut {
	return &FanOut{
		workers:    max(workers, 1),
		onProgress: onProgress,
	}
}

// Workers returns the concurrency limit.
func (f *FanOut) Workers() int { return f.workers }

// Collect runs fn once per flow and returns the results indexed like flows.
// It uses errgroup.WithContext so that the first failure cancels the
// derived context and flows not yet started are skipped.
//
// All results gathered so far are returned regardless of whether an error
// occurred. The returned error is the first non-nil error from the errgroup.
func Collect[T any](ctx context.Context, f *FanOut, stage Stage, flows []graph.Flow,
	fn func(context.Context, graph.Flow) (T, error)) ([]T, error) {
	results := make([]T, len(flows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i, flow := range flows {
		f.emit(ProgressEvent{Stage: stage, Section: flow.String(), Status: ProgressPending})

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f.emit(ProgressEvent{Stage: stage, Section: flow.String(), Status: ProgressWorking})

			res, err := fn(gctx, flow)
			if err != nil {
				f.emit(ProgressEvent{
					Stage:   stage,
					Section: flow.String(),
					Status:  ProgressFailed,
					Message: err.Error(),
				})
				return err // triggers context cancellation for other goroutines
			}

			results[i] = res
			f.emit(ProgressEvent{Stage: stage, Section: flow.String(), Status: ProgressComplete})
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
