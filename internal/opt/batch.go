package opt

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"planscore/internal/plan"
	"planscore/internal/scoring"
)

// Job is one plan to reschedule inside a batch.
type Job struct {
	Plan   plan.Plan
	Config scoring.Config
}

// JobResult pairs a job's result with its own error. A failing job does not
// stop the others.
type JobResult struct {
	PersonID string
	Result   Result
	Err      error
}

// RescheduleAll runs one independent search per job with at most workers
// running at once. Job i draws from its own generator seeded with seed+i,
// so a batch is reproducible for a fixed seed. opts.OnImprove, if set, is
// called from several goroutines.
func RescheduleAll(ctx context.Context, jobs []Job, scorer Scorer, opts Options, workers int, seed int64) ([]JobResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	out := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(i)))
			res, err := Reschedule(gctx, job.Plan, scorer, job.Config, opts, rng)
			out[i] = JobResult{PersonID: job.Plan.PersonID, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}
