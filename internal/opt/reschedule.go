package opt

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"planscore/internal/plan"
	"planscore/internal/scoring"
)

// Scorer scores a plan. *scoring.CharyparNagel satisfies it.
type Scorer interface {
	Score(p plan.Plan, cfg scoring.Config, planCost *float64) (float64, error)
}

// Outcome tells why a search run ended.
type Outcome string

const (
	OutcomeConverged Outcome = "converged"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeCancelled Outcome = "cancelled"
)

var ErrInvalidOptions = errors.New("invalid reschedule options")

type Options struct {
	// Horizon is the Stopper window length.
	Horizon int
	// Sensitivity is the minimum gain across the window to keep going.
	Sensitivity float64
	// Patience caps the number of candidates evaluated.
	Patience int
	Policy   Policy
	// PlanCost is passed through to the scorer on every call.
	PlanCost *float64
	// RecordSamples keeps every candidate, accepted or not.
	RecordSamples bool
	// OnImprove is called after each accepted improvement. It runs on the
	// search goroutine.
	OnImprove func(TracePoint)
}

func DefaultOptions() Options {
	return Options{Horizon: 5, Sensitivity: 0.01, Patience: 1000, Policy: PolicyNormalized}
}

func (o Options) Validate() error {
	switch {
	case o.Horizon < 1:
		return fmt.Errorf("%w: horizon must be at least 1", ErrInvalidOptions)
	case o.Sensitivity < 0:
		return fmt.Errorf("%w: sensitivity must not be negative", ErrInvalidOptions)
	case o.Patience < 0:
		return fmt.Errorf("%w: patience must not be negative", ErrInvalidOptions)
	}
	if _, err := ParsePolicy(string(o.Policy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// TracePoint is one accepted best. Iteration 0 is the input plan.
type TracePoint struct {
	Iteration int       `json:"iteration"`
	Score     float64   `json:"score"`
	Durations []float64 `json:"durations"`
}

// Sample is one evaluated candidate.
type Sample struct {
	Iteration int       `json:"iteration"`
	Score     float64   `json:"score"`
	Durations []float64 `json:"durations"`
	Accepted  bool      `json:"accepted"`
}

type Metrics struct {
	Iterations   int           `json:"iterations"`
	Improvements int           `json:"improvements"`
	InitialScore float64       `json:"initialScore"`
	BestScore    float64       `json:"bestScore"`
	StoppedEarly bool          `json:"stoppedEarly"`
	Outcome      Outcome       `json:"outcome"`
	Elapsed      time.Duration `json:"elapsedNs"`
}

type Result struct {
	Plan    plan.Plan
	Trace   []TracePoint
	Samples []Sample
	Metrics Metrics
}

// Gain is the score improvement over the input plan.
func (r Result) Gain() float64 { return r.Metrics.BestScore - r.Metrics.InitialScore }

// Reschedule hill-climbs from p by mutating activity durations. Candidates
// that do not beat the best so far are dropped. The run ends when the
// Stopper sees a plateau, after opts.Patience candidates, or when ctx is
// done; on cancellation the best plan so far is returned with ctx.Err().
// The caller's plan is never modified.
func Reschedule(ctx context.Context, p plan.Plan, scorer Scorer, cfg scoring.Config, opts Options, rng *rand.Rand) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	log := zerolog.Ctx(ctx).With().Str("person", p.PersonID).Logger()
	started := time.Now()

	bestScore, err := scorer.Score(p, cfg, opts.PlanCost)
	if err != nil {
		return Result{}, err
	}
	best := p.Clone()
	mutator := NewMutator(opts.Policy, rng)
	stopper := NewStopper(opts.Horizon, opts.Sensitivity)

	res := Result{
		Trace:   []TracePoint{{Iteration: 0, Score: bestScore, Durations: best.ActivityHours()}},
		Metrics: Metrics{InitialScore: bestScore, BestScore: bestScore, Outcome: OutcomeExhausted},
	}
	finish := func() Result {
		res.Plan = best
		res.Metrics.BestScore = bestScore
		res.Metrics.Elapsed = time.Since(started)
		return res
	}

	for n := 1; n <= opts.Patience; n++ {
		if err := ctx.Err(); err != nil {
			res.Metrics.Outcome = OutcomeCancelled
			log.Info().Int("iteration", n).Err(err).Msg("reschedule cancelled")
			return finish(), err
		}
		candidate := mutator.MutateCopy(best)
		if err := candidate.Validate(); err != nil {
			return finish(), fmt.Errorf("mutated plan: %w", err)
		}
		score, err := scorer.Score(candidate, cfg, opts.PlanCost)
		if err != nil {
			return finish(), err
		}
		res.Metrics.Iterations = n
		improved := score > bestScore
		if opts.RecordSamples {
			res.Samples = append(res.Samples, Sample{Iteration: n, Score: score, Durations: candidate.ActivityHours(), Accepted: improved})
		}
		if !improved {
			continue
		}

		best, bestScore = candidate, score
		point := TracePoint{Iteration: n, Score: score, Durations: candidate.ActivityHours()}
		res.Trace = append(res.Trace, point)
		res.Metrics.Improvements++
		log.Debug().Int("iteration", n).Float64("score", score).Msg("new best score")
		if opts.OnImprove != nil {
			opts.OnImprove(point)
		}
		if !stopper.Observe(score) {
			res.Metrics.Outcome = OutcomeConverged
			res.Metrics.StoppedEarly = true
			log.Info().Int("iteration", n).Float64("score", score).Msg("stopping early")
			return finish(), nil
		}
	}
	return finish(), nil
}
