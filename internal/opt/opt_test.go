package opt

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planscore/internal/clock"
	"planscore/internal/plan"
	"planscore/internal/scoring"
)

func commuterPlan(person string) plan.Plan {
	return plan.New(person,
		&plan.Activity{Act: "home", Start: clock.Minutes(0), End: clock.Minutes(420)},
		&plan.Leg{Mode: "car", Start: clock.Minutes(420), End: clock.Minutes(480), Distance: 1000},
		&plan.Activity{Act: "shop", Start: clock.Minutes(480), End: clock.Minutes(510)},
		&plan.Leg{Mode: "walk", Start: clock.Minutes(510), End: clock.Minutes(540), Distance: 1000},
		&plan.Activity{Act: "work", Start: clock.Minutes(540), End: clock.Minutes(1020)},
		&plan.Leg{Mode: "car", Start: clock.Minutes(1020), End: clock.Minutes(1140), Distance: 1000},
		&plan.Activity{Act: "home", Start: clock.Minutes(1140), End: clock.EndOfDay},
	)
}

func stayAtHome() plan.Plan {
	return plan.New("p0", &plan.Activity{Act: "home", Start: clock.StartOfDay, End: clock.EndOfDay})
}

func seeded(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

// creepingScorer rates every call a little higher than the last.
type creepingScorer struct {
	step  float64
	score float64
}

func (c *creepingScorer) Score(plan.Plan, scoring.Config, *float64) (float64, error) {
	c.score += c.step
	return c.score, nil
}

func TestMutateKeepsPlanValid(t *testing.T) {
	for _, policy := range []Policy{PolicyNormalized, PolicyUniform} {
		m := NewMutator(policy, seeded(7))
		p := commuterPlan("p1")
		for i := 0; i < 500; i++ {
			c := m.MutateCopy(p)
			require.NoError(t, c.Validate(), "%s draw %d", policy, i)

			legs, orig := c.Legs(), p.Legs()
			require.Len(t, legs, len(orig))
			for j := range legs {
				assert.Equal(t, orig[j].Mode, legs[j].Mode)
				assert.Equal(t, orig[j].Duration(), legs[j].Duration())
				assert.Equal(t, orig[j].Distance, legs[j].Distance)
			}
			for j, a := range c.Activities() {
				assert.Equal(t, p.Activities()[j].Act, a.Act)
				assert.GreaterOrEqual(t, a.Duration(), time.Duration(0))
			}
		}
	}
}

func TestMutateCopyLeavesInputUntouched(t *testing.T) {
	p := commuterPlan("p1")
	before := p.Clone()
	c := NewMutator(PolicyNormalized, seeded(1)).MutateCopy(p)

	assert.Equal(t, before, p)
	assert.NotSame(t, p.Day[0], c.Day[0])
}

func TestMutateInPlace(t *testing.T) {
	p := commuterPlan("p1")
	first := p.Day[0]
	out := NewMutator(PolicyUniform, seeded(3)).MutateInPlace(p)

	assert.Same(t, first, out.Day[0])
	require.NoError(t, p.Validate())
}

func TestMutateSingleActivitySpansDay(t *testing.T) {
	p := stayAtHome()
	p.Day[0].Shift(clock.StartOfDay, time.Hour)
	out := NewMutator(PolicyNormalized, seeded(1)).MutateInPlace(p)
	assert.Equal(t, clock.StartOfDay, out.Day[0].StartTime())
	assert.Equal(t, clock.EndOfDay, out.Day[0].EndTime())
}

func TestMutateIsReproducible(t *testing.T) {
	a := NewMutator(PolicyNormalized, seeded(42)).MutateCopy(commuterPlan("p1"))
	b := NewMutator(PolicyNormalized, seeded(42)).MutateCopy(commuterPlan("p1"))
	assert.Equal(t, a.ActivityHours(), b.ActivityHours())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyNormalized, p)

	p, err = ParsePolicy(" Uniform ")
	require.NoError(t, err)
	assert.Equal(t, PolicyUniform, p)

	_, err = ParsePolicy("greedy")
	assert.Error(t, err)
}

func TestStopperIncreasingThenFlat(t *testing.T) {
	s := NewStopper(5, 0.01)
	for i, score := range []float64{1, 2, 3, 4, 5} {
		assert.True(t, s.Observe(score), "observation %d", i+1)
	}
	// Window slides; the head-to-tail gain is still large.
	for _, score := range []float64{6, 6, 6, 6} {
		assert.True(t, s.Observe(score))
	}
	assert.False(t, s.Observe(6))
	assert.Equal(t, []float64{6, 6, 6, 6, 6}, s.Window())
}

func TestStopperSensitivityBoundary(t *testing.T) {
	s := NewStopper(2, 0.5)
	assert.True(t, s.Observe(1))
	assert.True(t, s.Observe(1.5))
	assert.True(t, s.Observe(2.1))
	assert.False(t, s.Observe(2.5))
}

func TestRescheduleImproves(t *testing.T) {
	scorer := scoring.NewCharyparNagel(zerolog.Nop())
	cfg := scoring.ExampleConfig()
	p := commuterPlan("p1")
	before := p.Clone()

	var improved []TracePoint
	opts := DefaultOptions()
	opts.Patience = 300
	opts.RecordSamples = true
	opts.OnImprove = func(tp TracePoint) { improved = append(improved, tp) }

	res, err := Reschedule(context.Background(), p, scorer, cfg, opts, seeded(11))
	require.NoError(t, err)

	assert.Equal(t, before, p, "input plan is not modified")
	require.NoError(t, res.Plan.Validate())
	require.NotEmpty(t, res.Trace)
	assert.Equal(t, 0, res.Trace[0].Iteration)
	assert.InDelta(t, 65, res.Trace[0].Score, 1e-9)
	for i := 1; i < len(res.Trace); i++ {
		assert.Greater(t, res.Trace[i].Score, res.Trace[i-1].Score)
		assert.Greater(t, res.Trace[i].Iteration, res.Trace[i-1].Iteration)
	}
	assert.Equal(t, res.Trace[len(res.Trace)-1].Score, res.Metrics.BestScore)
	require.Len(t, improved, len(res.Trace)-1)
	for i, tp := range improved {
		assert.Equal(t, res.Trace[i+1], tp)
	}
	assert.Equal(t, len(improved), res.Metrics.Improvements)
	assert.Len(t, res.Samples, res.Metrics.Iterations)
	assert.LessOrEqual(t, res.Metrics.Iterations, opts.Patience)
	assert.GreaterOrEqual(t, res.Gain(), 0.0)

	got, err := scorer.Score(res.Plan, cfg, nil)
	require.NoError(t, err)
	assert.InDelta(t, res.Metrics.BestScore, got, 1e-9)
}

func TestRescheduleStayAtHomeExhausts(t *testing.T) {
	scorer := scoring.NewCharyparNagel(zerolog.Nop())
	opts := DefaultOptions()
	opts.Patience = 50

	res, err := Reschedule(context.Background(), stayAtHome(), scorer, scoring.ExampleConfig(), opts, seeded(1))
	require.NoError(t, err)
	assert.True(t, res.Plan.IsValid())
	assert.Len(t, res.Trace, 1)
	assert.Equal(t, 50, res.Metrics.Iterations)
	assert.Equal(t, OutcomeExhausted, res.Metrics.Outcome)
	assert.False(t, res.Metrics.StoppedEarly)
}

func TestRescheduleStopsOnPlateau(t *testing.T) {
	opts := DefaultOptions()
	res, err := Reschedule(context.Background(), commuterPlan("p1"), &creepingScorer{step: 0.001}, scoring.NewConfig(), opts, seeded(1))
	require.NoError(t, err)

	assert.Equal(t, OutcomeConverged, res.Metrics.Outcome)
	assert.True(t, res.Metrics.StoppedEarly)
	assert.Equal(t, opts.Horizon+1, res.Metrics.Iterations)
	assert.Len(t, res.Trace, opts.Horizon+2)
}

func TestRescheduleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scorer := scoring.NewCharyparNagel(zerolog.Nop())

	res, err := Reschedule(ctx, commuterPlan("p1"), scorer, scoring.ExampleConfig(), DefaultOptions(), seeded(1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCancelled, res.Metrics.Outcome)
	assert.True(t, res.Plan.IsValid())
	assert.Len(t, res.Trace, 1)
}

func TestRescheduleErrors(t *testing.T) {
	scorer := scoring.NewCharyparNagel(zerolog.Nop())
	ctx := context.Background()

	cfg := scoring.ExampleConfig()
	delete(cfg.Modes, "walk")
	_, err := Reschedule(ctx, commuterPlan("p1"), scorer, cfg, DefaultOptions(), seeded(1))
	var ke *scoring.ConfigKeyError
	assert.ErrorAs(t, err, &ke)

	broken := commuterPlan("p1")
	broken.Day = broken.Day[:6]
	_, err = Reschedule(ctx, broken, scorer, scoring.ExampleConfig(), DefaultOptions(), seeded(1))
	assert.ErrorIs(t, err, plan.ErrInvariantViolation)

	for _, opts := range []Options{
		{Horizon: 0, Patience: 1},
		{Horizon: 5, Sensitivity: -1},
		{Horizon: 5, Patience: -1},
		{Horizon: 5, Policy: "annealing"},
	} {
		_, err = Reschedule(ctx, commuterPlan("p1"), scorer, scoring.ExampleConfig(), opts, seeded(1))
		assert.True(t, errors.Is(err, ErrInvalidOptions), "%+v", opts)
	}
}

func TestRescheduleAll(t *testing.T) {
	scorer := scoring.NewCharyparNagel(zerolog.Nop())
	cfg := scoring.ExampleConfig()
	bad := scoring.ExampleConfig()
	delete(bad.Activities, "work")

	jobs := []Job{
		{Plan: commuterPlan("a"), Config: cfg},
		{Plan: commuterPlan("b"), Config: bad},
		{Plan: stayAtHome(), Config: cfg},
	}
	opts := DefaultOptions()
	opts.Patience = 100

	first, err := RescheduleAll(context.Background(), jobs, scorer, opts, 2, 99)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "a", first[0].PersonID)
	assert.NoError(t, first[0].Err)
	assert.Error(t, first[1].Err)
	assert.NoError(t, first[2].Err)
	assert.True(t, first[2].Result.Plan.IsValid())

	again, err := RescheduleAll(context.Background(), jobs, scorer, opts, 1, 99)
	require.NoError(t, err)
	assert.Equal(t, first[0].Result.Trace, again[0].Result.Trace)
}

func TestMetricsStore(t *testing.T) {
	RecordMetrics("t1", "a", Metrics{Iterations: 3})
	RecordMetrics("t1", "b", Metrics{Iterations: 4})
	RecordMetrics("t2", "a", Metrics{Iterations: 5})

	assert.Len(t, GetMetrics("t1", ""), 2)
	got := GetMetrics("t1", "b")
	require.Len(t, got, 1)
	assert.Equal(t, 4, got["b"].Iterations)
}
