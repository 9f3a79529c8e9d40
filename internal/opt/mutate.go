// Package opt searches for better activity schedules by random local
// moves over a fixed sequence of activities and legs.
package opt

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"planscore/internal/clock"
	"planscore/internal/plan"
)

// Policy selects how free time is split between activities.
type Policy string

const (
	// PolicyNormalized draws one weight per activity and scales the set to
	// the free time exactly.
	PolicyNormalized Policy = "normalized"
	// PolicyUniform draws each activity independently up to free/n. The
	// last activity absorbs whatever is left.
	PolicyUniform Policy = "uniform"
)

// ParsePolicy accepts a policy name; the empty string means normalized.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyNormalized:
		return PolicyNormalized, nil
	case PolicyUniform:
		return PolicyUniform, nil
	}
	return "", fmt.Errorf("unknown mutation policy %q", s)
}

// Mutator redistributes a plan's free time across its activities. Legs keep
// their duration and order. A Mutator owns its random stream and must not
// be shared between goroutines.
type Mutator struct {
	Policy Policy
	rng    *rand.Rand
}

func NewMutator(policy Policy, rng *rand.Rand) *Mutator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if policy == "" {
		policy = PolicyNormalized
	}
	return &Mutator{Policy: policy, rng: rng}
}

// MutateCopy returns a mutated deep copy and leaves p untouched.
func (m *Mutator) MutateCopy(p plan.Plan) plan.Plan {
	c := p.Clone()
	m.apply(c)
	return c
}

// MutateInPlace rewrites the timings of p's own elements and returns p.
func (m *Mutator) MutateInPlace(p plan.Plan) plan.Plan {
	m.apply(p)
	return p
}

func (m *Mutator) apply(p plan.Plan) {
	if len(p.Day) == 0 {
		return
	}
	if len(p.Day) == 1 {
		p.Day[0].Shift(clock.StartOfDay, clock.Day)
		return
	}
	durations := m.draw(len(p.Day)/2+1, clock.Day-p.LegDuration())

	t := p.Day[0].Shift(clock.StartOfDay, durations[0])
	for i := 1; i+1 < len(p.Day); i += 2 {
		leg := p.Day[i]
		t = leg.Shift(t, leg.Duration())
		t = p.Day[i+1].Shift(t, durations[(i+1)/2])
	}
	last := p.Day[len(p.Day)-1]
	last.Shift(last.StartTime(), clock.EndOfDay.Sub(last.StartTime()))
}

// draw returns n whole-second durations whose sum never exceeds free.
func (m *Mutator) draw(n int, free time.Duration) []time.Duration {
	secs := free.Seconds()
	if secs < 0 {
		secs = 0
	}
	out := make([]time.Duration, n)
	if m.Policy == PolicyUniform {
		for i := range out {
			out[i] = wholeSeconds(m.rng.Float64() * secs / float64(n))
		}
		return out
	}

	weights := make([]float64, n)
	sum := 0.0
	for i := range weights {
		weights[i] = m.rng.Float64()
		sum += weights[i]
	}
	for i, w := range weights {
		share := 1 / float64(n)
		if sum > 0 {
			share = w / sum
		}
		out[i] = wholeSeconds(share * secs)
	}
	return out
}

func wholeSeconds(s float64) time.Duration {
	return time.Duration(int64(s)) * time.Second
}
