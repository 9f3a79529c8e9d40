// Package plan models one person's day as an alternating sequence of
// activities and the legs travelled between them.
package plan

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"planscore/internal/clock"
)

// ErrInvariantViolation marks a plan that breaks contiguity, ordering or
// the one-day total.
var ErrInvariantViolation = errors.New("plan invariant violated")

// Element is a single entry of a day: either *Activity or *Leg.
type Element interface {
	StartTime() time.Time
	EndTime() time.Time
	Duration() time.Duration
	Hours() float64
	// Shift moves the element to start at start and last d, returning its new end.
	Shift(start time.Time, d time.Duration) time.Time
}

// Activity is a stationary period at a category of place.
type Activity struct {
	Act   string
	Start time.Time
	End   time.Time
}

func (a *Activity) StartTime() time.Time    { return a.Start }
func (a *Activity) EndTime() time.Time      { return a.End }
func (a *Activity) Duration() time.Duration { return a.End.Sub(a.Start) }
func (a *Activity) Hours() float64          { return clock.DurationToHours(a.Duration()) }

func (a *Activity) String() string {
	return fmt.Sprintf("Activity(%s %s-%s)", a.Act, clock.FormatTimestamp(a.Start), clock.FormatTimestamp(a.End))
}

func (a *Activity) Shift(start time.Time, d time.Duration) time.Time {
	a.Start = start
	a.End = start.Add(d)
	return a.End
}

// Leg is travel between two activities.
type Leg struct {
	Mode     string
	Start    time.Time
	End      time.Time
	Distance float64
}

func (l *Leg) StartTime() time.Time    { return l.Start }
func (l *Leg) EndTime() time.Time      { return l.End }
func (l *Leg) Duration() time.Duration { return l.End.Sub(l.Start) }
func (l *Leg) Hours() float64          { return clock.DurationToHours(l.Duration()) }

func (l *Leg) String() string {
	return fmt.Sprintf("Leg(%s %s-%s %.0fm)", l.Mode, clock.FormatTimestamp(l.Start), clock.FormatTimestamp(l.End), l.Distance)
}

func (l *Leg) Shift(start time.Time, d time.Duration) time.Time {
	l.Start = start
	l.End = start.Add(d)
	return l.End
}

// Plan is the full day. Elements alternate Activity, Leg, Activity and the
// sequence starts and ends with an Activity.
type Plan struct {
	PersonID string
	Day      []Element
}

// New builds a plan from its day sequence.
func New(personID string, day ...Element) Plan {
	return Plan{PersonID: personID, Day: day}
}

// Activities returns the activities in day order. The pointers alias the plan.
func (p Plan) Activities() []*Activity {
	out := make([]*Activity, 0, len(p.Day)/2+1)
	for _, e := range p.Day {
		if a, ok := e.(*Activity); ok {
			out = append(out, a)
		}
	}
	return out
}

// Legs returns the legs in day order. The pointers alias the plan.
func (p Plan) Legs() []*Leg {
	out := make([]*Leg, 0, len(p.Day)/2)
	for _, e := range p.Day {
		if l, ok := e.(*Leg); ok {
			out = append(out, l)
		}
	}
	return out
}

// ModeClasses returns the distinct leg modes, sorted.
func (p Plan) ModeClasses() []string {
	seen := map[string]struct{}{}
	modes := []string{}
	for _, l := range p.Legs() {
		if _, ok := seen[l.Mode]; ok {
			continue
		}
		seen[l.Mode] = struct{}{}
		modes = append(modes, l.Mode)
	}
	sort.Strings(modes)
	return modes
}

// Clone returns a deep copy that shares nothing with p.
func (p Plan) Clone() Plan {
	out := Plan{PersonID: p.PersonID, Day: make([]Element, len(p.Day))}
	for i, e := range p.Day {
		switch v := e.(type) {
		case *Activity:
			c := *v
			out.Day[i] = &c
		case *Leg:
			c := *v
			out.Day[i] = &c
		}
	}
	return out
}

// ActivityHours is the per-activity duration vector in hours.
func (p Plan) ActivityHours() []float64 {
	acts := p.Activities()
	out := make([]float64, len(acts))
	for i, a := range acts {
		out[i] = a.Hours()
	}
	return out
}

// LegDuration is the total time spent travelling.
func (p Plan) LegDuration() time.Duration {
	var total time.Duration
	for _, l := range p.Legs() {
		total += l.Duration()
	}
	return total
}

// Validate checks ordering, contiguity and that the day spans exactly 24h.
func (p Plan) Validate() error {
	if len(p.Day) == 0 {
		return fmt.Errorf("%w: empty day", ErrInvariantViolation)
	}
	if len(p.Day)%2 == 0 {
		return fmt.Errorf("%w: day must start and end with an activity", ErrInvariantViolation)
	}
	var total time.Duration
	for i, e := range p.Day {
		switch e.(type) {
		case *Activity:
			if i%2 != 0 {
				return fmt.Errorf("%w: element %d: expected leg, got activity", ErrInvariantViolation, i)
			}
		case *Leg:
			if i%2 != 1 {
				return fmt.Errorf("%w: element %d: expected activity, got leg", ErrInvariantViolation, i)
			}
		default:
			return fmt.Errorf("%w: element %d: unknown element %T", ErrInvariantViolation, i, e)
		}
		if e.EndTime().Before(e.StartTime()) {
			return fmt.Errorf("%w: element %d ends before it starts", ErrInvariantViolation, i)
		}
		if i > 0 && !p.Day[i-1].EndTime().Equal(e.StartTime()) {
			return fmt.Errorf("%w: gap or overlap between elements %d and %d", ErrInvariantViolation, i-1, i)
		}
		total += e.Duration()
	}
	if !p.Day[0].StartTime().Equal(clock.StartOfDay) {
		return fmt.Errorf("%w: day starts at %s", ErrInvariantViolation, clock.FormatTimestamp(p.Day[0].StartTime()))
	}
	if last := p.Day[len(p.Day)-1]; !last.EndTime().Equal(clock.EndOfDay) {
		return fmt.Errorf("%w: day ends at %s", ErrInvariantViolation, clock.FormatTimestamp(last.EndTime()))
	}
	if total != clock.Day {
		return fmt.Errorf("%w: day spans %s", ErrInvariantViolation, total)
	}
	return nil
}

// IsValid reports whether Validate passes.
func (p Plan) IsValid() bool { return p.Validate() == nil }
