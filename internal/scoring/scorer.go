// Package scoring evaluates day plans with the Charypar-Nagel utility
// function.
package scoring

import (
	"math"

	"github.com/rs/zerolog"

	"planscore/internal/clock"
	"planscore/internal/plan"
)

// priority scales the logarithmic branch of the duration score. It is
// fixed at 1.
const priority = 1.0

// Breakdown splits a plan score into its four independent terms.
type Breakdown struct {
	Activities float64 `json:"activities"`
	Legs       float64 `json:"legs"`
	Monetary   float64 `json:"monetary"`
	Daily      float64 `json:"daily"`
	Total      float64 `json:"total"`
}

// CharyparNagel scores plans. It holds no state besides its logger and is
// safe for concurrent use.
type CharyparNagel struct {
	log zerolog.Logger
}

// NewCharyparNagel returns a scorer that reports wrap warnings to logger.
func NewCharyparNagel(logger zerolog.Logger) *CharyparNagel {
	return &CharyparNagel{log: logger.With().Str("component", "scorer").Logger()}
}

// Score returns the utility of p. planCost, when set, adds a monetary term.
func (s *CharyparNagel) Score(p plan.Plan, cfg Config, planCost *float64) (float64, error) {
	b, err := s.Breakdown(p, cfg, planCost)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

// Breakdown computes every term of the score. Any missing category or mode
// aborts with a *ConfigKeyError and no partial result.
func (s *CharyparNagel) Breakdown(p plan.Plan, cfg Config, planCost *float64) (Breakdown, error) {
	var b Breakdown
	var err error
	if b.Activities, err = s.ActivitiesScore(p, cfg); err != nil {
		return Breakdown{}, err
	}
	if b.Legs, err = s.LegsScore(p, cfg); err != nil {
		return Breakdown{}, err
	}
	b.Monetary = s.MonetaryCostScore(planCost, cfg)
	if b.Daily, err = s.DailyScore(p, cfg); err != nil {
		return Breakdown{}, err
	}
	b.Total = b.Activities + b.Legs + b.Monetary + b.Daily
	return b, nil
}

// MonetaryCostScore converts an explicit plan cost into utility.
func (s *CharyparNagel) MonetaryCostScore(planCost *float64, cfg Config) float64 {
	if planCost == nil {
		return 0
	}
	return cfg.MUM * *planCost
}

// DailyScore charges each mode used in the plan once per day.
func (s *CharyparNagel) DailyScore(p plan.Plan, cfg Config) (float64, error) {
	total := 0.0
	for _, mode := range p.ModeClasses() {
		v, err := s.ModeDailyScore(mode, cfg)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func (s *CharyparNagel) ModeDailyScore(mode string, cfg Config) (float64, error) {
	r, err := cfg.Mode(mode)
	if err != nil {
		return 0, err
	}
	return r.DailyUtilityConstant + r.DailyMonetaryConstant*cfg.MUM, nil
}

// ActivitiesScore sums the activity terms. With more than one activity the
// first and last are scored together as one activity spanning midnight.
func (s *CharyparNagel) ActivitiesScore(p plan.Plan, cfg Config) (float64, error) {
	acts := p.Activities()
	switch len(acts) {
	case 0:
		return 0, nil
	case 1:
		return s.ActivityScore(acts[0], cfg)
	}
	wrapped, rest := s.WrapActivities(acts)
	total, err := s.ActivityScore(wrapped, cfg)
	if err != nil {
		return 0, err
	}
	for _, a := range rest {
		v, err := s.ActivityScore(a, cfg)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// WrapActivities merges the first and last activity into a new activity
// running from the last one's start to the first one's end on the next
// day. It returns the merged activity and the untouched interior ones.
func (s *CharyparNagel) WrapActivities(acts []*plan.Activity) (*plan.Activity, []*plan.Activity) {
	first, last := acts[0], acts[len(acts)-1]
	if first.Act != last.Act {
		s.log.Warn().Str("first", first.Act).Str("last", last.Act).Msg("wrapping non-alike activities")
	}
	wrapped := &plan.Activity{
		Act:   first.Act,
		Start: last.Start,
		End:   first.End.Add(clock.Day),
	}
	return wrapped, acts[1 : len(acts)-1]
}

// ActivityScore is the sum of the duration, waiting, late-arrival and
// early-departure terms.
func (s *CharyparNagel) ActivityScore(a *plan.Activity, cfg Config) (float64, error) {
	total := 0.0
	for _, term := range []func(*plan.Activity, Config) (float64, error){
		s.DurationScore,
		s.WaitingScore,
		s.LateArrivalScore,
		s.EarlyDepartureScore,
	} {
		v, err := term(a, cfg)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// DurationScore rewards time spent with diminishing returns around the
// category's typical duration. Time before opening and after closing does
// not count. Below T/e the curve continues as a straight line through zero
// at T/e.
func (s *CharyparNagel) DurationScore(a *plan.Activity, cfg Config) (float64, error) {
	r, err := cfg.Activity(a.Act)
	if err != nil {
		return 0, err
	}
	if r.TypicalDuration <= 0 {
		return 0, &ConfigKeyError{Kind: KindActivity, Key: a.Act, Field: keyTypicalDuration}
	}
	typical := r.TypicalDuration

	start, end := clock.TimeOf(a.Start), clock.TimeOf(a.End)
	duration := a.Hours()
	if r.OpeningTime != nil && r.OpeningTime.After(start) {
		duration = clock.HoursBetween(*r.OpeningTime, end)
	}
	if r.ClosingTime != nil && r.ClosingTime.Before(end) {
		duration -= clock.HoursBetween(*r.ClosingTime, end)
	}

	threshold := typical / math.E
	if duration < threshold {
		return (duration - threshold) * cfg.Performing * threshold, nil
	}
	return cfg.Performing * typical * (math.Log(duration/typical) + 1/priority), nil
}

// WaitingScore penalises arriving before the category opens.
func (s *CharyparNagel) WaitingScore(a *plan.Activity, cfg Config) (float64, error) {
	r, err := cfg.Activity(a.Act)
	if err != nil {
		return 0, err
	}
	if cfg.Waiting == 0 || r.OpeningTime == nil {
		return 0, nil
	}
	start := clock.TimeOf(a.Start)
	if start.Before(*r.OpeningTime) {
		return cfg.Waiting * clock.HoursBetween(start, *r.OpeningTime), nil
	}
	return 0, nil
}

// LateArrivalScore penalises starting after the latest start time.
func (s *CharyparNagel) LateArrivalScore(a *plan.Activity, cfg Config) (float64, error) {
	r, err := cfg.Activity(a.Act)
	if err != nil {
		return 0, err
	}
	if r.LatestStartTime == nil || cfg.LateArrival == 0 {
		return 0, nil
	}
	start := clock.TimeOf(a.Start)
	if start.After(*r.LatestStartTime) {
		return cfg.LateArrival * clock.HoursBetween(*r.LatestStartTime, start), nil
	}
	return 0, nil
}

// EarlyDepartureScore penalises leaving before the earliest end time.
func (s *CharyparNagel) EarlyDepartureScore(a *plan.Activity, cfg Config) (float64, error) {
	r, err := cfg.Activity(a.Act)
	if err != nil {
		return 0, err
	}
	if r.EarliestEndTime == nil || cfg.EarlyDeparture == 0 {
		return 0, nil
	}
	end := clock.TimeOf(a.End)
	if end.Before(*r.EarliestEndTime) {
		return cfg.EarlyDeparture * clock.HoursBetween(end, *r.EarliestEndTime), nil
	}
	return 0, nil
}

// TooShortScore would penalise activities shorter than their minimal
// duration. It is not part of the score yet.
func (s *CharyparNagel) TooShortScore(a *plan.Activity, cfg Config) (float64, error) {
	return 0, ErrNotImplemented
}

// LegsScore sums LegScore over every leg.
func (s *CharyparNagel) LegsScore(p plan.Plan, cfg Config) (float64, error) {
	total := 0.0
	for _, l := range p.Legs() {
		v, err := s.LegScore(l, cfg)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// LegScore is the mode constant plus time and distance costs.
func (s *CharyparNagel) LegScore(l *plan.Leg, cfg Config) (float64, error) {
	r, err := cfg.Mode(l.Mode)
	if err != nil {
		return 0, err
	}
	return modeConstant(r) + travelTime(l, r) + travelDistance(l, r, cfg.MUM), nil
}

func (s *CharyparNagel) ModeConstantScore(l *plan.Leg, cfg Config) (float64, error) {
	r, err := cfg.Mode(l.Mode)
	if err != nil {
		return 0, err
	}
	return modeConstant(r), nil
}

func (s *CharyparNagel) TravelTimeScore(l *plan.Leg, cfg Config) (float64, error) {
	r, err := cfg.Mode(l.Mode)
	if err != nil {
		return 0, err
	}
	return travelTime(l, r), nil
}

func (s *CharyparNagel) TravelDistanceScore(l *plan.Leg, cfg Config) (float64, error) {
	r, err := cfg.Mode(l.Mode)
	if err != nil {
		return 0, err
	}
	return travelDistance(l, r, cfg.MUM), nil
}

func modeConstant(r ModeRules) float64 { return r.Constant }

func travelTime(l *plan.Leg, r ModeRules) float64 {
	return l.Hours() * r.MarginalUtilityOfTravelling
}

func travelDistance(l *plan.Leg, r ModeRules, mum float64) float64 {
	return l.Distance * (r.MarginalUtilityOfDistance + mum*r.MonetaryDistanceRate)
}
