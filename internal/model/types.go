package model

import (
	"fmt"
	"time"

	"planscore/internal/clock"
	"planscore/internal/opt"
	"planscore/internal/plan"
	"planscore/internal/scoring"
)

// Element kinds on the wire.
const (
	KindActivity = "activity"
	KindLeg      = "leg"
)

// ElementIn is one day entry. Times are "HH:MM:SS" offsets from midnight;
// "24:00:00" is the end of the day.
type ElementIn struct {
	Kind     string  `json:"kind"`
	Act      string  `json:"act,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Distance float64 `json:"distance,omitempty"`
}

type PlanIn struct {
	PersonID string      `json:"personId"`
	Day      []ElementIn `json:"day"`
}

// ToPlan converts the wire form. It checks field formats only; the day
// invariants are left to plan.Validate.
func (in PlanIn) ToPlan() (plan.Plan, error) {
	day := make([]plan.Element, 0, len(in.Day))
	for i, e := range in.Day {
		start, err := parseTime(fmt.Sprintf("day[%d].start", i), e.Start)
		if err != nil {
			return plan.Plan{}, err
		}
		end, err := parseTime(fmt.Sprintf("day[%d].end", i), e.End)
		if err != nil {
			return plan.Plan{}, err
		}
		switch e.Kind {
		case KindActivity:
			day = append(day, &plan.Activity{Act: e.Act, Start: start, End: end})
		case KindLeg:
			day = append(day, &plan.Leg{Mode: e.Mode, Start: start, End: end, Distance: e.Distance})
		default:
			return plan.Plan{}, fmt.Errorf("%w: day[%d]: unknown kind %q", plan.ErrInvariantViolation, i, e.Kind)
		}
	}
	return plan.New(in.PersonID, day...), nil
}

func parseTime(field, s string) (time.Time, error) {
	t, err := clock.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, &clock.ConfigFormatError{Field: field, Value: s}
	}
	return t, nil
}

func FromPlan(p plan.Plan) PlanIn {
	out := PlanIn{PersonID: p.PersonID, Day: make([]ElementIn, 0, len(p.Day))}
	for _, e := range p.Day {
		in := ElementIn{Start: clock.FormatTimestamp(e.StartTime()), End: clock.FormatTimestamp(e.EndTime())}
		switch v := e.(type) {
		case *plan.Activity:
			in.Kind, in.Act = KindActivity, v.Act
		case *plan.Leg:
			in.Kind, in.Mode, in.Distance = KindLeg, v.Mode, v.Distance
		}
		out.Day = append(out.Day, in)
	}
	return out
}

// ScoreRequest scores one plan. Config, when present, is overlaid on the
// tenant's stored scoring config.
type ScoreRequest struct {
	Plan     PlanIn         `json:"plan"`
	Config   map[string]any `json:"config,omitempty"`
	PlanCost *float64       `json:"planCost,omitempty"`
}

type ScoreResponse struct {
	PersonID  string            `json:"personId"`
	Score     float64           `json:"score"`
	Breakdown scoring.Breakdown `json:"breakdown"`
}

// SearchParams are the tunables shared by single and batch rescheduling.
// Nil fields take the defaults.
type SearchParams struct {
	Horizon       *int     `json:"horizon,omitempty"`
	Sensitivity   *float64 `json:"sensitivity,omitempty"`
	Patience      *int     `json:"patience,omitempty"`
	Policy        string   `json:"policy,omitempty"`
	Seed          int64    `json:"seed,omitempty"`
	RecordSamples bool     `json:"recordSamples,omitempty"`
}

// Options applies the params on top of opt.DefaultOptions.
func (sp SearchParams) Options() (opt.Options, error) {
	o := opt.DefaultOptions()
	if sp.Horizon != nil {
		o.Horizon = *sp.Horizon
	}
	if sp.Sensitivity != nil {
		o.Sensitivity = *sp.Sensitivity
	}
	if sp.Patience != nil {
		o.Patience = *sp.Patience
	}
	policy, err := opt.ParsePolicy(sp.Policy)
	if err != nil {
		return o, fmt.Errorf("%w: %v", opt.ErrInvalidOptions, err)
	}
	o.Policy = policy
	o.RecordSamples = sp.RecordSamples
	return o, o.Validate()
}

type RescheduleRequest struct {
	Plan     PlanIn         `json:"plan"`
	Config   map[string]any `json:"config,omitempty"`
	PlanCost *float64       `json:"planCost,omitempty"`
	SearchParams
}

type RescheduleResponse struct {
	RunID    string           `json:"runId"`
	PersonID string           `json:"personId"`
	Plan     PlanIn           `json:"plan"`
	Trace    []opt.TracePoint `json:"trace"`
	Samples  []opt.Sample     `json:"samples,omitempty"`
	Metrics  opt.Metrics      `json:"metrics"`
}

type BatchRequest struct {
	Plans  []PlanIn       `json:"plans"`
	Config map[string]any `json:"config,omitempty"`
	SearchParams
}

type BatchItem struct {
	PersonID  string       `json:"personId"`
	RunID     string       `json:"runId,omitempty"`
	BestScore float64      `json:"bestScore,omitempty"`
	Metrics   *opt.Metrics `json:"metrics,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type BatchResponse struct {
	Items []BatchItem `json:"items"`
}

// RunRecord is a persisted reschedule run.
type RunRecord struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenantId"`
	PersonID  string           `json:"personId"`
	Policy    string           `json:"policy"`
	Seed      int64            `json:"seed"`
	Metrics   opt.Metrics      `json:"metrics"`
	Trace     []opt.TracePoint `json:"trace"`
	Plan      PlanIn           `json:"plan"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Event is published on the broker and streamed to websocket clients.
type Event struct {
	Type     string `json:"type"`
	TenantID string `json:"tenantId"`
	PersonID string `json:"personId"`
	RunID    string `json:"runId,omitempty"`
	Data     any    `json:"data,omitempty"`
	At       string `json:"at"`
}

const (
	EventImproved  = "reschedule.improved"
	EventCompleted = "reschedule.completed"
)
