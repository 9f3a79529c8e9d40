package scoring

import (
	"errors"
	"fmt"

	"planscore/internal/clock"
)

// ErrNotImplemented is returned by scoring terms that are declared but not built.
var ErrNotImplemented = errors.New("scoring term not implemented")

// ErrInvalidConfig wraps structural problems in a raw configuration.
var ErrInvalidConfig = errors.New("invalid scoring config")

const (
	KindActivity = "activity"
	KindMode     = "mode"
)

// ConfigKeyError reports a plan referencing a category or mode (or a
// required field of one) that the configuration does not define.
type ConfigKeyError struct {
	Kind  string
	Key   string
	Field string
}

func (e *ConfigKeyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("scoring config: %s %q has no %s", e.Kind, e.Key, e.Field)
	}
	return fmt.Sprintf("scoring config: no %s %q", e.Kind, e.Key)
}

// ActivityRules holds the per-category parameters. Nil time windows disable
// the terms that depend on them.
type ActivityRules struct {
	// TypicalDuration is in hours and must be positive for duration scoring.
	TypicalDuration float64
	OpeningTime     *clock.TimeOfDay
	ClosingTime     *clock.TimeOfDay
	LatestStartTime *clock.TimeOfDay
	EarliestEndTime *clock.TimeOfDay
	// MinimalDuration is in hours. Only the too-short term would read it.
	MinimalDuration *float64
}

// ModeRules holds the per-mode travel parameters. Every field defaults to 0.
type ModeRules struct {
	Constant                    float64
	MarginalUtilityOfTravelling float64
	MarginalUtilityOfDistance   float64
	MonetaryDistanceRate        float64
	DailyUtilityConstant        float64
	DailyMonetaryConstant       float64
}

// Config is the full utility parameter set shared by every scoring call of
// a run. Build it with NewConfig or ParseRaw so MUM gets its default.
type Config struct {
	// MUM converts money to utility. Defaults to 1.
	MUM                 float64
	UtilityOfLineSwitch float64
	Performing          float64
	Waiting             float64
	LateArrival         float64
	EarlyDeparture      float64

	Activities map[string]ActivityRules
	Modes      map[string]ModeRules
}

// NewConfig returns an empty configuration with documented defaults:
// MUM = 1, all other weights 0, no categories and no modes.
func NewConfig() Config {
	return Config{
		MUM:        1,
		Activities: map[string]ActivityRules{},
		Modes:      map[string]ModeRules{},
	}
}

// Activity looks up the rules for an activity category.
func (c Config) Activity(category string) (ActivityRules, error) {
	r, ok := c.Activities[category]
	if !ok {
		return ActivityRules{}, &ConfigKeyError{Kind: KindActivity, Key: category}
	}
	return r, nil
}

// Mode looks up the rules for a travel mode.
func (c Config) Mode(mode string) (ModeRules, error) {
	r, ok := c.Modes[mode]
	if !ok {
		return ModeRules{}, &ConfigKeyError{Kind: KindMode, Key: mode}
	}
	return r, nil
}

func tod(s string) *clock.TimeOfDay {
	t, err := clock.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return &t
}

// ExampleConfig is the reference configuration: a commuter with home, work
// and shop activities travelling by car or on foot.
func ExampleConfig() Config {
	c := NewConfig()
	c.MUM = 10
	c.UtilityOfLineSwitch = -1
	c.Performing = 6
	c.LateArrival = -18
	c.EarlyDeparture = -10
	c.Activities["work"] = ActivityRules{
		TypicalDuration: 8,
		OpeningTime:     tod("06:00:00"),
		ClosingTime:     tod("20:00:00"),
		LatestStartTime: tod("09:30:00"),
		EarliestEndTime: tod("16:00:00"),
	}
	c.Activities["home"] = ActivityRules{TypicalDuration: 12}
	c.Activities["shop"] = ActivityRules{
		TypicalDuration: 0.5,
		OpeningTime:     tod("06:00:00"),
		ClosingTime:     tod("20:00:00"),
	}
	c.Modes["car"] = ModeRules{
		Constant:                    -10,
		DailyMonetaryConstant:       -1,
		DailyUtilityConstant:        -1,
		MarginalUtilityOfDistance:   -0.001,
		MarginalUtilityOfTravelling: -1,
		MonetaryDistanceRate:        -0.0001,
	}
	c.Modes["walk"] = ModeRules{Constant: -20}
	return c
}
