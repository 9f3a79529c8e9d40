package scoring

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"planscore/internal/clock"
)

// Raw configuration keys. The layout is one flat mapping of global weights
// plus one sub-mapping per activity category or travel mode.
const (
	keyMUM                 = "mUM"
	keyUtilityOfLineSwitch = "utilityOfLineSwitch"
	keyPerforming          = "performing"
	keyWaiting             = "waiting"
	keyLateArrival         = "lateArrival"
	keyEarlyDeparture      = "earlyDeparture"

	keyTypicalDuration = "typicalDuration"
	keyOpeningTime     = "openingTime"
	keyClosingTime     = "closingTime"
	keyLatestStartTime = "latestStartTime"
	keyEarliestEndTime = "earliestEndTime"
	keyMinimalDuration = "minimalDuration"

	keyConstant                    = "constant"
	keyMarginalUtilityOfTravelling = "marginalUtilityOfTravelling"
	keyMarginalUtilityOfDistance   = "marginalUtilityOfDistance"
	keyMonetaryDistanceRate        = "monetaryDistanceRate"
	keyDailyUtilityConstant        = "dailyUtilityConstant"
	keyDailyMonetaryConstant       = "dailyMonetaryConstant"
)

var activityKeys = map[string]bool{
	keyTypicalDuration: true, keyOpeningTime: true, keyClosingTime: true,
	keyLatestStartTime: true, keyEarliestEndTime: true, keyMinimalDuration: true,
}

var modeKeys = map[string]bool{
	keyConstant: true, keyMarginalUtilityOfTravelling: true, keyMarginalUtilityOfDistance: true,
	keyMonetaryDistanceRate: true, keyDailyUtilityConstant: true, keyDailyMonetaryConstant: true,
}

// ParseRaw converts the nested mapping form (as decoded from YAML or JSON)
// into a typed Config. Sub-mappings holding any activity key are
// categories; the rest are modes.
func ParseRaw(raw map[string]any) (Config, error) {
	c := NewConfig()
	globals := map[string]*float64{
		keyMUM:                 &c.MUM,
		keyUtilityOfLineSwitch: &c.UtilityOfLineSwitch,
		keyPerforming:          &c.Performing,
		keyWaiting:             &c.Waiting,
		keyLateArrival:         &c.LateArrival,
		keyEarlyDeparture:      &c.EarlyDeparture,
	}
	for key, v := range raw {
		if dst, ok := globals[key]; ok {
			if v == nil {
				continue
			}
			f, err := toFloat(v)
			if err != nil {
				return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
			}
			*dst = f
			continue
		}
		sub, ok := toMap(v)
		if !ok {
			return Config{}, fmt.Errorf("%w: %s: expected a number or a mapping, got %T", ErrInvalidConfig, key, v)
		}
		isActivity, isMode := false, false
		for k := range sub {
			isActivity = isActivity || activityKeys[k]
			isMode = isMode || modeKeys[k]
		}
		if isActivity && isMode {
			return Config{}, fmt.Errorf("%w: %s mixes activity and mode parameters", ErrInvalidConfig, key)
		}
		if isActivity {
			r, err := parseActivity(key, sub)
			if err != nil {
				return Config{}, err
			}
			c.Activities[key] = r
			continue
		}
		r, err := parseMode(key, sub)
		if err != nil {
			return Config{}, err
		}
		c.Modes[key] = r
	}
	return c, nil
}

func parseActivity(category string, sub map[string]any) (ActivityRules, error) {
	var r ActivityRules
	field := func(k string) string { return category + "." + k }
	if v, ok := sub[keyTypicalDuration]; ok {
		h, err := parseHours(field(keyTypicalDuration), v)
		if err != nil {
			return r, err
		}
		r.TypicalDuration = h
	}
	if v, ok := sub[keyMinimalDuration]; ok {
		h, err := parseHours(field(keyMinimalDuration), v)
		if err != nil {
			return r, err
		}
		r.MinimalDuration = &h
	}
	windows := []struct {
		key string
		dst **clock.TimeOfDay
	}{
		{keyOpeningTime, &r.OpeningTime},
		{keyClosingTime, &r.ClosingTime},
		{keyLatestStartTime, &r.LatestStartTime},
		{keyEarliestEndTime, &r.EarliestEndTime},
	}
	for _, w := range windows {
		v, ok := sub[w.key]
		if !ok || v == nil {
			continue
		}
		s, _ := v.(string)
		t, err := clock.ParseTimeOfDay(s)
		if err != nil {
			return r, withField(err, field(w.key), v)
		}
		*w.dst = &t
	}
	return r, nil
}

func parseMode(mode string, sub map[string]any) (ModeRules, error) {
	var r ModeRules
	fields := map[string]*float64{
		keyConstant:                    &r.Constant,
		keyMarginalUtilityOfTravelling: &r.MarginalUtilityOfTravelling,
		keyMarginalUtilityOfDistance:   &r.MarginalUtilityOfDistance,
		keyMonetaryDistanceRate:        &r.MonetaryDistanceRate,
		keyDailyUtilityConstant:        &r.DailyUtilityConstant,
		keyDailyMonetaryConstant:       &r.DailyMonetaryConstant,
	}
	for k, dst := range fields {
		v, ok := sub[k]
		if !ok {
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return r, fmt.Errorf("%w: %s.%s: %v", ErrInvalidConfig, mode, k, err)
		}
		*dst = f
	}
	return r, nil
}

func parseHours(field string, v any) (float64, error) {
	s, _ := v.(string)
	h, err := clock.ParseTypicalDuration(s)
	if err != nil {
		return 0, withField(err, field, v)
	}
	return h, nil
}

func withField(err error, field string, v any) error {
	var fe *clock.ConfigFormatError
	if errors.As(err, &fe) {
		fe.Field = field
		fe.Value = fmt.Sprint(v)
	}
	return err
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, x := range m {
			out[fmt.Sprint(k)] = x
		}
		return out, true
	}
	return nil, false
}

// Raw renders c back into the nested mapping form. Zero-valued optional
// fields are omitted.
func (c Config) Raw() map[string]any {
	out := map[string]any{
		keyMUM:                 c.MUM,
		keyUtilityOfLineSwitch: c.UtilityOfLineSwitch,
		keyPerforming:          c.Performing,
		keyWaiting:             c.Waiting,
		keyLateArrival:         c.LateArrival,
		keyEarlyDeparture:      c.EarlyDeparture,
	}
	hms := func(h float64) string { return clock.FormatHMS(time.Duration(math.Round(h*3600)) * time.Second) }
	for cat, r := range c.Activities {
		m := map[string]any{keyTypicalDuration: hms(r.TypicalDuration)}
		if r.MinimalDuration != nil {
			m[keyMinimalDuration] = hms(*r.MinimalDuration)
		}
		for k, t := range map[string]*clock.TimeOfDay{
			keyOpeningTime: r.OpeningTime, keyClosingTime: r.ClosingTime,
			keyLatestStartTime: r.LatestStartTime, keyEarliestEndTime: r.EarliestEndTime,
		} {
			if t != nil {
				m[k] = t.String()
			}
		}
		out[cat] = m
	}
	for mode, r := range c.Modes {
		m := map[string]any{}
		for k, f := range map[string]float64{
			keyConstant: r.Constant, keyMarginalUtilityOfTravelling: r.MarginalUtilityOfTravelling,
			keyMarginalUtilityOfDistance: r.MarginalUtilityOfDistance, keyMonetaryDistanceRate: r.MonetaryDistanceRate,
			keyDailyUtilityConstant: r.DailyUtilityConstant, keyDailyMonetaryConstant: r.DailyMonetaryConstant,
		} {
			if f != 0 {
				m[k] = f
			}
		}
		out[mode] = m
	}
	return out
}

// Overlay merges over onto base one level deep: sub-mappings are merged key
// by key, scalars are replaced. Neither input is modified.
func Overlay(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		bm, bok := toMap(out[k])
		om, ook := toMap(v)
		if bok && ook {
			merged := make(map[string]any, len(bm)+len(om))
			for sk, sv := range bm {
				merged[sk] = sv
			}
			for sk, sv := range om {
				merged[sk] = sv
			}
			out[k] = merged
			continue
		}
		out[k] = v
	}
	return out
}

// UnmarshalYAML decodes the nested YAML form.
func UnmarshalYAML(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return ParseRaw(raw)
}

// MarshalYAML encodes c in the nested YAML form. Keys come out sorted.
func MarshalYAML(c Config) ([]byte, error) {
	return yaml.Marshal(c.Raw())
}

// LoadFile reads a YAML scoring configuration from disk.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scoring config: %w", err)
	}
	c, err := UnmarshalYAML(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
