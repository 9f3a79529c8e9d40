// Package clock converts between plan timestamps, durations and the
// time-of-day values used by scoring configuration.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is the span every plan must cover.
const Day = 24 * time.Hour

var (
	// StartOfDay is the reference midnight all plan timestamps are anchored to.
	StartOfDay = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	// EndOfDay is the following midnight.
	EndOfDay = StartOfDay.Add(Day)
)

// Minutes returns the timestamp m minutes after StartOfDay.
func Minutes(m int) time.Time {
	return StartOfDay.Add(time.Duration(m) * time.Minute)
}

// TimeOfDay is an offset from midnight in [0, 24h). Only hour, minute and
// second matter, so values taken from different calendar dates compare.
type TimeOfDay time.Duration

// TimeOf returns the wall-clock position of t, ignoring its date.
func TimeOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	return TimeOfDay(d + time.Duration(t.Nanosecond()))
}

func (t TimeOfDay) Before(o TimeOfDay) bool { return t < o }
func (t TimeOfDay) After(o TimeOfDay) bool  { return t > o }

func (t TimeOfDay) String() string { return FormatHMS(time.Duration(t)) }

// DurationToHours returns signed fractional hours. Negative spans are kept
// so reversed intervals can still be scored.
func DurationToHours(d time.Duration) float64 {
	return d.Seconds() / 3600
}

// HoursBetween returns the forward distance on the 24h clock from one
// time-of-day to another, always in [0, 24).
func HoursBetween(from, to TimeOfDay) float64 {
	d := time.Duration(to-from) % Day
	if d < 0 {
		d += Day
	}
	return DurationToHours(d)
}

// ConfigFormatError reports a malformed "HH:MM:SS" value.
type ConfigFormatError struct {
	Field string
	Value string
}

func (e *ConfigFormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid time value %q: want HH:MM:SS", e.Value)
	}
	return fmt.Sprintf("invalid time value %q for %s: want HH:MM:SS", e.Value, e.Field)
}

// ParseHMS parses "HH:MM:SS" into a duration. Hours may exceed 23.
func ParseHMS(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, &ConfigFormatError{Value: s}
	}
	var vals [3]int
	for i, p := range parts {
		if p == "" {
			return 0, &ConfigFormatError{Value: s}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, &ConfigFormatError{Value: s}
		}
		vals[i] = n
	}
	if vals[1] > 59 || vals[2] > 59 {
		return 0, &ConfigFormatError{Value: s}
	}
	return time.Duration(vals[0])*time.Hour + time.Duration(vals[1])*time.Minute + time.Duration(vals[2])*time.Second, nil
}

// ParseTypicalDuration parses "HH:MM:SS" into fractional hours.
func ParseTypicalDuration(s string) (float64, error) {
	d, err := ParseHMS(s)
	if err != nil {
		return 0, err
	}
	return DurationToHours(d), nil
}

// ParseTimeOfDay parses "HH:MM:SS" into a position on the 24h clock.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	d, err := ParseHMS(s)
	if err != nil {
		return 0, err
	}
	if d >= Day {
		return 0, &ConfigFormatError{Value: s}
	}
	return TimeOfDay(d), nil
}

// FormatHMS renders d as "HH:MM:SS", truncating sub-second parts.
func FormatHMS(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, secs/3600, (secs/60)%60, secs%60)
}

// ParseTimestamp parses an "HH:MM:SS" offset from StartOfDay; "24:00:00"
// yields EndOfDay.
func ParseTimestamp(s string) (time.Time, error) {
	d, err := ParseHMS(s)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay.Add(d), nil
}

// FormatTimestamp is the inverse of ParseTimestamp.
func FormatTimestamp(t time.Time) string {
	return FormatHMS(t.Sub(StartOfDay))
}
