package scoring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planscore/internal/clock"
)

const exampleYAML = `
mUM: 10
utilityOfLineSwitch: -1
performing: 6
lateArrival: -18
earlyDeparture: -10
work:
  typicalDuration: "08:00:00"
  openingTime: "06:00:00"
  closingTime: "20:00:00"
  latestStartTime: "09:30:00"
  earliestEndTime: "16:00:00"
home:
  typicalDuration: "12:00:00"
shop:
  typicalDuration: "00:30:00"
  openingTime: "06:00:00"
  closingTime: "20:00:00"
car:
  constant: -10
  dailyMonetaryConstant: -1
  dailyUtilityConstant: -1
  marginalUtilityOfDistance: -0.001
  marginalUtilityOfTravelling: -1
  monetaryDistanceRate: -0.0001
walk:
  constant: -20
`

func TestUnmarshalYAMLMatchesExample(t *testing.T) {
	got, err := UnmarshalYAML([]byte(exampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ExampleConfig(), got)
}

func TestMarshalYAMLRoundTrip(t *testing.T) {
	data, err := MarshalYAML(ExampleConfig())
	require.NoError(t, err)
	back, err := UnmarshalYAML(data)
	require.NoError(t, err)
	assert.Equal(t, ExampleConfig(), back)
}

func TestRawRoundTripKeepsWholeSeconds(t *testing.T) {
	for _, typical := range []string{"01:05:00", "00:01:05", "02:03:00", "07:59:59", "23:59:59"} {
		c, err := ParseRaw(map[string]any{
			"home": map[string]any{"typicalDuration": typical, "minimalDuration": "00:01:05"},
		})
		require.NoError(t, err)
		back, err := ParseRaw(c.Raw())
		require.NoError(t, err, typical)
		assert.Equal(t, c, back, typical)
		assert.Equal(t, typical, c.Raw()["home"].(map[string]any)["typicalDuration"])
	}

	for sec := 1; sec < 24*3600; sec++ {
		h := float64(sec) / 3600
		c := NewConfig()
		c.Activities["home"] = ActivityRules{TypicalDuration: h}
		back, err := ParseRaw(c.Raw())
		require.NoError(t, err)
		if back.Activities["home"].TypicalDuration != h {
			t.Fatalf("typical duration of %ds changed to %v hours", sec, back.Activities["home"].TypicalDuration)
		}
	}
}

func TestParseRawNullWeightsKeepDefaults(t *testing.T) {
	c, err := UnmarshalYAML([]byte("mUM: ~\nperforming: null\nhome:\n  typicalDuration: \"12:00:00\"\n"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.MUM)
	assert.Equal(t, NewConfig().Performing, c.Performing)
}

func TestParseRawDefaults(t *testing.T) {
	c, err := ParseRaw(map[string]any{
		"performing": 6,
		"home":       map[string]any{"typicalDuration": "12:00:00"},
		"bike":       map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.MUM)
	assert.Zero(t, c.Waiting)
	assert.Contains(t, c.Activities, "home")
	assert.Equal(t, ModeRules{}, c.Modes["bike"])
	assert.Nil(t, c.Activities["home"].OpeningTime)
}

func TestParseRawFormatErrors(t *testing.T) {
	cases := map[string]any{
		"home.typicalDuration": map[string]any{"home": map[string]any{"typicalDuration": "12h"}},
		"work.openingTime":     map[string]any{"work": map[string]any{"typicalDuration": "08:00:00", "openingTime": "6:00"}},
		"work.closingTime":     map[string]any{"work": map[string]any{"typicalDuration": "08:00:00", "closingTime": "25:00:00"}},
		"shop.minimalDuration": map[string]any{"shop": map[string]any{"minimalDuration": 30}},
	}
	for field, raw := range cases {
		_, err := ParseRaw(raw.(map[string]any))
		var fe *clock.ConfigFormatError
		require.ErrorAs(t, err, &fe, field)
		assert.Equal(t, field, fe.Field)
	}
}

func TestParseRawStructuralErrors(t *testing.T) {
	for name, raw := range map[string]map[string]any{
		"scalar category": {"home": "12:00:00"},
		"bad weight":      {"performing": "lots"},
		"mixed":           {"x": map[string]any{"typicalDuration": "01:00:00", "constant": 1}},
		"bad mode value":  {"car": map[string]any{"constant": []int{1}}},
	} {
		_, err := ParseRaw(raw)
		assert.True(t, errors.Is(err, ErrInvalidConfig), name)
	}
}

func TestLookup(t *testing.T) {
	c := ExampleConfig()
	_, err := c.Activity("work")
	require.NoError(t, err)

	_, err = c.Activity("gym")
	var ke *ConfigKeyError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, ConfigKeyError{Kind: KindActivity, Key: "gym"}, *ke)
	assert.Contains(t, err.Error(), `"gym"`)

	_, err = c.Mode("bus")
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, KindMode, ke.Kind)
}

func TestOverlay(t *testing.T) {
	base := ExampleConfig().Raw()
	over := map[string]any{
		"performing": 7,
		"work":       map[string]any{"typicalDuration": "09:00:00"},
		"bike":       map[string]any{"constant": -5},
	}
	merged := Overlay(base, over)

	c, err := ParseRaw(merged)
	require.NoError(t, err)
	assert.Equal(t, 7.0, c.Performing)
	assert.Equal(t, 9.0, c.Activities["work"].TypicalDuration)
	require.NotNil(t, c.Activities["work"].OpeningTime)
	assert.Equal(t, -5.0, c.Modes["bike"].Constant)

	assert.Equal(t, 6.0, base["performing"], "base is not modified")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleYAML), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.MUM)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
