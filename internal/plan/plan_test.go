package plan

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planscore/internal/clock"
)

func commuterPlan() Plan {
	return New("p1",
		&Activity{Act: "home", Start: clock.Minutes(0), End: clock.Minutes(420)},
		&Leg{Mode: "car", Start: clock.Minutes(420), End: clock.Minutes(480), Distance: 1000},
		&Activity{Act: "shop", Start: clock.Minutes(480), End: clock.Minutes(510)},
		&Leg{Mode: "walk", Start: clock.Minutes(510), End: clock.Minutes(540), Distance: 1000},
		&Activity{Act: "work", Start: clock.Minutes(540), End: clock.Minutes(1020)},
		&Leg{Mode: "car", Start: clock.Minutes(1020), End: clock.Minutes(1140), Distance: 1000},
		&Activity{Act: "home", Start: clock.Minutes(1140), End: clock.EndOfDay},
	)
}

func TestViews(t *testing.T) {
	p := commuterPlan()
	require.Len(t, p.Activities(), 4)
	require.Len(t, p.Legs(), 3)
	assert.Equal(t, []string{"car", "walk"}, p.ModeClasses())
	assert.Equal(t, []float64{7, 0.5, 8, 5}, p.ActivityHours())
	assert.Equal(t, 3*time.Hour+30*time.Minute, p.LegDuration())
}

func TestValidate(t *testing.T) {
	require.NoError(t, commuterPlan().Validate())

	stayAtHome := New("p2", &Activity{Act: "home", Start: clock.StartOfDay, End: clock.EndOfDay})
	assert.True(t, stayAtHome.IsValid())

	cases := map[string]func(p *Plan){
		"gap": func(p *Plan) {
			p.Day[1].(*Leg).Start = clock.Minutes(425)
		},
		"late start": func(p *Plan) {
			p.Day[0].(*Activity).Start = clock.Minutes(1)
		},
		"short day": func(p *Plan) {
			p.Day[6].(*Activity).End = clock.Minutes(1439)
		},
		"reversed": func(p *Plan) {
			p.Day[2].(*Activity).End = clock.Minutes(470)
			p.Day[3].(*Leg).Start = clock.Minutes(470)
		},
		"ends with leg": func(p *Plan) {
			p.Day = p.Day[:6]
		},
		"two activities in a row": func(p *Plan) {
			p.Day[1] = &Activity{Act: "x", Start: clock.Minutes(420), End: clock.Minutes(480)}
		},
		"empty": func(p *Plan) {
			p.Day = nil
		},
	}
	for name, mutate := range cases {
		p := commuterPlan()
		mutate(&p)
		err := p.Validate()
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrInvariantViolation), name)
		assert.False(t, p.IsValid(), name)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := commuterPlan()
	c := p.Clone()
	c.Day[0].Shift(clock.StartOfDay, time.Hour)
	c.Legs()[0].Distance = 5

	assert.Equal(t, clock.Minutes(420), p.Day[0].EndTime())
	assert.Equal(t, 1000.0, p.Legs()[0].Distance)
	assert.Equal(t, p.PersonID, c.PersonID)
}

func TestNegativeHours(t *testing.T) {
	a := &Activity{Act: "work", Start: clock.Minutes(15 * 60), End: clock.Minutes(14 * 60)}
	assert.InDelta(t, -1, a.Hours(), 1e-12)
}
