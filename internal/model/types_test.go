package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planscore/internal/clock"
	"planscore/internal/opt"
	"planscore/internal/plan"
)

func commuter() PlanIn {
	return PlanIn{PersonID: "p1", Day: []ElementIn{
		{Kind: KindActivity, Act: "home", Start: "00:00:00", End: "07:00:00"},
		{Kind: KindLeg, Mode: "car", Start: "07:00:00", End: "08:00:00", Distance: 1000},
		{Kind: KindActivity, Act: "work", Start: "08:00:00", End: "17:00:00"},
		{Kind: KindLeg, Mode: "car", Start: "17:00:00", End: "18:00:00", Distance: 1000},
		{Kind: KindActivity, Act: "home", Start: "18:00:00", End: "24:00:00"},
	}}
}

func TestPlanConversion(t *testing.T) {
	p, err := commuter().ToPlan()
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Equal(t, clock.EndOfDay, p.Day[4].EndTime())
	assert.Equal(t, 1000.0, p.Legs()[0].Distance)

	assert.Equal(t, commuter(), FromPlan(p))
}

func TestToPlanErrors(t *testing.T) {
	in := commuter()
	in.Day[2].Start = "8am"
	_, err := in.ToPlan()
	var fe *clock.ConfigFormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "day[2].start", fe.Field)

	in = commuter()
	in.Day[1].Kind = "teleport"
	_, err = in.ToPlan()
	assert.True(t, errors.Is(err, plan.ErrInvariantViolation))
}

func TestSearchParamsOptions(t *testing.T) {
	o, err := SearchParams{}.Options()
	require.NoError(t, err)
	assert.Equal(t, opt.DefaultOptions().Patience, o.Patience)
	assert.Equal(t, opt.PolicyNormalized, o.Policy)

	h, p := 3, 10
	o, err = SearchParams{Horizon: &h, Patience: &p, Policy: "uniform"}.Options()
	require.NoError(t, err)
	assert.Equal(t, 3, o.Horizon)
	assert.Equal(t, 10, o.Patience)
	assert.Equal(t, opt.PolicyUniform, o.Policy)

	zero := 0
	_, err = SearchParams{Horizon: &zero}.Options()
	assert.ErrorIs(t, err, opt.ErrInvalidOptions)

	_, err = SearchParams{Policy: "tabu"}.Options()
	assert.ErrorIs(t, err, opt.ErrInvalidOptions)
}
