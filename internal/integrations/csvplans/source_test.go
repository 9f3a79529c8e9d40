package csvplans

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planscore/internal/model"
)

const population = `person_id,kind,label,start,end,distance
a,activity,home,00:00:00,08:00:00,
a,leg,car,08:00:00,09:00:00,1500
a,activity,work,09:00:00,17:00:00,
a,leg,car,17:00:00,18:00:00,1500
a,activity,home,18:00:00,24:00:00,
b,activity,home,00:00:00,24:00:00,
`

func TestRead(t *testing.T) {
	plans, err := Read(context.Background(), strings.NewReader(population))
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "a", plans[0].PersonID)
	require.Len(t, plans[0].Day, 5)
	assert.Equal(t, model.ElementIn{Kind: model.KindLeg, Mode: "car", Start: "08:00:00", End: "09:00:00", Distance: 1500}, plans[0].Day[1])
	assert.Equal(t, "work", plans[0].Day[2].Act)

	p, err := plans[0].ToPlan()
	require.NoError(t, err)
	assert.NoError(t, p.Validate())

	assert.Equal(t, "b", plans[1].PersonID)
	assert.Len(t, plans[1].Day, 1)
}

func TestReadWithoutHeader(t *testing.T) {
	body := strings.SplitN(population, "\n", 2)[1]
	plans, err := Read(context.Background(), strings.NewReader(body))
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"kind":       "a,teleport,x,00:00:00,24:00:00,\n",
		"distance":   "a,leg,car,00:00:00,01:00:00,far\n",
		"person":     ",activity,home,00:00:00,24:00:00,\n",
		"columns":    "a,activity,home,00:00:00\n",
		"contiguous": "a,activity,home,00:00:00,08:00:00,\nb,activity,home,00:00:00,24:00:00,\na,activity,home,08:00:00,24:00:00,\n",
	}
	for name, body := range cases {
		_, err := Read(context.Background(), strings.NewReader(body))
		assert.Error(t, err, name)
	}
}

func TestSourceFetchPlans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.csv")
	require.NoError(t, os.WriteFile(path, []byte(population), 0o644))

	src := Source{Path: path}
	assert.Equal(t, "csv", src.Name())
	plans, err := src.FetchPlans(context.Background())
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	_, err = Source{Path: filepath.Join(t.TempDir(), "missing.csv")}.FetchPlans(context.Background())
	assert.Error(t, err)
}
