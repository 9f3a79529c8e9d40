package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, outcome string) float64 {
	var m dto.Metric
	require.NoError(t, RescheduleRuns.WithLabelValues(outcome).Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveRun(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	before := counterValue(t, "converged")
	ObserveRun("converged", 120, 6, 3.5)
	assert.Equal(t, before+1, counterValue(t, "converged"))

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["reschedule_iterations"])
	assert.True(t, names["reschedule_score_gain"])
}
