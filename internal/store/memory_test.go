package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planscore/internal/model"
)

func TestMemoryRuns(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for i := 0; i < 5; i++ {
		rec, err := m.SaveRun(ctx, model.RunRecord{TenantID: "t1", PersonID: fmt.Sprintf("p%d", i%2)})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
		ids = append(ids, rec.ID)
	}
	_, err := m.SaveRun(ctx, model.RunRecord{TenantID: "t2", PersonID: "p0"})
	require.NoError(t, err)

	got, err := m.GetRun(ctx, "t1", ids[2])
	require.NoError(t, err)
	assert.Equal(t, "p0", got.PersonID)

	_, err = m.GetRun(ctx, "t2", ids[2])
	assert.ErrorIs(t, err, ErrNotFound)

	page, next, err := m.ListRuns(ctx, "t1", "", "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], next)

	page, next, err = m.ListRuns(ctx, "t1", "", next, 10)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.Empty(t, next)

	page, _, err = m.ListRuns(ctx, "t1", "p1", "", 10)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestMemoryScoringConfig(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	cfg, err := m.GetScoringConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, m.SaveScoringConfig(ctx, "t1", map[string]any{"performing": 6}))
	cfg, err = m.GetScoringConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg["performing"])
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultLimit, clampLimit(0))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxLimit, clampLimit(10_000))
}
