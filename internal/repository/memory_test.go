package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictmaint/predictmaint/internal/domain"
)

func TestMemory_InsertAssignsIDsInOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, id := range []string{"m1", "m2", "m1"} {
		p := &domain.Prediction{MachineID: id, Features: domain.NewFeatures(70, 40), ModelVersion: domain.ModelVersion}
		require.NoError(t, m.InsertPrediction(ctx, p))
		assert.False(t, p.Timestamp.IsZero())
	}

	all, err := m.ListPredictions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, p := range all {
		assert.Equal(t, int64(i+1), p.ID)
	}

	m1, err := m.ListByMachine(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, m1, 2)
	assert.Equal(t, int64(1), m1[0].ID)
	assert.Equal(t, int64(3), m1[1].ID)

	none, err := m.ListByMachine(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.InsertPrediction(ctx, &domain.Prediction{MachineID: "m1"}))

	all, _ := m.ListPredictions(ctx)
	all[0].MachineID = "changed"

	again, _ := m.ListPredictions(ctx)
	assert.Equal(t, "m1", again[0].MachineID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, OpenConfig{Kind: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, closeFn())

	_, _, err = Open(ctx, OpenConfig{Kind: "sqlite"})
	assert.ErrorContains(t, err, `unknown store "sqlite"`)
}
