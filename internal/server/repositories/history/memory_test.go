package history

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Insert(ctx, &models.HistoryRecord{
			ID: id, UserID: "u1", Tool: common.ToolProtect, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, r.Insert(ctx, &models.HistoryRecord{ID: "d", UserID: "u2", StorageKey: "k", CreatedAt: base}))

	got, err := r.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	rec, err := r.GetByID(ctx, "d")
	require.NoError(t, err)
	assert.True(t, rec.Archived)

	_, err = r.GetByID(ctx, "zzz")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	empty, err := r.ListByUser(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryRepository_Usage(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	d1 := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	require.NoError(t, r.IncrementUsage(ctx, d1, "protect"))
	require.NoError(t, r.IncrementUsage(ctx, d2, "unlock"))
	require.NoError(t, r.IncrementUsage(ctx, d2, "protect"))
	require.NoError(t, r.IncrementUsage(ctx, d2.Add(time.Hour), "protect"))

	got, err := r.ListUsage(ctx, d2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "protect", got[0].Tool)
	assert.Equal(t, int64(2), got[0].Count)
	assert.Equal(t, "unlock", got[1].Tool)

	all, err := r.ListUsage(ctx, d1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
