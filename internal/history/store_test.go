package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(started time.Time) Run {
	coverage := 84.0
	return Run{
		ID:              uuid.NewString(),
		Branch:          "main",
		Commit:          "abc123",
		StartedAt:       started,
		FinishedAt:      started.Add(42 * time.Second),
		TotalSteps:      6,
		Passed:          5,
		Masked:          1,
		CoveragePercent: &coverage,
	}
}

func TestStoreRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := sampleRun(time.Now())
	require.NoError(t, store.Record(ctx, run))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "main", got.Branch)
	assert.Equal(t, "abc123", got.Commit)
	assert.Equal(t, 6, got.TotalSteps)
	assert.Equal(t, 1, got.Masked)
	require.NotNil(t, got.CoveragePercent)
	assert.Equal(t, 84.0, *got.CoveragePercent)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Millisecond)
}

func TestStoreRecentOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		run := sampleRun(base.Add(time.Duration(i) * time.Minute))
		ids = append(ids, run.ID)
		require.NoError(t, store.Record(ctx, run))
	}

	runs, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[4], runs[0].ID, "newest run first")
	assert.Equal(t, ids[2], runs[2].ID)
}

func TestStoreNullCoverage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := sampleRun(time.Now())
	run.CoveragePercent = nil
	require.NoError(t, store.Record(ctx, run))

	runs, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].CoveragePercent)
}

func TestStoreDuplicateRunID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := sampleRun(time.Now())
	require.NoError(t, store.Record(ctx, run))
	assert.Error(t, store.Record(ctx, run), "run ids are unique")
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
