package auditstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(context.Background(), filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(runID, reference string, startedAt time.Time) Run {
	return Run{
		RunID:             runID,
		PlanningReference: reference,
		InputHash:         "hash-" + runID,
		Status:            "OPTIMAL",
		HardViolations:    0,
		SoftPenalty:       1.5,
		UnassignedSlots:   0,
		TotalSlots:        10,
		StartedAt:         startedAt,
		EndedAt:           startedAt.Add(2 * time.Second),
		DurationSeconds:   2,
		SolverVersion:     "highs",
		OutputPath:        "/tmp/out.json",
		Warnings:          []string{"demand item D1 has zero headcount"},
	}
}

func TestRecordAndLastForReference_RoundTrips(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", "REF-A", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.Record(ctx, run))

	got, err := store.LastForReference(ctx, "REF-A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.InputHash, got.InputHash)
	assert.Equal(t, run.Warnings, got.Warnings)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
}

func TestLastForReference_ReturnsNilWhenNoneRecorded(t *testing.T) {
	store := openTestStore(t)

	got, err := store.LastForReference(context.Background(), "REF-UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLastForReference_PicksMostRecentStartTime(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := sampleRun("run-1", "REF-A", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	newer := sampleRun("run-2", "REF-A", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.Record(ctx, older))
	require.NoError(t, store.Record(ctx, newer))

	got, err := store.LastForReference(ctx, "REF-A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-2", got.RunID)
}

func TestHistory_ReturnsNewestFirstBoundedByLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, runID := range []string{"run-1", "run-2", "run-3"} {
		started := time.Date(2026, 3, 1+i, 9, 0, 0, 0, time.UTC)
		require.NoError(t, store.Record(ctx, sampleRun(runID, "REF-A", started)))
	}

	history, err := store.History(ctx, "REF-A", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-3", history[0].RunID)
	assert.Equal(t, "run-2", history[1].RunID)
}

func TestHistory_DoesNotLeakAcrossReferences(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, sampleRun("run-1", "REF-A", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))))
	require.NoError(t, store.Record(ctx, sampleRun("run-2", "REF-B", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))))

	history, err := store.History(ctx, "REF-A", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "run-1", history[0].RunID)
}
