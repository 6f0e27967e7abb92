package grading

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/qpixel/internal/domain"
	testingpkg "github.com/aristath/qpixel/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "grading")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), testLogger())
}

func TestRepository_CreateAndCompleteRun(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	started := time.Unix(1700000000, 0)
	require.NoError(t, repo.CreateRun(ctx, Run{
		ID:        "run-1",
		Source:    "dir:/data/digits",
		Strategy:  "cell",
		TieBreak:  "dominant",
		Shots:     1024,
		Items:     2,
		StartedAt: started,
	}))

	run, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)
	assert.Equal(t, started.Unix(), run.StartedAt.Unix())
	assert.Nil(t, run.FinishedAt)

	seq := domain.GateSequence{
		Qubits:   3,
		Strategy: "cell",
		Gates: []domain.Gate{
			{Kind: domain.GateSuperposition, Targets: []int{0}},
			{Kind: domain.GateControlledRotation, Controls: []int{0, 1}, Targets: []int{2}, Angle: 0.75},
		},
	}
	report := Aggregate([]ScoreRecord{
		{Index: 0, ID: "a", MSE: 0.01, TwoQubitGates: 4, Operations: 9, Qubits: 3,
			Reconstruction: domain.Image{{1, 2}, {3, 4}}, Sequence: seq},
		{Index: 1, ID: "b", MSE: 0.03, TwoQubitGates: 6, Operations: 11, Qubits: 3,
			Reconstruction: domain.Image{{0, 0}, {0, 255}}, Sequence: seq},
	})
	require.NoError(t, repo.CompleteRun(ctx, "run-1", report))

	run, err = repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, run.Status)
	assert.InDelta(t, 0.98, run.Fidelity, 1e-12)
	assert.InDelta(t, 5.0, run.AverageTwoQubitGates, 1e-12)
	assert.InDelta(t, report.Score, run.Score, 1e-12)
	assert.NotNil(t, run.FinishedAt)

	items, err := repo.GetItems(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, domain.Image{{1, 2}, {3, 4}}, items[0].Reconstruction)
	assert.Equal(t, seq, items[1].Sequence)
	assert.Equal(t, 6, items[1].TwoQubitGates)
}

func TestRepository_FailRun(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateRun(ctx, Run{ID: "run-2", Strategy: "uniform", StartedAt: time.Now()}))
	require.NoError(t, repo.FailRun(ctx, "run-2", "item 3 (x) failed to execute: boom"))

	run, err := repo.GetRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
	assert.Contains(t, run.Error, "boom")

	items, err := repo.GetItems(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, repo.FailRun(ctx, "missing", "x"), ErrRunNotFound)
	assert.ErrorIs(t, repo.CompleteRun(ctx, "missing", &Report{}), ErrRunNotFound)
}

func TestRepository_ListRunsNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, repo.CreateRun(ctx, Run{
			ID:        id,
			Strategy:  "cell",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
}
