package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "arbor.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func node(trajectoryID, callID string, tokens int64, at time.Time) *entity.CallNode {
	return &entity.CallNode{
		CallID:       callID,
		TrajectoryID: trajectoryID,
		Prompt:       "prompt for " + callID,
		OutputTokens: tokens,
		CreatedAt:    at,
	}
}

func TestTrajectoryStoreAppendAndLoad(t *testing.T) {
	store := NewTrajectoryStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Append(ctx, node("t1", "c1", 10, now)))
	require.NoError(t, store.Append(ctx, node("t1", "c2", 20, now)))
	require.NoError(t, store.Append(ctx, node("t2", "x1", 5, now)))

	nodes, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, "c1", nodes[0].CallID)
	require.Equal(t, "c2", nodes[1].CallID)
}

func TestTrajectoryStoreSummaryAccumulates(t *testing.T) {
	store := NewTrajectoryStore(openTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.Append(ctx, node("t1", "c1", 10, base)))
	require.NoError(t, store.Append(ctx, node("t1", "c2", 20, base.Add(time.Second))))
	require.NoError(t, store.Append(ctx, node("t2", "x1", 5, base.Add(time.Minute))))

	summaries, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Newest tree first.
	require.Equal(t, "t2", summaries[0].TrajectoryID)
	require.Equal(t, "t1", summaries[1].TrajectoryID)
	require.Equal(t, 2, summaries[1].TotalCalls)
	require.EqualValues(t, 30, summaries[1].TotalTokens)
	require.Equal(t, "prompt for c1", summaries[1].RootPrompt)
}

func TestRunStoreRoundtrip(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	ctx := context.Background()

	run := &entity.Run{
		ID:        "r1",
		Task:      "migrate the data",
		Status:    entity.RunStatusInProgress,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Create(ctx, run))

	run.Status = entity.RunStatusFailed
	run.Error = &entity.RunError{Code: "backend", Message: "boom"}
	require.NoError(t, store.Update(ctx, run))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, entity.RunStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	require.Equal(t, "boom", got.Error.Message)
}

func TestRunStoreNotFound(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, errno.ErrRunNotFound)

	err = store.Update(ctx, &entity.Run{ID: "missing"})
	require.ErrorIs(t, err, errno.ErrRunNotFound)
}

func TestRunStoreListRecent(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.Create(ctx, &entity.Run{ID: "r1", CreatedAt: base}))
	require.NoError(t, store.Create(ctx, &entity.Run{ID: "r2", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.Create(ctx, &entity.Run{ID: "r3", CreatedAt: base.Add(2 * time.Minute)}))

	runs, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "r3", runs[0].ID)
	require.Equal(t, "r2", runs[1].ID)
}
