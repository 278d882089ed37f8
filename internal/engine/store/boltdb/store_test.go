package boltdb

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
	db, err := Open(filepath.Join(t.TempDir(), "arbor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func node(trajectoryID, callID string, depth int, tokens int64, at time.Time) *entity.CallNode {
	return &entity.CallNode{
		CallID:       callID,
		TrajectoryID: trajectoryID,
		Depth:        depth,
		Prompt:       "prompt for " + callID,
		InputTokens:  tokens,
		CreatedAt:    at,
	}
}

func TestTrajectoryStoreAppendAndLoad(t *testing.T) {
	store := NewTrajectoryStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, store.Append(ctx, node("t1", id, i, 10, now)))
	}

	nodes, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	// Append order survives the roundtrip.
	require.Equal(t, "c1", nodes[0].CallID)
	require.Equal(t, "c3", nodes[2].CallID)
	require.Equal(t, 2, nodes[2].Depth)
}

func TestTrajectoryStoreIsolatesTrees(t *testing.T) {
	store := NewTrajectoryStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Append(ctx, node("t1", "a", 0, 5, now)))
	require.NoError(t, store.Append(ctx, node("t2", "b", 0, 7, now)))

	nodes, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, "a", nodes[0].CallID)
}

func TestTrajectoryStoreListRecent(t *testing.T) {
	store := NewTrajectoryStore(openTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.Append(ctx, node("old", "a", 0, 5, base)))
	require.NoError(t, store.Append(ctx, node("new", "b", 0, 7, base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, node("new", "c", 1, 3, base.Add(2*time.Minute))))

	summaries, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	require.Equal(t, "new", summaries[0].TrajectoryID)
	require.Equal(t, 2, summaries[0].TotalCalls)
	require.EqualValues(t, 10, summaries[0].TotalTokens)
	require.Equal(t, "prompt for b", summaries[0].RootPrompt)

	limited, err := store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestRunStoreRoundtrip(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	ctx := context.Background()

	run := &entity.Run{
		ID:        "r1",
		Task:      "do the thing",
		Status:    entity.RunStatusCreated,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Create(ctx, run))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "do the thing", got.Task)

	run.Status = entity.RunStatusCompleted
	run.Answer = "done"
	require.NoError(t, store.Update(ctx, run))

	got, err = store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, entity.RunStatusCompleted, got.Status)
	require.Equal(t, "done", got.Answer)
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

	runs, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "r2", runs[0].ID)
}
