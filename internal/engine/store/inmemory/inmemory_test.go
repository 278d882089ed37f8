package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
)

func TestTrajectoryStoreRoundtrip(t *testing.T) {
	store := NewTrajectoryStore()
	ctx := context.Background()

	now := time.Now()
	for _, id := range []string{"c1", "c2"} {
		require.NoError(t, store.Append(ctx, &entity.CallNode{
			CallID:       id,
			TrajectoryID: "t1",
			Prompt:       "p",
			InputTokens:  5,
			CreatedAt:    now,
		}))
	}

	nodes, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	summaries, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 2, summaries[0].TotalCalls)
	require.EqualValues(t, 10, summaries[0].TotalTokens)
}

func TestTrajectoryStoreReturnsCopies(t *testing.T) {
	store := NewTrajectoryStore()
	ctx := context.Background()

	src := &entity.CallNode{CallID: "c1", TrajectoryID: "t1", Response: "original"}
	require.NoError(t, store.Append(ctx, src))

	// Mutating what came back must not corrupt the store.
	nodes, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	nodes[0].Response = "mutated"

	again, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "original", again[0].Response)
}

func TestTrajectoryStoreConcurrentAppends(t *testing.T) {
	store := NewTrajectoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(ctx, &entity.CallNode{
				CallID:       "c",
				TrajectoryID: "t1",
				InputTokens:  1,
				CreatedAt:    time.Now(),
			})
		}()
	}
	wg.Wait()

	nodes, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, nodes, 20)
}

func TestRunStoreRoundtrip(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &entity.Run{ID: "r1", Status: entity.RunStatusCreated, CreatedAt: time.Now()}))

	run, err := store.Get(ctx, "r1")
	require.NoError(t, err)

	run.Status = entity.RunStatusCompleted
	require.NoError(t, store.Update(ctx, run))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, entity.RunStatusCompleted, got.Status)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, errno.ErrRunNotFound)
}
