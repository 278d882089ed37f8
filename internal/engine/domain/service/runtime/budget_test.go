package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
)

func TestBudgetChargeTokensBoundedOvershoot(t *testing.T) {
	b := NewBudget(100, 4, 12, time.Minute)

	require.True(t, b.ChargeTokens(60))
	require.False(t, b.Exhausted())

	// The in-flight call may finish past the limit; the charge lands but
	// the budget flips to exhausted.
	require.False(t, b.ChargeTokens(60))
	require.True(t, b.Exhausted())
	require.EqualValues(t, 120, b.TokensUsed())

	require.ErrorIs(t, b.Admit(0), errno.ErrBudgetExhausted)
}

func TestBudgetChargeTokensConcurrent(t *testing.T) {
	b := NewBudget(1_000_000, 4, 12, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.ChargeTokens(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 5000, b.TokensUsed())
	require.False(t, b.Exhausted())
}

func TestBudgetCanDescend(t *testing.T) {
	b := NewBudget(1000, 2, 12, time.Minute)

	require.True(t, b.CanDescend(0))
	require.True(t, b.CanDescend(2))
	require.False(t, b.CanDescend(3))
}

func TestBudgetReserveSubCallQuota(t *testing.T) {
	b := NewBudget(1000, 4, 3, time.Minute)

	require.True(t, b.ReserveSubCall("turn-1"))
	require.True(t, b.ReserveSubCall("turn-1"))
	require.True(t, b.ReserveSubCall("turn-1"))
	require.False(t, b.ReserveSubCall("turn-1"))

	// A different turn has its own counter.
	require.True(t, b.ReserveSubCall("turn-2"))

	// Releasing resets the turn entirely.
	b.ReleaseTurn("turn-1")
	require.True(t, b.ReserveSubCall("turn-1"))
}

func TestBudgetReserveSubCallConcurrent(t *testing.T) {
	const quota = 8
	b := NewBudget(1000, 4, quota, time.Minute)

	var wg sync.WaitGroup
	granted := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.ReserveSubCall("turn") {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	require.Len(t, granted, quota)
}

func TestBudgetAdmitPrecedence(t *testing.T) {
	// Expired deadline and exhausted tokens at once: depth wins, then
	// deadline, then tokens.
	b := NewBudget(10, 1, 12, -time.Second)
	b.ChargeTokens(100)

	require.ErrorIs(t, b.Admit(2), errno.ErrDepthExceeded)
	require.ErrorIs(t, b.Admit(1), errno.ErrDeadlineExpired)

	ok := NewBudget(10, 1, 12, time.Minute)
	ok.ChargeTokens(100)
	require.ErrorIs(t, ok.Admit(1), errno.ErrBudgetExhausted)
	require.NoError(t, NewBudget(10, 1, 12, time.Minute).Admit(0))
}
