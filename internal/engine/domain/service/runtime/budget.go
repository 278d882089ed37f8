package runtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
)

// Budget is the single authority for "may the tree keep spending?".
//
// One Budget is created per top-level completion and shared by reference
// across every recursive descendant; sibling sub-calls dispatched in
// parallel charge it concurrently, so every operation uses
// compare-and-increment semantics, never read-then-write.
//
// Token accounting allows bounded overshoot: the call already in flight
// may finish past the limit, but Admit refuses to start a new call once
// the budget is exceeded.
type Budget struct {
	tokenBudget        int64
	maxDepth           int
	maxSubCallsPerTurn int32
	deadline           time.Time

	tokensUsed atomic.Int64
	exhausted  atomic.Bool

	turnMu     sync.Mutex
	turnCounts map[string]*atomic.Int32
}

// NewBudget creates the shared budget for one completion tree.
func NewBudget(tokenBudget int64, maxDepth int, maxSubCallsPerTurn int, timeout time.Duration) *Budget {
	return &Budget{
		tokenBudget:        tokenBudget,
		maxDepth:           maxDepth,
		maxSubCallsPerTurn: int32(maxSubCallsPerTurn),
		deadline:           time.Now().Add(timeout),
		turnCounts:         make(map[string]*atomic.Int32),
	}
}

// ChargeTokens atomically adds n to the running total and reports whether
// the budget is still within limits. Exceeding the limit flips the
// exhausted flag observed at the next decision point; it never cancels the
// charge itself.
func (b *Budget) ChargeTokens(n int64) bool {
	used := b.tokensUsed.Add(n)
	if used > b.tokenBudget {
		b.exhausted.Store(true)
		return false
	}
	return true
}

// TokensUsed returns the tree-wide total charged so far.
func (b *Budget) TokensUsed() int64 {
	return b.tokensUsed.Load()
}

// Exhausted reports whether the token budget has been crossed.
func (b *Budget) Exhausted() bool {
	return b.exhausted.Load()
}

// TimeRemaining is derived from the absolute deadline; zero or negative
// means expired.
func (b *Budget) TimeRemaining() time.Duration {
	return time.Until(b.deadline)
}

// CanDescend reports whether a node at the given depth may exist.
func (b *Budget) CanDescend(depth int) bool {
	return depth <= b.maxDepth
}

// ReserveSubCall increments the per-turn dispatch counter and returns
// false once the turn's quota is reached. Each turn gets a fresh counter;
// ReleaseTurn drops it when the turn completes.
func (b *Budget) ReserveSubCall(turnID string) bool {
	b.turnMu.Lock()
	c, ok := b.turnCounts[turnID]
	if !ok {
		c = new(atomic.Int32)
		b.turnCounts[turnID] = c
	}
	b.turnMu.Unlock()

	if c.Add(1) > b.maxSubCallsPerTurn {
		c.Add(-1)
		return false
	}
	return true
}

// ReleaseTurn discards the dispatch counter of a finished turn.
func (b *Budget) ReleaseTurn(turnID string) {
	b.turnMu.Lock()
	delete(b.turnCounts, turnID)
	b.turnMu.Unlock()
}

// Admit decides whether a new call node at the given depth may start.
// When several stop conditions hold at once the precedence is
// deterministic: depth, then deadline, then tokens.
func (b *Budget) Admit(depth int) error {
	if !b.CanDescend(depth) {
		return errno.ErrDepthExceeded
	}
	if b.TimeRemaining() <= 0 {
		return errno.ErrDeadlineExpired
	}
	if b.Exhausted() {
		return errno.ErrBudgetExhausted
	}
	return nil
}
