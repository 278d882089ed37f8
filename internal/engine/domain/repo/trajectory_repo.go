package repo

import (
	"context"
	"time"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
)

// TrajectorySummary is one row of a recency listing: enough to identify a
// trajectory without loading its nodes.
type TrajectorySummary struct {
	TrajectoryID string    `json:"trajectory_id"`
	RootPrompt   string    `json:"root_prompt"`
	TotalCalls   int       `json:"total_calls"`
	TotalTokens  int64     `json:"total_tokens"`
	StartedAt    time.Time `json:"started_at"`
}

// TrajectorySink is the append-only persistence interface for call nodes.
//
// The orchestrator treats this purely as a sink: it appends each node once
// and never mutates it afterward. Retrieval exists for the log-inspection
// surface, not for the engine.
type TrajectorySink interface {
	// Append stores one immutable call node.
	Append(ctx context.Context, node *entity.CallNode) error
	// ListRecent returns summaries of the n most recently started
	// trajectories, newest first.
	ListRecent(ctx context.Context, n int) ([]*TrajectorySummary, error)
	// Load returns all nodes of one trajectory in append order.
	Load(ctx context.Context, trajectoryID string) ([]*entity.CallNode, error)
}
