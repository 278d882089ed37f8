package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/pkg/utils/json"
)

// TrajectoryStore is a SQLite-backed append-only trajectory sink.
type TrajectoryStore struct {
	db *sql.DB
}

var _ repo.TrajectorySink = (*TrajectoryStore)(nil)

// NewTrajectoryStore creates a new TrajectoryStore.
func NewTrajectoryStore(db *DB) *TrajectoryStore {
	return &TrajectoryStore{db: db.SQL()}
}

func (s *TrajectoryStore) Append(ctx context.Context, node *entity.CallNode) error {
	data, err := json.MarshalString(node)
	if err != nil {
		return fmt.Errorf("failed to marshal node: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+TableNodes+` (trajectory_id, call_id, tokens, data) VALUES (?, ?, ?, ?)`,
		node.TrajectoryID, node.CallID, node.TotalTokens(), data)
	if err != nil {
		return fmt.Errorf("failed to insert node: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+TableTrajectories+` (trajectory_id, root_prompt, total_calls, total_tokens, started_at)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(trajectory_id) DO UPDATE SET
			total_calls = total_calls + 1,
			total_tokens = total_tokens + excluded.total_tokens`,
		node.TrajectoryID, node.Prompt, node.TotalTokens(), node.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return tx.Commit()
}

func (s *TrajectoryStore) ListRecent(ctx context.Context, n int) ([]*repo.TrajectorySummary, error) {
	if n <= 0 {
		n = -1 // no LIMIT
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT trajectory_id, root_prompt, total_calls, total_tokens, started_at
		 FROM `+TableTrajectories+` ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list trajectories: %w", err)
	}
	defer rows.Close()

	var summaries []*repo.TrajectorySummary
	for rows.Next() {
		var sum repo.TrajectorySummary
		var startedAt int64
		if err := rows.Scan(&sum.TrajectoryID, &sum.RootPrompt, &sum.TotalCalls, &sum.TotalTokens, &startedAt); err != nil {
			return nil, err
		}
		sum.StartedAt = time.UnixMilli(startedAt)
		summaries = append(summaries, &sum)
	}
	return summaries, rows.Err()
}

func (s *TrajectoryStore) Load(ctx context.Context, trajectoryID string) ([]*entity.CallNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM `+TableNodes+` WHERE trajectory_id = ? ORDER BY seq`, trajectoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trajectory %q: %w", trajectoryID, err)
	}
	defer rows.Close()

	var nodes []*entity.CallNode
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var node entity.CallNode
		if err := json.UnmarshalString(data, &node); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node: %w", err)
		}
		nodes = append(nodes, &node)
	}
	return nodes, rows.Err()
}
