package boltdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/pkg/utils/json"
)

// TrajectoryStore is a BoltDB-backed append-only trajectory sink.
//
// Nodes are keyed "<trajectory_id>/<seq>" with a bucket-wide sequence so
// a prefix scan returns them in append order; the trajectories bucket
// carries one summary per tree, updated on every append.
type TrajectoryStore struct {
	db *bolt.DB
}

var _ repo.TrajectorySink = (*TrajectoryStore)(nil)

// NewTrajectoryStore creates a new TrajectoryStore.
func NewTrajectoryStore(db *DB) *TrajectoryStore {
	return &TrajectoryStore{db: db.Bolt()}
}

func nodeKey(trajectoryID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s/%016d", trajectoryID, seq))
}

func (s *TrajectoryStore) Append(ctx context.Context, node *entity.CallNode) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		nodes := tx.Bucket(bucketNodes)
		seq, err := nodes.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		data, err := json.Marshal(node)
		if err != nil {
			return fmt.Errorf("failed to marshal node: %w", err)
		}
		if err := nodes.Put(nodeKey(node.TrajectoryID, seq), data); err != nil {
			return err
		}
		return s.updateSummary(tx, node)
	})
}

func (s *TrajectoryStore) updateSummary(tx *bolt.Tx, node *entity.CallNode) error {
	b := tx.Bucket(bucketTrajectories)
	summary := &repo.TrajectorySummary{
		TrajectoryID: node.TrajectoryID,
		StartedAt:    node.CreatedAt,
	}
	if data := b.Get([]byte(node.TrajectoryID)); data != nil {
		if err := json.Unmarshal(data, summary); err != nil {
			return fmt.Errorf("failed to unmarshal summary: %w", err)
		}
	} else {
		summary.RootPrompt = node.Prompt
	}
	summary.TotalCalls++
	summary.TotalTokens += node.TotalTokens()

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return b.Put([]byte(node.TrajectoryID), data)
}

func (s *TrajectoryStore) ListRecent(ctx context.Context, n int) ([]*repo.TrajectorySummary, error) {
	var summaries []*repo.TrajectorySummary
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTrajectories)
		return b.ForEach(func(k, v []byte) error {
			var sum repo.TrajectorySummary
			if err := json.Unmarshal(v, &sum); err != nil {
				return fmt.Errorf("failed to unmarshal summary: %w", err)
			}
			summaries = append(summaries, &sum)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trajectories: %w", err)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	if n > 0 && len(summaries) > n {
		summaries = summaries[:n]
	}
	return summaries, nil
}

func (s *TrajectoryStore) Load(ctx context.Context, trajectoryID string) ([]*entity.CallNode, error) {
	var nodes []*entity.CallNode
	prefix := []byte(trajectoryID + "/")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketNodes).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var node entity.CallNode
			if err := json.Unmarshal(v, &node); err != nil {
				return fmt.Errorf("failed to unmarshal node: %w", err)
			}
			nodes = append(nodes, &node)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load trajectory %q: %w", trajectoryID, err)
	}
	return nodes, nil
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
