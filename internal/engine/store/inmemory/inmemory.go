// Package inmemory provides map-backed stores for tests and ephemeral
// runs. Nothing survives process exit.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
)

// TrajectoryStore keeps trajectories in process memory.
type TrajectoryStore struct {
	mu        sync.RWMutex
	nodes     map[string][]*entity.CallNode
	summaries map[string]*repo.TrajectorySummary
}

var _ repo.TrajectorySink = (*TrajectoryStore)(nil)

func NewTrajectoryStore() *TrajectoryStore {
	return &TrajectoryStore{
		nodes:     make(map[string][]*entity.CallNode),
		summaries: make(map[string]*repo.TrajectorySummary),
	}
}

func (s *TrajectoryStore) Append(ctx context.Context, node *entity.CallNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *node
	s.nodes[node.TrajectoryID] = append(s.nodes[node.TrajectoryID], &cp)

	sum, ok := s.summaries[node.TrajectoryID]
	if !ok {
		sum = &repo.TrajectorySummary{
			TrajectoryID: node.TrajectoryID,
			RootPrompt:   node.Prompt,
			StartedAt:    node.CreatedAt,
		}
		s.summaries[node.TrajectoryID] = sum
	}
	sum.TotalCalls++
	sum.TotalTokens += node.TotalTokens()
	return nil
}

func (s *TrajectoryStore) ListRecent(ctx context.Context, n int) ([]*repo.TrajectorySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*repo.TrajectorySummary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		cp := *sum
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *TrajectoryStore) Load(ctx context.Context, trajectoryID string) ([]*entity.CallNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := s.nodes[trajectoryID]
	out := make([]*entity.CallNode, len(nodes))
	for i, node := range nodes {
		cp := *node
		out[i] = &cp
	}
	return out, nil
}

// RunStore keeps runs in process memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*entity.Run
}

var _ repo.RunRepository = (*RunStore)(nil)

func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*entity.Run)}
}

func (s *RunStore) Create(ctx context.Context, run *entity.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *RunStore) Get(ctx context.Context, id string) (*entity.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, errno.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *RunStore) Update(ctx context.Context, run *entity.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return errno.ErrRunNotFound
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *RunStore) ListRecent(ctx context.Context, n int) ([]*entity.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Run, 0, len(s.runs))
	for _, run := range s.runs {
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
