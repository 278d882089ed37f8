package boltdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/pkg/utils/json"
)

// RunStore is a BoltDB-backed store for agent runs.
type RunStore struct {
	db *bolt.DB
}

var _ repo.RunRepository = (*RunStore)(nil)

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.Bolt()}
}

func (s *RunStore) Create(ctx context.Context, run *entity.Run) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}
		return b.Put([]byte(run.ID), data)
	})
}

func (s *RunStore) Get(ctx context.Context, id string) (*entity.Run, error) {
	var run entity.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data := b.Get([]byte(id))
		if data == nil {
			return errno.ErrRunNotFound
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run %q: %w", id, err)
	}
	return &run, nil
}

func (s *RunStore) Update(ctx context.Context, run *entity.Run) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		if b.Get([]byte(run.ID)) == nil {
			return errno.ErrRunNotFound
		}
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}
		return b.Put([]byte(run.ID), data)
	})
}

func (s *RunStore) ListRecent(ctx context.Context, n int) ([]*entity.Run, error) {
	var runs []*entity.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		return b.ForEach(func(k, v []byte) error {
			var r entity.Run
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to unmarshal run: %w", err)
			}
			runs = append(runs, &r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if n > 0 && len(runs) > n {
		runs = runs[:n]
	}
	return runs, nil
}
