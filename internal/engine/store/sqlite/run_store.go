package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/pkg/utils/json"
)

// RunStore is a SQLite-backed store for agent runs.
type RunStore struct {
	db *sql.DB
}

var _ repo.RunRepository = (*RunStore)(nil)

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.SQL()}
}

func (s *RunStore) Create(ctx context.Context, run *entity.Run) error {
	data, err := json.MarshalString(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+TableRuns+` (id, created_at, data) VALUES (?, ?, ?)`,
		run.ID, run.CreatedAt.UnixMilli(), data)
	return err
}

func (s *RunStore) Get(ctx context.Context, id string) (*entity.Run, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM `+TableRuns+` WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get run %q: %w", id, errno.ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	var run entity.Run
	if err := json.UnmarshalString(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

func (s *RunStore) Update(ctx context.Context, run *entity.Run) error {
	data, err := json.MarshalString(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+TableRuns+` SET data = ? WHERE id = ?`, data, run.ID)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errno.ErrRunNotFound
	}
	return nil
}

func (s *RunStore) ListRecent(ctx context.Context, n int) ([]*entity.Run, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM `+TableRuns+` ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*entity.Run
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var run entity.Run
		if err := json.UnmarshalString(data, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
