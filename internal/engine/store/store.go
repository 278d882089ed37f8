// Package store selects a persistence driver for trajectories and runs.
package store

import (
	"fmt"
	"io"

	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/internal/engine/store/boltdb"
	"github.com/arborworks/arbor/internal/engine/store/inmemory"
	"github.com/arborworks/arbor/internal/engine/store/sqlite"
	"github.com/arborworks/arbor/internal/pkg/options"
)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Open builds the trajectory sink and run repository for the configured
// driver. The returned closer releases the underlying database, if any.
func Open(opts *options.StoreOptions) (repo.TrajectorySink, repo.RunRepository, io.Closer, error) {
	switch opts.Driver {
	case "boltdb":
		db, err := boltdb.Open(opts.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return boltdb.NewTrajectoryStore(db), boltdb.NewRunStore(db), db, nil
	case "sqlite":
		db, err := sqlite.Open(opts.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewTrajectoryStore(db), sqlite.NewRunStore(db), db, nil
	case "inmemory":
		return inmemory.NewTrajectoryStore(), inmemory.NewRunStore(), noopCloser{}, nil
	default:
		return nil, nil, nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}
