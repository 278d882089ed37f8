// Package sqlite persists trajectories and runs in a SQLite database,
// for deployments that want queryable history over a single file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const (
	TableNodes        = "trajectory_nodes"
	TableTrajectories = "trajectories"
	TableRuns         = "runs"
)

// DB wraps a SQLite handle and manages schema initialization.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + TableNodes + ` (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			trajectory_id TEXT NOT NULL,
			call_id TEXT NOT NULL,
			tokens INTEGER NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + TableTrajectories + ` (
			trajectory_id TEXT PRIMARY KEY,
			root_prompt TEXT NOT NULL,
			total_calls INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			started_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + TableRuns + ` (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_trajectory ON ` + TableNodes + `(trajectory_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trajectories_started_at ON ` + TableTrajectories + `(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON ` + TableRuns + `(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying SQLite handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.db
}
