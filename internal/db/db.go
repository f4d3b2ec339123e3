// Package db opens the session database and owns its schema migrations.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite session database.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the sqlite database at path and applies
// the pragmas the pipeline relies on. Schema creation is handled by
// MigrateUp or, for in-memory test databases, EnsureSchema.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// WAL keeps tick-loop writes from blocking monitor reads; busy_timeout
	// covers the remaining contention.
	if _, err := sqlDB.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	return &DB{sqlDB}, nil
}

// EnsureSchema creates the session tables directly, bypassing the
// migration machinery. Intended for in-memory databases in tests; binaries
// should run MigrateUp instead.
func (db *DB) EnsureSchema() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id    TEXT PRIMARY KEY,
			dictionary    TEXT NOT NULL DEFAULT '',
			frame_width   INTEGER NOT NULL DEFAULT 0,
			frame_height  INTEGER NOT NULL DEFAULT 0,
			started_at    BIGINT NOT NULL,
			finished_at   BIGINT,
			summary_json  TEXT
		);
		CREATE TABLE IF NOT EXISTS tick_stats (
			session_id    TEXT NOT NULL,
			tick          BIGINT NOT NULL,
			marker_count  INTEGER NOT NULL,
			anchor_count  INTEGER NOT NULL,
			pose_count    INTEGER NOT NULL,
			recorded_at   BIGINT NOT NULL,
			PRIMARY KEY (session_id, tick),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		);
		CREATE INDEX IF NOT EXISTS idx_tick_stats_session ON tick_stats(session_id, tick);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
