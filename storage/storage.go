// Package storage opens the shared SQLite database and owns its schema.
// Every component store receives the returned handle explicitly; nothing
// in this module reaches for a global connection.
package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'blocked',
	worker_type        TEXT NOT NULL DEFAULT 'any',
	assigned_spirit_id TEXT,
	output_ref         TEXT,
	retry_count        INTEGER NOT NULL DEFAULT 0,
	failure_context    TEXT,
	parent_task_id     TEXT,
	group_id           TEXT,
	priority           INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL,
	deleted_at         DATETIME,
	deleted_by         TEXT,
	delete_reason      TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_group ON tasks(group_id);

CREATE TABLE IF NOT EXISTS dependencies (
	task_id       TEXT NOT NULL,
	depends_on_id TEXT NOT NULL,
	dep_type      TEXT NOT NULL DEFAULT 'blocks',
	created_at    DATETIME NOT NULL,
	PRIMARY KEY (task_id, depends_on_id)
);

CREATE INDEX IF NOT EXISTS idx_dep_depends_on ON dependencies(depends_on_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    TEXT NOT NULL,
	operation  TEXT NOT NULL,
	field      TEXT,
	old_value  TEXT,
	new_value  TEXT,
	actor      TEXT NOT NULL DEFAULT 'unknown',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_task ON audit_log(task_id);

CREATE TABLE IF NOT EXISTS ledger (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	body       TEXT NOT NULL,
	author     TEXT NOT NULL DEFAULT 'unknown',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_task ON ledger(task_id);
`

// Open opens (or creates) the SQLite database at dbPath and ensures the
// schema exists. The caller is responsible for calling Close on the handle.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}
