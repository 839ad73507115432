package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all schedsim tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id               TEXT PRIMARY KEY,
		workload         TEXT NOT NULL,
		policy           TEXT NOT NULL,
		policy_name      TEXT NOT NULL DEFAULT '',
		ticks            INTEGER NOT NULL,
		idle_ticks       INTEGER NOT NULL DEFAULT 0,
		context_switches INTEGER NOT NULL DEFAULT 0,
		completed        INTEGER NOT NULL DEFAULT 0,
		error            TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS run_ticks (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		tick   INTEGER NOT NULL,
		pid    INTEGER NOT NULL,
		event  TEXT NOT NULL,
		note   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, tick)
	)`,

	`CREATE TABLE IF NOT EXISTS run_processes (
		run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		pid           INTEGER NOT NULL,
		name          TEXT NOT NULL,
		arrival       INTEGER NOT NULL,
		lifespan      INTEGER NOT NULL,
		base_priority INTEGER NOT NULL,
		start_tick    INTEGER NOT NULL,
		finish_tick   INTEGER NOT NULL,
		turnaround    INTEGER NOT NULL,
		response      INTEGER NOT NULL,
		ready_ticks   INTEGER NOT NULL,
		wait_ticks    INTEGER NOT NULL,
		PRIMARY KEY (run_id, pid)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_policy ON runs(policy)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "runs",
		column:   "workload_source",
		alterSQL: "ALTER TABLE runs ADD COLUMN workload_source TEXT NOT NULL DEFAULT ''",
	},
	{
		table:    "runs",
		column:   "max_ticks",
		alterSQL: "ALTER TABLE runs ADD COLUMN max_ticks INTEGER NOT NULL DEFAULT 0",
	},
}

// migrate executes all schema DDL statements and alter migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}
	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
