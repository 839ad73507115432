package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/schedsim/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Run CRUD ---

// CreateRun inserts run with its timeline and process stats in one transaction.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID, "ticks", len(run.Timeline))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, workload, policy, policy_name, ticks, idle_ticks, context_switches, completed, error, created_at, workload_source, max_ticks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Workload, run.Policy, run.PolicyName, run.Ticks, run.IdleTicks, run.ContextSwitches,
		boolToInt(run.Completed), run.Error, run.CreatedAt.Format(time.RFC3339Nano), run.Source, run.MaxTicks,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	tickStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_ticks (run_id, tick, pid, event, note) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tickStmt.Close()
	for _, rec := range run.Timeline {
		if _, err := tickStmt.ExecContext(ctx, run.ID, rec.Tick, rec.PID, string(rec.Event), rec.Note); err != nil {
			return fmt.Errorf("insert tick %d: %w", rec.Tick, err)
		}
	}

	procStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_processes (run_id, pid, name, arrival, lifespan, base_priority, start_tick, finish_tick, turnaround, response, ready_ticks, wait_ticks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer procStmt.Close()
	for _, p := range run.Processes {
		if _, err := procStmt.ExecContext(ctx, run.ID, p.PID, p.Name, p.Arrival, p.Lifespan, p.BasePriority,
			p.Start, p.Finish, p.Turnaround, p.Response, p.ReadyTicks, p.WaitTicks); err != nil {
			return fmt.Errorf("insert process %d: %w", p.PID, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, workload, policy, policy_name, ticks, idle_ticks, context_switches, completed, error, created_at, workload_source, max_ticks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var completed int
	var createdAt string
	if err := row.Scan(&run.ID, &run.Workload, &run.Policy, &run.PolicyName, &run.Ticks, &run.IdleTicks,
		&run.ContextSwitches, &completed, &run.Error, &createdAt, &run.Source, &run.MaxTicks); err != nil {
		return nil, err
	}
	run.Completed = completed != 0
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &run, nil
}

// GetRun returns the run with its timeline and process stats, or nil when
// no run has that id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if run.Timeline, err = s.timeline(ctx, id); err != nil {
		return nil, err
	}
	if run.Processes, err = s.processes(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) timeline(ctx context.Context, runID string) ([]model.TickRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, pid, event, note FROM run_ticks WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TickRecord
	for rows.Next() {
		var rec model.TickRecord
		var event string
		if err := rows.Scan(&rec.Tick, &rec.PID, &event, &rec.Note); err != nil {
			return nil, err
		}
		rec.Event = model.TickEvent(event)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) processes(ctx context.Context, runID string) ([]model.ProcessStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pid, name, arrival, lifespan, base_priority, start_tick, finish_tick, turnaround, response, ready_ticks, wait_ticks
		 FROM run_processes WHERE run_id = ? ORDER BY pid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProcessStats
	for rows.Next() {
		var p model.ProcessStats
		if err := rows.Scan(&p.PID, &p.Name, &p.Arrival, &p.Lifespan, &p.BasePriority, &p.Start, &p.Finish,
			&p.Turnaround, &p.Response, &p.ReadyTicks, &p.WaitTicks); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListRuns returns run summaries, newest first, without timelines. The
// second result is the total number of matching runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset, "policy", opts.Policy)
	opts.Clamp()

	where := ""
	var args []any
	if opts.Policy != "" {
		where = " WHERE policy = ?"
		args = append(args, opts.Policy)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

// DeleteRun removes a run with its ticks and process stats.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "runs", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// PRAGMA foreign_keys is per connection, so children are removed explicitly.
	for _, table := range []string{"run_ticks", "run_processes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NewNotFoundError("run", id)
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
