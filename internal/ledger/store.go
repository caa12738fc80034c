package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lspws/internal/outcome"
)

// DefaultPath is the ledger location below the build directory.
const DefaultPath = "lsp-ledger.db"

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists runs.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the ledger at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := s.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			task TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			modules INTEGER DEFAULT 0,
			libraries INTEGER DEFAULT 0,
			degraded INTEGER DEFAULT 0,
			kotlin_version TEXT,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_task ON runs(task);

		CREATE TABLE IF NOT EXISTS degradations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			stage TEXT NOT NULL,
			subject TEXT NOT NULL,
			reason TEXT NOT NULL,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_degradations_run ON degradations(run_id);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Record stores a finished run and its degradations.
func (s *Store) Record(run *Run) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs (id, task, status, started_at, finished_at, modules, libraries, degraded, kotlin_version, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Task,
		run.Status,
		run.StartedAt.UTC().Format(timeFormat),
		nullTime(run.FinishedAt),
		run.Modules,
		run.Libraries,
		run.Degraded,
		nullString(run.KotlinVersion),
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for _, d := range run.Degradations {
		var errText string
		if d.Err != nil {
			errText = d.Err.Error()
		}
		if _, err := tx.Exec(`
			INSERT INTO degradations (run_id, stage, subject, reason, error) VALUES (?, ?, ?, ?, ?)
		`, run.ID, string(d.Stage), d.Subject, d.Reason, nullString(errText)); err != nil {
			return fmt.Errorf("failed to record degradation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.Debug("Recorded run", "runId", run.ID, "task", run.Task, "status", run.Status)
	return nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]*Run, error) {
	query := `
		SELECT id, task, status, started_at, finished_at, modules, libraries, degraded, kotlin_version, error
		FROM runs ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns a run with its degradations.
func (s *Store) Get(id string) (*Run, error) {
	row := s.conn.QueryRow(`
		SELECT id, task, status, started_at, finished_at, modules, libraries, degraded, kotlin_version, error
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(`
		SELECT stage, subject, reason, error FROM degradations WHERE run_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load degradations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d outcome.Degradation
		var stage string
		var errText sql.NullString
		if err := rows.Scan(&stage, &d.Subject, &d.Reason, &errText); err != nil {
			return nil, err
		}
		d.Stage = outcome.Stage(stage)
		if errText.Valid {
			d.Err = fmt.Errorf("%s", errText.String)
		}
		run.Degradations = append(run.Degradations, d)
	}
	return run, rows.Err()
}

// Prune deletes all but the newest keep runs.
func (s *Store) Prune(keep int) (int64, error) {
	result, err := s.conn.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt, kotlinVersion, errText sql.NullString
	if err := row.Scan(&run.ID, &run.Task, &run.Status, &startedAt, &finishedAt,
		&run.Modules, &run.Libraries, &run.Degraded, &kotlinVersion, &errText); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeFormat, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	run.StartedAt = t
	if finishedAt.Valid {
		if t, err := time.Parse(timeFormat, finishedAt.String); err == nil {
			run.FinishedAt = &t
		}
	}
	run.KotlinVersion = kotlinVersion.String
	run.Error = errText.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}
