package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"epochcap/internal/capture"
	"epochcap/internal/config"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one journaled batch run.
type Run struct {
	ID         string
	Folder     string
	Status     string
	FileCount  int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration returns the run length, or zero while it is still open.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// File is the journaled outcome of one recording within a run.
type File struct {
	Position  int
	Name      string
	OutputDir string
	Epochs    int
	Exported  int
	Fallbacks int
	Error     string
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ capture.Recorder = (*Store)(nil)

// OpenConfig opens the journal at cfg.Journal.Path. It returns nil without
// error when the journal is disabled.
func OpenConfig(cfg *config.Config) (*Store, error) {
	if cfg == nil || !cfg.Journal.Enabled {
		return nil, nil
	}
	return Open(cfg.Journal.Path)
}

// Open initializes or connects to the journal database and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run in the Processing state.
func (s *Store) StartRun(ctx context.Context, runID, folder string, files []string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, folder, status, file_count, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, folder, string(capture.StatusProcessing), len(files), formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordFile upserts the outcome of the file at index.
func (s *Store) RecordFile(ctx context.Context, runID string, index int, outcome capture.FileOutcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_files (run_id, position, name, output_dir, epochs, exported, fallbacks, error_message, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, position) DO UPDATE SET
            name = excluded.name,
            output_dir = excluded.output_dir,
            epochs = excluded.epochs,
            exported = excluded.exported,
            fallbacks = excluded.fallbacks,
            error_message = excluded.error_message,
            recorded_at = excluded.recorded_at`,
		runID, index, outcome.Name, nullableString(outcome.Output),
		outcome.Epochs, outcome.Exported, outcome.Fallbacks,
		nullableString(errorText(outcome.Err)), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record file %s: %w", outcome.Name, err)
	}
	return nil
}

// FinishRun stores the terminal status. Runs that failed before StartRun
// (enumeration errors) are inserted here.
func (s *Store) FinishRun(ctx context.Context, result capture.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, folder, status, file_count, error_message, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            error_message = excluded.error_message,
            finished_at = excluded.finished_at`,
		result.RunID, result.Folder, string(result.Status), len(result.Files),
		nullableString(errorText(result.Err)), formatTime(result.StartedAt), formatTime(result.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, folder, status, file_count, error_message, started_at, finished_at
              FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run fetches one run by id.
func (s *Store) Run(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, folder, status, file_count, error_message, started_at, finished_at FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, err
}

// Files returns the per-file outcomes of a run in processing order.
func (s *Store) Files(ctx context.Context, runID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name, output_dir, epochs, exported, fallbacks, error_message
         FROM run_files WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var (
			f         File
			outputDir sql.NullString
			errText   sql.NullString
		)
		if err := rows.Scan(&f.Position, &f.Name, &outputDir, &f.Epochs, &f.Exported, &f.Fallbacks, &errText); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		f.OutputDir = outputDir.String
		f.Error = errText.String
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		errText  sql.NullString
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Folder, &run.Status, &run.FileCount, &errText, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Error = errText.String
	run.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		run.FinishedAt = &t
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
