package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"clipper/internal/config"
	"clipper/internal/services"
)

// Store persists batch runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open connects to the ledger at path, creating it when absent.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "history path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
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

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenFromConfig opens the ledger at cfg.Paths.HistoryPath.
func OpenFromConfig(cfg *config.Config) (*Store, error) {
	return Open(cfg.Paths.HistoryPath)
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run row and returns it.
func (s *Store) StartRun(ctx context.Context, batchPath string, dryRun bool) (*Run, error) {
	started := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (batch_path, dry_run, started_at) VALUES (?, ?, ?)`,
		batchPath, boolToInt(dryRun), started.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Run{ID: id, BatchPath: batchPath, DryRun: dryRun, StartedAt: started}, nil
}

// RecordEntry appends a line outcome to a run.
func (s *Store) RecordEntry(ctx context.Context, runID int64, entry Entry) error {
	if entry.Outcome == "" {
		return errors.New("history: entry outcome required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_entries (run_id, line, text, clip_id, outcome, error_message, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID,
		entry.Line,
		entry.Text,
		nullableString(entry.ClipID),
		string(entry.Outcome),
		nullableString(entry.Error),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run entry: %w", err)
	}
	return nil
}

// FinishRun stores the summary counters and the finish time.
func (s *Store) FinishRun(ctx context.Context, runID int64, summary Summary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, published = ?, failed = ? WHERE id = ?`,
		s.now().UTC().Format(time.RFC3339Nano), summary.Total, summary.Published, summary.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "history", "finish", fmt.Sprintf("run %d not found", runID), nil)
	}
	return nil
}

// ListRuns returns the newest runs first. limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by id.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "history", "get", fmt.Sprintf("run %d not found", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// Entries returns a run's line outcomes in line order.
func (s *Store) Entries(ctx context.Context, runID int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM run_entries WHERE run_id = ? ORDER BY line, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ClipEntries returns every recorded outcome for a clip, oldest first.
func (s *Store) ClipEntries(ctx context.Context, clipID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM run_entries WHERE clip_id = ? ORDER BY id`, clipID)
	if err != nil {
		return nil, fmt.Errorf("list clip entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
