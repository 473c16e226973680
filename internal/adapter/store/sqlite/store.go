package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/reviewgate/internal/store"
)

// Store implements the store.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- Stores metadata about each review run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		repository TEXT NOT NULL,
		pull_number INTEGER NOT NULL,
		ref TEXT NOT NULL,
		profile TEXT NOT NULL,
		engine_status TEXT NOT NULL,
		outcome TEXT NOT NULL,
		comment_count INTEGER NOT NULL DEFAULT 0,
		fallback_count INTEGER NOT NULL DEFAULT 0,
		approved INTEGER NOT NULL DEFAULT 0
	);

	-- Inline comments posted for each run
	CREATE TABLE IF NOT EXISTS comments (
		comment_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		file TEXT NOT NULL,
		position INTEGER NOT NULL,
		body TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	-- Security scan findings observed during each run
	CREATE TABLE IF NOT EXISTS findings (
		finding_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		category TEXT NOT NULL,
		confidence TEXT NOT NULL,
		excerpt TEXT,
		source_hint TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_comments_run ON comments(run_id);
	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_repo_pull ON runs(repository, pull_number);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun stores a new review run.
func (s *Store) CreateRun(ctx context.Context, run store.Run) error {
	query := `
		INSERT INTO runs (run_id, timestamp, repository, pull_number, ref, profile, engine_status, outcome, comment_count, fallback_count, approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.Timestamp.Unix(),
		run.Repository,
		run.PullNumber,
		run.Ref,
		run.Profile,
		run.EngineStatus,
		run.Outcome,
		run.CommentCount,
		run.FallbackCount,
		boolToInt(run.Approved),
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (store.Run, error) {
	query := `
		SELECT run_id, timestamp, repository, pull_number, ref, profile, engine_status, outcome, comment_count, fallback_count, approved
		FROM runs
		WHERE run_id = ?
	`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, runID))
	if err != nil {
		if err == sql.ErrNoRows {
			return store.Run{}, fmt.Errorf("run not found: %s", runID)
		}
		return store.Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs, limited by the given count.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	query := `
		SELECT run_id, timestamp, repository, pull_number, ref, profile, engine_status, outcome, comment_count, fallback_count, approved
		FROM runs
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// SaveComments stores posted comments in a single transaction.
func (s *Store) SaveComments(ctx context.Context, comments []store.CommentRecord) error {
	if len(comments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO comments (comment_id, run_id, file, position, body) VALUES (?, ?, ?, ?, ?)`
	for _, c := range comments {
		if _, err := tx.ExecContext(ctx, query, c.CommentID, c.RunID, c.File, c.Position, c.Body); err != nil {
			return fmt.Errorf("failed to save comment %s: %w", c.CommentID, err)
		}
	}

	return tx.Commit()
}

// GetCommentsByRun retrieves all comments for a run.
func (s *Store) GetCommentsByRun(ctx context.Context, runID string) ([]store.CommentRecord, error) {
	query := `
		SELECT comment_id, run_id, file, position, body
		FROM comments
		WHERE run_id = ?
		ORDER BY comment_id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	var comments []store.CommentRecord
	for rows.Next() {
		var c store.CommentRecord
		if err := rows.Scan(&c.CommentID, &c.RunID, &c.File, &c.Position, &c.Body); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, nil
}

// SaveFindings stores security findings in a single transaction.
func (s *Store) SaveFindings(ctx context.Context, findings []store.FindingRecord) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO findings (finding_id, run_id, file, line, category, confidence, excerpt, source_hint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, f := range findings {
		if _, err := tx.ExecContext(ctx, query, f.FindingID, f.RunID, f.File, f.Line, f.Category, f.Confidence, f.Excerpt, f.SourceHint); err != nil {
			return fmt.Errorf("failed to save finding %s: %w", f.FindingID, err)
		}
	}

	return tx.Commit()
}

// GetFindingsByRun retrieves all findings for a run.
func (s *Store) GetFindingsByRun(ctx context.Context, runID string) ([]store.FindingRecord, error) {
	query := `
		SELECT finding_id, run_id, file, line, category, confidence, excerpt, source_hint
		FROM findings
		WHERE run_id = ?
		ORDER BY finding_id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer rows.Close()

	var findings []store.FindingRecord
	for rows.Next() {
		var f store.FindingRecord
		if err := rows.Scan(&f.FindingID, &f.RunID, &f.File, &f.Line, &f.Category, &f.Confidence, &f.Excerpt, &f.SourceHint); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}

	return findings, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (store.Run, error) {
	var run store.Run
	var timestamp int64
	var approved int

	if err := row.Scan(
		&run.RunID,
		&timestamp,
		&run.Repository,
		&run.PullNumber,
		&run.Ref,
		&run.Profile,
		&run.EngineStatus,
		&run.Outcome,
		&run.CommentCount,
		&run.FallbackCount,
		&approved,
	); err != nil {
		return store.Run{}, err
	}

	run.Timestamp = time.Unix(timestamp, 0)
	run.Approved = approved != 0
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
