// Package sqlite persists run history for audit. Records are append-only;
// the review pipeline never reads them back, so a run is always a pure
// function of the platform's state.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reviewloop/autorev/internal/usecase/review"
)

// Store implements the pipeline's run-history port using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store at the given path. Use ":memory:" for an
// in-memory database in tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	-- One row per completed review run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		repository TEXT NOT NULL,
		pull_number INTEGER NOT NULL,
		head_sha TEXT NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0,
		total_findings INTEGER NOT NULL,
		anchor_rejected INTEGER NOT NULL,
		prefilter_dropped INTEGER NOT NULL,
		semantic_dropped INTEGER NOT NULL,
		posted INTEGER NOT NULL,
		prior_applicable INTEGER NOT NULL,
		prior_resolved INTEGER NOT NULL,
		prior_unknown INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_pull ON runs(repository, pull_number);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun appends one run record.
func (s *Store) SaveRun(ctx context.Context, record review.RunRecord) error {
	query := `
		INSERT INTO runs (
			run_id, timestamp, repository, pull_number, head_sha, dry_run,
			total_findings, anchor_rejected, prefilter_dropped,
			semantic_dropped, posted,
			prior_applicable, prior_resolved, prior_unknown
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	dryRun := 0
	if record.DryRun {
		dryRun = 1
	}
	_, err := s.db.ExecContext(ctx, query,
		record.RunID,
		time.Now().Unix(),
		record.Repository,
		record.PullNumber,
		record.HeadSHA,
		dryRun,
		record.Summary.TotalFindings,
		record.Summary.AnchorRejected,
		record.Summary.PrefilterDropped,
		record.Summary.SemanticDropped,
		record.Summary.Posted,
		record.Summary.Prior.Applicable,
		record.Summary.Prior.Resolved,
		record.Summary.Prior.Unknown,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
