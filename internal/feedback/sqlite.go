package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite feedback store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets readers proceed while a verdict is being written
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = `id, evaluation_id, rule_id, action_kind, agreed, comment, locale, created_at, updated_at`

// scanFeedback scans a row into a Feedback struct.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var kind string

	err := s.Scan(
		&fb.ID, &fb.EvaluationID, &fb.RuleID, &kind, &fb.Agreed,
		&fb.Comment, &fb.Locale, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.ActionKind = domain.ActionKind(kind)
	return fb, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rule_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		evaluation_id TEXT NOT NULL DEFAULT '',
		rule_id TEXT NOT NULL,
		action_kind TEXT NOT NULL,
		agreed INTEGER NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		locale TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_rule_feedback_evaluation_rule
		ON rule_feedback(evaluation_id, rule_id) WHERE evaluation_id <> '';
	CREATE INDEX IF NOT EXISTS idx_rule_feedback_rule_id ON rule_feedback(rule_id);
	CREATE INDEX IF NOT EXISTS idx_rule_feedback_created_at ON rule_feedback(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores feedback, replacing an earlier verdict for the same evaluation and rule.
func (s *SQLiteStore) Save(ctx context.Context, feedback *Feedback) error {
	if err := feedback.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	if feedback.EvaluationID != "" {
		existing, err := s.Find(ctx, feedback.EvaluationID, feedback.RuleID)
		if err != nil {
			return fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			_, err = s.db.ExecContext(ctx, `
				UPDATE rule_feedback SET
					action_kind = ?,
					agreed = ?,
					comment = ?,
					locale = ?,
					updated_at = ?
				WHERE id = ?
			`,
				string(feedback.ActionKind),
				feedback.Agreed,
				feedback.Comment,
				feedback.Locale,
				now,
				existing.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to update: %w", err)
			}
			feedback.ID = existing.ID
			feedback.CreatedAt = existing.CreatedAt
			feedback.UpdatedAt = now
			return nil
		}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_feedback (
			evaluation_id, rule_id, action_kind, agreed, comment, locale, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		feedback.EvaluationID,
		feedback.RuleID,
		string(feedback.ActionKind),
		feedback.Agreed,
		feedback.Comment,
		feedback.Locale,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	feedback.ID = id
	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	return nil
}

// Get retrieves feedback by ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM rule_feedback WHERE id = ?`, id)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feedback %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return fb, nil
}

// Find retrieves the verdict recorded for an evaluation and rule.
func (s *SQLiteStore) Find(ctx context.Context, evaluationID, ruleID string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM rule_feedback
		WHERE evaluation_id = ? AND rule_id = ?
		LIMIT 1
	`, evaluationID, ruleID)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return fb, nil
}

// List returns feedback entries with pagination, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM rule_feedback
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of feedback entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rule_feedback").Scan(&count)
	return count, err
}

// Delete removes a feedback entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM rule_feedback WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return requireAffected(result, id)
}

// Summary returns agreement counts per rule.
func (s *SQLiteStore) Summary(ctx context.Context) ([]RuleSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, SUM(CASE WHEN agreed THEN 1 ELSE 0 END), COUNT(*)
		FROM rule_feedback
		GROUP BY rule_id
		ORDER BY rule_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	return scanSummary(rows)
}

// ExportJSON exports all feedback to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports feedback from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSummary(rows *sql.Rows) ([]RuleSummary, error) {
	result := []RuleSummary{}
	for rows.Next() {
		var ruleID string
		var agreed, total int64
		if err := rows.Scan(&ruleID, &agreed, &total); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		result = append(result, newRuleSummary(ruleID, agreed, total))
	}
	return result, rows.Err()
}

func requireAffected(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("feedback %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
