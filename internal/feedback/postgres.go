package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL feedback store.
// It expects the rule_feedback table to exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL feedback store from a connection string.
func NewPostgresStoreFromURL(databaseURL string, config domain.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(orDefaultInt(config.MaxOpenConns, 25))
	db.SetMaxIdleConns(orDefaultInt(config.MaxIdleConns, 5))
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save upserts feedback on (evaluation_id, rule_id). Entries without an
// evaluation ID are always inserted.
func (s *PostgresStore) Save(ctx context.Context, feedback *Feedback) error {
	if err := feedback.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO rule_feedback (
			evaluation_id, rule_id, action_kind, agreed, comment, locale, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (evaluation_id, rule_id) WHERE evaluation_id <> '' DO UPDATE SET
			action_kind = EXCLUDED.action_kind,
			agreed = EXCLUDED.agreed,
			comment = EXCLUDED.comment,
			locale = EXCLUDED.locale,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		feedback.EvaluationID,
		feedback.RuleID,
		string(feedback.ActionKind),
		feedback.Agreed,
		feedback.Comment,
		feedback.Locale,
		now,
		now,
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	feedback.UpdatedAt = now
	return nil
}

// Get retrieves feedback by ID.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM rule_feedback WHERE id = $1`, id)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feedback %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return fb, nil
}

// Find retrieves the verdict recorded for an evaluation and rule.
func (s *PostgresStore) Find(ctx context.Context, evaluationID, ruleID string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM rule_feedback
		WHERE evaluation_id = $1 AND rule_id = $2
		LIMIT 1
	`, evaluationID, ruleID)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find feedback: %w", err)
	}
	return fb, nil
}

// List returns feedback entries with pagination, newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM rule_feedback
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		result = append(result, fb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}

	return result, nil
}

// Count returns the total number of feedback entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rule_feedback").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// Delete removes a feedback entry by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM rule_feedback WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return requireAffected(result, id)
}

// Summary returns agreement counts per rule.
func (s *PostgresStore) Summary(ctx context.Context) ([]RuleSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, COUNT(*) FILTER (WHERE agreed), COUNT(*)
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
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports feedback from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func orDefaultInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
