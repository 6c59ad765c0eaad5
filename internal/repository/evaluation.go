package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// EvaluationRecord is the persisted audit form of an evaluation: which rules fired
// and with what outcome. It carries nothing that identifies or describes a patient,
// so no fingerprint, client address, rationale or prose.
type EvaluationRecord struct {
	ID               string                  `json:"evaluation_id"`
	Locale           domain.Locale           `json:"locale"`
	Status           domain.EvaluationStatus `json:"status"`
	RuleIDs          []string                `json:"rule_ids"`
	ProcessingTimeMS int64                   `json:"processing_time_ms"`
	RequestID        string                  `json:"request_id,omitempty"`
	EvaluatedAt      time.Time               `json:"evaluated_at"`
	CreatedAt        time.Time               `json:"created_at"`
}

// NewEvaluationRecord builds the audit form of an evaluation.
func NewEvaluationRecord(eval *domain.Evaluation, processingTime time.Duration, requestID string) *EvaluationRecord {
	ruleIDs := make([]string, 0, len(eval.Records))
	for _, r := range eval.Records {
		ruleIDs = append(ruleIDs, r.RuleID)
	}
	return &EvaluationRecord{
		ID:               eval.ID,
		Locale:           eval.Locale,
		Status:           eval.Status,
		RuleIDs:          ruleIDs,
		ProcessingTimeMS: processingTime.Milliseconds(),
		RequestID:        requestID,
		EvaluatedAt:      eval.EvaluatedAt,
	}
}

// EvaluationRepository handles evaluation audit persistence
type EvaluationRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *pgxpool.Pool, logger *logrus.Logger) *EvaluationRepository {
	return &EvaluationRepository{
		db:  db,
		log: logger,
	}
}

const evaluationColumns = `id::text, locale, status, rule_ids,
	processing_time_ms, request_id, evaluated_at, created_at`

// Create inserts an evaluation record
func (r *EvaluationRepository) Create(ctx context.Context, rec *EvaluationRecord) error {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return domain.NewValidationError("evaluation_id", "evaluation ID must be a UUID", rec.ID)
	}

	query := `
		INSERT INTO evaluations (
			id, locale, status, rule_ids, processing_time_ms, request_id, evaluated_at
		) VALUES (
			$1::uuid, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		rec.ID,
		string(rec.Locale),
		string(rec.Status),
		nonNilStrings(rec.RuleIDs),
		rec.ProcessingTimeMS,
		rec.RequestID,
		rec.EvaluatedAt,
	).Scan(&rec.CreatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"evaluation_id": rec.ID,
			"status":        rec.Status,
			"error":         err,
		}).Error("Failed to create evaluation record")
		return fmt.Errorf("creating evaluation record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"evaluation_id": rec.ID,
		"status":        rec.Status,
		"rules":         len(rec.RuleIDs),
	}).Debug("Evaluation record created")

	return nil
}

// GetByID retrieves an evaluation record by its ID
func (r *EvaluationRepository) GetByID(ctx context.Context, id string) (*EvaluationRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("evaluation %q: %w", id, domain.ErrNotFound)
	}

	row := r.db.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1::uuid`, id)
	rec, err := scanEvaluation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("evaluation %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"evaluation_id": id,
			"error":         err,
		}).Error("Failed to get evaluation record")
		return nil, fmt.Errorf("getting evaluation record: %w", err)
	}
	return rec, nil
}

// ListByRule returns the evaluations in which a rule fired, newest first
func (r *EvaluationRepository) ListByRule(ctx context.Context, ruleID string, limit, offset int) ([]*EvaluationRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+evaluationColumns+`
		FROM evaluations
		WHERE $1 = ANY(rule_ids)
		ORDER BY evaluated_at DESC
		LIMIT $2 OFFSET $3`, ruleID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing evaluation records: %w", err)
	}
	defer rows.Close()

	var result []*EvaluationRecord
	for rows.Next() {
		rec, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning evaluation row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating evaluation rows: %w", err)
	}
	return result, nil
}

// CountByStatus tallies stored evaluations per terminal status
func (r *EvaluationRepository) CountByStatus(ctx context.Context) (map[domain.EvaluationStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM evaluations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting evaluation records: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EvaluationStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[domain.EvaluationStatus(status)] = n
	}
	return counts, rows.Err()
}

// Delete removes an evaluation record
func (r *EvaluationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM evaluations WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("deleting evaluation record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("evaluation %s: %w", id, domain.ErrNotFound)
	}

	r.log.WithField("evaluation_id", id).Info("Evaluation record deleted")
	return nil
}

func scanEvaluation(row pgx.Row) (*EvaluationRecord, error) {
	var rec EvaluationRecord
	var locale, status string

	err := row.Scan(
		&rec.ID,
		&locale,
		&status,
		&rec.RuleIDs,
		&rec.ProcessingTimeMS,
		&rec.RequestID,
		&rec.EvaluatedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Locale = domain.Locale(locale)
	rec.Status = domain.EvaluationStatus(status)
	rec.RuleIDs = nonNilStrings(rec.RuleIDs)
	return &rec, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
