// Package feedback stores clinician agreement with individual therapy rules.
// Entries are keyed by rule and evaluation ID only and never carry patient data.
package feedback

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// maxCommentLength bounds free-text comments.
const maxCommentLength = 2000

// Feedback is a clinician's verdict on one recommendation of one evaluation.
type Feedback struct {
	ID           int64             `json:"id,omitempty"`
	EvaluationID string            `json:"evaluation_id,omitempty"`
	RuleID       string            `json:"rule_id"`
	ActionKind   domain.ActionKind `json:"action_kind"`
	Agreed       bool              `json:"agreed"`
	Comment      string            `json:"comment,omitempty"`
	Locale       string            `json:"locale,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Validate checks the fields every store requires.
func (f *Feedback) Validate() error {
	if strings.TrimSpace(f.RuleID) == "" {
		return domain.NewValidationError("rule_id", "rule_id is required", f.RuleID)
	}
	if !f.ActionKind.IsValid() {
		return &domain.ValidationError{Field: "action_kind", Message: "unknown action kind", Value: f.ActionKind, Err: domain.ErrInvalidActionKind}
	}
	if len(f.Comment) > maxCommentLength {
		return domain.NewValidationError("comment", fmt.Sprintf("comment exceeds %d characters", maxCommentLength), len(f.Comment))
	}
	return nil
}

// RuleSummary aggregates verdicts per rule.
type RuleSummary struct {
	RuleID    string  `json:"rule_id"`
	Agreed    int64   `json:"agreed"`
	Disagreed int64   `json:"disagreed"`
	Total     int64   `json:"total"`
	Agreement float64 `json:"agreement_rate"`
}

func newRuleSummary(ruleID string, agreed, total int64) RuleSummary {
	s := RuleSummary{RuleID: ruleID, Agreed: agreed, Disagreed: total - agreed, Total: total}
	if total > 0 {
		s.Agreement = float64(agreed) / float64(total)
	}
	return s
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores feedback. A second verdict for the same evaluation and rule
	// replaces the first.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id int64) (*Feedback, error)

	// Find retrieves the verdict for an evaluation and rule, or nil.
	Find(ctx context.Context, evaluationID, ruleID string) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// Summary returns agreement counts per rule ordered by rule ID.
	Summary(ctx context.Context) ([]RuleSummary, error)

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

// exportVersion is bumped when the export shape changes.
const exportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000
