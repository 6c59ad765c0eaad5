package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// exportJSON and importJSON are shared by both stores; the stores differ only in SQL.

func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if all == nil {
		all = []*Feedback{}
	}

	export := &FeedbackExport{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		if fb == nil || fb.Validate() != nil {
			skipped++
			continue
		}

		if fb.EvaluationID != "" {
			existing, err := s.Find(ctx, fb.EvaluationID, fb.RuleID)
			if err != nil {
				return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
			}
			if existing != nil {
				skipped++
				continue
			}
		}

		fb.ID = 0
		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
