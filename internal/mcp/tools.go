package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/feedback"
	"github.com/crishurazvi/avis-diabeto/internal/report"
)

// PatientArgs is the patient intake shared by evaluate_therapy and generate_letter
type PatientArgs struct {
	Age          int      `json:"age" jsonschema:"age in years"`
	WeightKg     float64  `json:"weight_kg" jsonschema:"body weight in kg"`
	HeightCm     float64  `json:"height_cm" jsonschema:"height in cm"`
	HbA1c        float64  `json:"hba1c" jsonschema:"current HbA1c in percent"`
	HbA1cTarget  float64  `json:"hba1c_target" jsonschema:"individualized HbA1c target in percent"`
	EGFR         float64  `json:"egfr" jsonschema:"eGFR in mL/min/1.73m2"`
	ASCVD        bool     `json:"ascvd,omitempty" jsonschema:"established atherosclerotic cardiovascular disease"`
	HeartFailure bool     `json:"heart_failure,omitempty" jsonschema:"heart failure"`
	CKD          bool     `json:"ckd,omitempty" jsonschema:"chronic kidney disease"`
	Medications  []string `json:"medications,omitempty" jsonschema:"current drug classes, e.g. metformin, sglt2i, glp1_ra, dpp4i"`
}

func (p PatientArgs) input() domain.PatientInput {
	return domain.PatientInput{
		Age:          p.Age,
		WeightKg:     p.WeightKg,
		HeightCm:     p.HeightCm,
		HbA1c:        p.HbA1c,
		HbA1cTarget:  p.HbA1cTarget,
		EGFR:         p.EGFR,
		ASCVD:        p.ASCVD,
		HeartFailure: p.HeartFailure,
		CKD:          p.CKD,
		Medications:  p.Medications,
	}
}

// EvaluateTherapyInput defines parameters for evaluate_therapy
type EvaluateTherapyInput struct {
	Patient PatientArgs `json:"patient"`
	Locale  string      `json:"locale,omitempty" jsonschema:"en or ro"`
}

// Recommendation is the tool-facing form of an action record
type Recommendation struct {
	RuleID    string   `json:"rule_id"`
	Phase     string   `json:"phase"`
	Kind      string   `json:"kind"`
	Classes   []string `json:"classes"`
	Target    string   `json:"target"`
	Rationale string   `json:"rationale"`
	Reference string   `json:"reference"`
}

// EvaluateTherapyOutput defines the result of evaluate_therapy
type EvaluateTherapyOutput struct {
	EvaluationID    string           `json:"evaluation_id"`
	Status          string           `json:"status"`
	BMI             float64          `json:"bmi"`
	GlycemicGap     float64          `json:"glycemic_gap"`
	Recommendations []Recommendation `json:"recommendations"`
	Prose           []string         `json:"prose"`
	Summary         string           `json:"summary"`
}

// GenerateLetterInput defines parameters for generate_letter
type GenerateLetterInput struct {
	Patient     PatientArgs `json:"patient"`
	PatientName string      `json:"patient_name,omitempty" jsonschema:"name printed on the letter; not stored"`
	Addressee   string      `json:"addressee,omitempty" jsonschema:"referring physician"`
}

// GenerateLetterOutput defines the result of generate_letter
type GenerateLetterOutput struct {
	EvaluationID string `json:"evaluation_id"`
	Letter       string `json:"letter"`
}

// LookupDrugClassInput defines parameters for lookup_drug_class
type LookupDrugClassInput struct {
	Class string `json:"class,omitempty" jsonschema:"class identifier or label; empty lists all classes"`
}

// LookupDrugClassOutput defines the result of lookup_drug_class
type LookupDrugClassOutput struct {
	Cards    []report.DrugCard `json:"cards"`
	Markdown string            `json:"markdown"`
}

// ListRulesInput takes no parameters
type ListRulesInput struct{}

// RuleDescription is the tool-facing form of a catalog entry
type RuleDescription struct {
	ID        string `json:"id"`
	Phase     string `json:"phase"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Reference string `json:"reference"`
}

// ListRulesOutput defines the result of list_rules
type ListRulesOutput struct {
	Rules []RuleDescription `json:"rules"`
}

// SubmitFeedbackInput defines parameters for submit_feedback
type SubmitFeedbackInput struct {
	EvaluationID string `json:"evaluation_id,omitempty" jsonschema:"evaluation the recommendation came from"`
	RuleID       string `json:"rule_id" jsonschema:"rule that produced the recommendation"`
	Agreed       bool   `json:"agreed" jsonschema:"whether the clinician agrees"`
	Comment      string `json:"comment,omitempty" jsonschema:"free-text comment without patient identifiers"`
	Locale       string `json:"locale,omitempty"`
}

// SubmitFeedbackOutput defines the result of submit_feedback
type SubmitFeedbackOutput struct {
	FeedbackID int64  `json:"feedback_id"`
	RuleID     string `json:"rule_id"`
	ActionKind string `json:"action_kind"`
	Agreed     bool   `json:"agreed"`
}

// ExportFeedbackInput defines parameters for export_feedback
type ExportFeedbackInput struct {
	FileName string `json:"file_name,omitempty" jsonschema:"file name inside the export directory"`
}

// ExportFeedbackOutput defines the result of export_feedback
type ExportFeedbackOutput struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (s *Server) evaluateTherapy(ctx context.Context, _ *mcp.CallToolRequest, in EvaluateTherapyInput) (*mcp.CallToolResult, EvaluateTherapyOutput, error) {
	s.logger.WithField("tool", "evaluate_therapy").Info("Tool invoked")

	result, err := s.planner.Plan(ctx, in.Patient.input(), in.Locale)
	if err != nil {
		return nil, EvaluateTherapyOutput{}, err
	}
	eval := result.Evaluation

	out := EvaluateTherapyOutput{
		EvaluationID:    eval.ID,
		Status:          string(eval.Status),
		BMI:             eval.BMI,
		GlycemicGap:     eval.GlycemicGap,
		Recommendations: make([]Recommendation, 0, len(eval.Records)),
		Prose:           eval.Prose,
	}
	if out.Prose == nil {
		out.Prose = []string{}
	}
	for _, r := range eval.Records {
		out.Recommendations = append(out.Recommendations, toRecommendation(r))
	}

	titles := make([]string, 0, len(result.Display))
	for _, item := range result.Display {
		titles = append(titles, item.Icon+" "+item.Title)
	}
	out.Summary = strings.Join(titles, "\n")

	return nil, out, nil
}

func toRecommendation(r domain.ActionRecord) Recommendation {
	classes := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		classes[i] = string(c)
	}
	return Recommendation{
		RuleID:    r.RuleID,
		Phase:     r.Phase.String(),
		Kind:      string(r.Kind),
		Classes:   classes,
		Target:    r.Target,
		Rationale: r.Rationale,
		Reference: r.Reference,
	}
}

func (s *Server) generateLetter(ctx context.Context, _ *mcp.CallToolRequest, in GenerateLetterInput) (*mcp.CallToolResult, GenerateLetterOutput, error) {
	s.logger.WithField("tool", "generate_letter").Info("Tool invoked")

	letter, eval, err := s.planner.GenerateLetter(ctx, in.Patient.input(), report.LetterMeta{
		PatientName: in.PatientName,
		Addressee:   in.Addressee,
	})
	if err != nil {
		return nil, GenerateLetterOutput{}, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: letter}},
	}, GenerateLetterOutput{EvaluationID: eval.ID, Letter: letter}, nil
}

func (s *Server) lookupDrugClass(_ context.Context, _ *mcp.CallToolRequest, in LookupDrugClassInput) (*mcp.CallToolResult, LookupDrugClassOutput, error) {
	var cards []report.DrugCard
	if strings.TrimSpace(in.Class) == "" {
		cards = report.Compendium()
	} else {
		card, err := report.LookupCard(in.Class)
		if err != nil {
			return nil, LookupDrugClassOutput{}, err
		}
		cards = []report.DrugCard{card}
	}

	sections := make([]string, len(cards))
	for i, c := range cards {
		sections[i] = c.Markdown()
	}

	return nil, LookupDrugClassOutput{Cards: cards, Markdown: strings.Join(sections, "\n")}, nil
}

func (s *Server) listRules(_ context.Context, _ *mcp.CallToolRequest, _ ListRulesInput) (*mcp.CallToolResult, ListRulesOutput, error) {
	catalog := s.planner.Engine().Catalog()
	out := ListRulesOutput{Rules: make([]RuleDescription, len(catalog))}
	for i, r := range catalog {
		out.Rules[i] = RuleDescription{
			ID:        r.ID,
			Phase:     r.Phase.String(),
			Kind:      string(r.Kind),
			Name:      r.Name,
			Reference: r.Reference,
		}
	}
	return nil, out, nil
}

func (s *Server) submitFeedback(ctx context.Context, _ *mcp.CallToolRequest, in SubmitFeedbackInput) (*mcp.CallToolResult, SubmitFeedbackOutput, error) {
	rule, ok := s.planner.Engine().Rule(in.RuleID)
	if !ok {
		return nil, SubmitFeedbackOutput{}, domain.NewValidationError("rule_id", "unknown rule", in.RuleID)
	}

	fb := &feedback.Feedback{
		EvaluationID: in.EvaluationID,
		RuleID:       rule.ID,
		ActionKind:   rule.Kind,
		Agreed:       in.Agreed,
		Comment:      in.Comment,
		Locale:       in.Locale,
	}
	if err := s.feedback.Save(ctx, fb); err != nil {
		return nil, SubmitFeedbackOutput{}, fmt.Errorf("failed to save feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tool":        "submit_feedback",
		"feedback_id": fb.ID,
		"rule_id":     fb.RuleID,
		"agreed":      fb.Agreed,
	}).Info("Feedback recorded")

	return nil, SubmitFeedbackOutput{
		FeedbackID: fb.ID,
		RuleID:     fb.RuleID,
		ActionKind: string(fb.ActionKind),
		Agreed:     fb.Agreed,
	}, nil
}

func (s *Server) exportFeedback(ctx context.Context, _ *mcp.CallToolRequest, in ExportFeedbackInput) (*mcp.CallToolResult, ExportFeedbackOutput, error) {
	name := in.FileName
	if name == "" {
		name = fmt.Sprintf("feedback-%s.json", time.Now().UTC().Format("20060102-150405"))
	}
	// Only bare file names; the export never leaves the export directory.
	if filepath.Base(name) != name || name == "." || name == ".." {
		return nil, ExportFeedbackOutput{}, domain.NewValidationError("file_name", "file name must not contain a path", name)
	}

	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return nil, ExportFeedbackOutput{}, fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(s.exportDir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, ExportFeedbackOutput{}, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := s.feedback.ExportJSON(ctx, f); err != nil {
		return nil, ExportFeedbackOutput{}, fmt.Errorf("failed to export feedback: %w", err)
	}

	count, err := s.feedback.Count(ctx)
	if err != nil {
		return nil, ExportFeedbackOutput{}, fmt.Errorf("failed to count feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"path": path, "count": count}).Info("Feedback exported")
	return nil, ExportFeedbackOutput{Path: path, Count: count}, nil
}
