package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crishurazvi/avis-diabeto/internal/config"
	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/feedback"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newLiteServer(t *testing.T) *LiteServer {
	t.Helper()
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()

	srv, err := NewLiteServer(cfg, "test", WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func patient() PatientArgs {
	return PatientArgs{
		Age:          58,
		WeightKg:     85.5,
		HeightCm:     170,
		HbA1c:        7.8,
		HbA1cTarget:  7.0,
		EGFR:         35,
		HeartFailure: true,
		CKD:          true,
		Medications:  []string{"metformin", "TZD"},
	}
}

func TestNewLiteServer(t *testing.T) {
	srv := newLiteServer(t)

	assert.NotNil(t, srv.Tools())
	assert.NotNil(t, srv.GetFeedbackStore())
	assert.NotNil(t, srv.GetCache())
	assert.DirExists(t, filepath.Join(srv.config.DataDir, "exports"))
	assert.FileExists(t, srv.config.FeedbackDBPath())
}

func TestNewLiteServerRejectsLocale(t *testing.T) {
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()
	cfg.Locale = "fr"

	_, err := NewLiteServer(cfg, "test", WithLogger(quietLogger()))
	assert.ErrorIs(t, err, domain.ErrInvalidLocale)
}

func TestEvaluateTherapyTool(t *testing.T) {
	tools := newLiteServer(t).Tools()
	ctx := context.Background()

	_, out, err := tools.evaluateTherapy(ctx, nil, EvaluateTherapyInput{Patient: patient(), Locale: "en"})
	require.NoError(t, err)

	assert.NotEmpty(t, out.EvaluationID)
	assert.Equal(t, string(domain.StatusActionsRecommended), out.Status)
	require.NotEmpty(t, out.Recommendations)
	assert.Equal(t, "safety", out.Recommendations[0].Phase)
	assert.Contains(t, out.Summary, out.Recommendations[0].Target)

	var rules []string
	for _, r := range out.Recommendations {
		rules = append(rules, r.RuleID)
	}
	assert.Contains(t, rules, "SAFETY_TZD_HF_STOP")
	assert.Contains(t, rules, "ORGAN_HF_SGLT2")

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"STOP"`)

	in := EvaluateTherapyInput{Patient: patient()}
	in.Patient.Age = 0
	_, _, err = tools.evaluateTherapy(ctx, nil, in)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGenerateLetterTool(t *testing.T) {
	tools := newLiteServer(t).Tools()

	res, out, err := tools.generateLetter(context.Background(), nil, GenerateLetterInput{
		Patient:     patient(),
		PatientName: "Mme Leroy",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)

	assert.NotEmpty(t, out.EvaluationID)
	assert.Contains(t, out.Letter, "Avis Diabétologique - Mme Leroy")
	assert.Contains(t, out.Letter, "Dr. Traitant")
}

func TestLookupDrugClassTool(t *testing.T) {
	tools := newLiteServer(t).Tools()
	ctx := context.Background()

	tests := []struct {
		name      string
		class     string
		wantCards int
		wantErr   bool
	}{
		{"all classes", "", len(domain.AllDrugClasses), false},
		{"alias", "GLP-1 RAs", 1, false},
		{"unknown", "aspirin", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := tools.lookupDrugClass(ctx, nil, LookupDrugClassInput{Class: tt.class})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnknownDrugClass)
				return
			}
			require.NoError(t, err)
			assert.Len(t, out.Cards, tt.wantCards)
			assert.Contains(t, out.Markdown, "### ")
		})
	}
}

func TestListRulesTool(t *testing.T) {
	tools := newLiteServer(t).Tools()

	_, out, err := tools.listRules(context.Background(), nil, ListRulesInput{})
	require.NoError(t, err)
	require.Len(t, out.Rules, 12)
	assert.Equal(t, "SAFETY_METFORMIN_STOP", out.Rules[0].ID)
	assert.Equal(t, "glycemic_gap", out.Rules[len(out.Rules)-1].Phase)
}

func TestFeedbackTools(t *testing.T) {
	srv := newLiteServer(t)
	tools := srv.Tools()
	ctx := context.Background()

	_, out, err := tools.submitFeedback(ctx, nil, SubmitFeedbackInput{EvaluationID: "e-1", RuleID: "SAFETY_TZD_HF_STOP", Agreed: true})
	require.NoError(t, err)
	assert.NotZero(t, out.FeedbackID)
	assert.Equal(t, "STOP", out.ActionKind)

	_, _, err = tools.submitFeedback(ctx, nil, SubmitFeedbackInput{RuleID: "MADE_UP", Agreed: true})
	assert.Error(t, err)

	_, exported, err := tools.exportFeedback(ctx, nil, ExportFeedbackInput{FileName: "out.json"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), exported.Count)

	data, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	var export feedback.FeedbackExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, 1, export.Count)

	_, _, err = tools.exportFeedback(ctx, nil, ExportFeedbackInput{FileName: "../escape.json"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
