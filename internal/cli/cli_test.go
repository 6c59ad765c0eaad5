package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/service"
)

var patientArgs = []string{
	"--age", "62", "--weight", "98", "--height", "175",
	"--hba1c", "8.5", "--target", "7", "--egfr", "42", "--med", "metformin",
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AVIS_LOCALE", "en")

	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluateCommand(t *testing.T) {
	out, err := execute(t, append([]string{"evaluate", "--prose"}, patientArgs...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Status: ACTIONS_RECOMMENDED")
	assert.Contains(t, out, "BMI: 32.0")
	assert.Contains(t, out, "Resulting regimen:")
}

func TestEvaluateCommandJSON(t *testing.T) {
	out, err := execute(t, append([]string{"evaluate", "--json", "--locale", "ro"}, patientArgs...)...)
	require.NoError(t, err)

	var result service.PlanResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotNil(t, result.Evaluation)
	assert.Equal(t, domain.LocaleRomanian, result.Evaluation.Locale)
	require.Len(t, result.Evaluation.Records, 2)
	assert.Equal(t, "SAFETY_METFORMIN_DOSE", result.Evaluation.Records[0].RuleID)
	assert.Len(t, result.Display, 2)
}

func TestEvaluateCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing required flag", []string{"evaluate", "--age", "62"}},
		{"unknown drug", append([]string{"evaluate", "--med", "aspirin"}, patientArgs...)},
		{"bad locale", append([]string{"evaluate", "--locale", "de"}, patientArgs...)},
		{"invalid weight", []string{"evaluate", "--age", "62", "--weight", "0", "--height", "175", "--hba1c", "8", "--egfr", "60"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestLetterCommand(t *testing.T) {
	args := append([]string{"letter", "--name", "Mme Martin", "--to", "Dr. Ionescu", "--date", "04/03/2026"}, patientArgs...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "**Date:** 04/03/2026")
	assert.Contains(t, out, "**Pour:** Dr. Ionescu")
	assert.Contains(t, out, "Avis Diabétologique - Mme Martin")
	assert.Contains(t, out, "**4. CONDUITE À TENIR PROPOSÉE**")

	_, err = execute(t, append([]string{"letter", "--date", "tomorrow"}, patientArgs...)...)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDrugsCommand(t *testing.T) {
	out, err := execute(t, "drugs")
	require.NoError(t, err)
	assert.Contains(t, out, "CLASS")
	assert.Contains(t, out, "Metformin")

	out, err = execute(t, "drugs", "sglt2i")
	require.NoError(t, err)
	assert.Contains(t, out, "### SGLT2 Inhibitors")

	_, err = execute(t, "drugs", "aspirin")
	assert.ErrorIs(t, err, domain.ErrUnknownDrugClass)
}

func TestRulesCommand(t *testing.T) {
	out, err := execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "SAFETY_METFORMIN_STOP")
	assert.Contains(t, out, "GAP_GLP1_BEFORE_INSULIN")

	out, err = execute(t, "rules", "--json")
	require.NoError(t, err)
	var rules []service.RuleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	assert.Len(t, rules, 12)
}
