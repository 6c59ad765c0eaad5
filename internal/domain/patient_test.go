package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() PatientInput {
	return PatientInput{
		Age:         62,
		WeightKg:    98,
		HeightCm:    175,
		HbA1c:       8.5,
		HbA1cTarget: 7.0,
		EGFR:        42,
		Medications: []string{"metformin"},
	}
}

func TestNewPatientProfile(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *PatientInput)
		wantField string
		wantErr   error
	}{
		{name: "valid profile"},
		{name: "zero age", mutate: func(in *PatientInput) { in.Age = 0 }, wantField: "age", wantErr: ErrInvalidProfile},
		{name: "implausible age", mutate: func(in *PatientInput) { in.Age = 150 }, wantField: "age", wantErr: ErrInvalidProfile},
		{name: "zero height", mutate: func(in *PatientInput) { in.HeightCm = 0 }, wantField: "height_cm", wantErr: ErrInvalidProfile},
		{name: "zero weight", mutate: func(in *PatientInput) { in.WeightKg = 0 }, wantField: "weight_kg", wantErr: ErrInvalidProfile},
		{name: "negative egfr", mutate: func(in *PatientInput) { in.EGFR = -1 }, wantField: "egfr", wantErr: ErrInvalidProfile},
		{name: "hba1c out of range", mutate: func(in *PatientInput) { in.HbA1c = 40 }, wantField: "hba1c", wantErr: ErrInvalidProfile},
		{name: "zero target", mutate: func(in *PatientInput) { in.HbA1cTarget = 0 }, wantField: "hba1c_target", wantErr: ErrInvalidProfile},
		{name: "unknown medication", mutate: func(in *PatientInput) { in.Medications = []string{"metformin", "aspirin"} }, wantField: "medications", wantErr: ErrUnknownDrugClass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			profile, err := NewPatientProfile(in)
			if tt.wantErr == nil {
				require.NoError(t, err)
				require.NotNil(t, profile)
				return
			}

			require.Error(t, err)
			assert.Nil(t, profile)
			assert.True(t, errors.Is(err, tt.wantErr))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestPatientProfileDerivedValues(t *testing.T) {
	in := validInput()
	in.CKD = true
	in.Medications = []string{"DPP-4 Inhibitors", "metformin", "dpp4i"}

	profile, err := NewPatientProfile(in)
	require.NoError(t, err)

	assert.InDelta(t, 32.0, profile.BMI(), 0.01)
	assert.InDelta(t, 1.5, profile.GlycemicGap(), 1e-9)
	assert.True(t, profile.HasCardiorenalRisk())
	assert.Equal(t, []DrugClass{DPP4Inhibitor, Metformin}, profile.Medications())
}

func TestPatientProfileMedicationsAreCopied(t *testing.T) {
	profile := MustPatientProfile(validInput(), Metformin)

	meds := profile.Medications()
	meds[0] = Insulin

	assert.Equal(t, []DrugClass{Metformin}, profile.Medications())
}

func TestPatientProfileFingerprint(t *testing.T) {
	a := MustPatientProfile(validInput(), Metformin, SGLT2Inhibitor)
	b := MustPatientProfile(validInput(), SGLT2Inhibitor, Metformin)
	c := MustPatientProfile(validInput(), Metformin)

	assert.Len(t, a.Fingerprint(), 64)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "medication order must not change the fingerprint")
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestMedicationSet(t *testing.T) {
	t.Run("rejects classes outside the registry", func(t *testing.T) {
		_, err := NewMedicationSet([]DrugClass{Metformin, "aspirin"})
		assert.ErrorIs(t, err, ErrUnknownDrugClass)
	})

	t.Run("mutations report change", func(t *testing.T) {
		set, err := NewMedicationSet([]DrugClass{Metformin})
		require.NoError(t, err)

		assert.False(t, set.Add(Metformin))
		assert.True(t, set.Add(SGLT2Inhibitor))
		assert.True(t, set.Remove(Metformin))
		assert.False(t, set.Remove(Metformin))
		assert.Equal(t, 1, set.Len())
	})

	t.Run("replace swaps members", func(t *testing.T) {
		set := NewMedicationSetUnchecked([]DrugClass{DPP4Inhibitor, Metformin})
		set.Replace(DPP4Inhibitor, GLP1ReceptorAgon)

		assert.False(t, set.Has(DPP4Inhibitor))
		assert.True(t, set.HasAny(Insulin, GLP1ReceptorAgon))
	})

	t.Run("classes are in canonical order", func(t *testing.T) {
		set := NewMedicationSetUnchecked([]DrugClass{Insulin, "zeta", Metformin, "alpha", GLP1ReceptorAgon})
		assert.Equal(t, []DrugClass{Metformin, GLP1ReceptorAgon, Insulin, "alpha", "zeta"}, set.Classes())
	})

	t.Run("clone is independent", func(t *testing.T) {
		set := NewMedicationSetUnchecked([]DrugClass{Metformin})
		clone := set.Clone()
		clone.Add(Insulin)

		assert.False(t, set.Has(Insulin))
	})
}

func TestParseActionKindAndLocale(t *testing.T) {
	kind, err := ParseActionKind(" switch ")
	require.NoError(t, err)
	assert.Equal(t, ActionSwitch, kind)

	_, err = ParseActionKind("PAUSE")
	assert.ErrorIs(t, err, ErrInvalidActionKind)

	loc, err := ParseLocale("")
	require.NoError(t, err)
	assert.Equal(t, LocaleEnglish, loc)

	loc, err = ParseLocale("RO")
	require.NoError(t, err)
	assert.Equal(t, LocaleRomanian, loc)

	_, err = ParseLocale("fr")
	assert.ErrorIs(t, err, ErrInvalidLocale)
}

func TestActionRecordPhaseDecodes(t *testing.T) {
	rec := ActionRecord{RuleID: "ORGAN_HF_SGLT2", Phase: PhaseOrganProtection, Kind: ActionStart, Classes: []DrugClass{SGLT2Inhibitor}}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"organ_protection"`)

	var decoded ActionRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec, decoded)

	var p Phase
	assert.Error(t, p.UnmarshalText([]byte("triage")))
}
