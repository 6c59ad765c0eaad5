package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PatientInput is the raw intake collected at the boundary. Range constraints are
// enforced here, never inside the rule engine.
type PatientInput struct {
	Age          int      `json:"age" validate:"gt=0,lte=130"`
	WeightKg     float64  `json:"weight_kg" validate:"gt=0,lte=500"`
	HeightCm     float64  `json:"height_cm" validate:"gt=0,lte=300"`
	HbA1c        float64  `json:"hba1c" validate:"gte=0,lte=25"`
	HbA1cTarget  float64  `json:"hba1c_target" validate:"gt=0,lte=15"`
	EGFR         float64  `json:"egfr" validate:"gte=0,lte=250"`
	ASCVD        bool     `json:"ascvd"`
	HeartFailure bool     `json:"heart_failure"`
	CKD          bool     `json:"ckd"`
	Medications  []string `json:"medications"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// PatientProfile is the immutable value the engine reasons over.
// BMI is derived from weight and height and cannot be set independently.
type PatientProfile struct {
	age          int
	weightKg     float64
	heightCm     float64
	bmi          float64
	hba1c        float64
	hba1cTarget  float64
	egfr         float64
	ascvd        bool
	heartFailure bool
	ckd          bool
	medications  []DrugClass
}

// NewPatientProfile validates intake and builds a profile. It returns a
// *ValidationError naming the failing field; no partial profile is returned.
func NewPatientProfile(in PatientInput) (*PatientProfile, error) {
	if err := profileValidator().Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, &ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed constraint %s=%s", fe.Tag(), fe.Param()),
				Value:   fe.Value(),
				Err:     ErrInvalidProfile,
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	meds := make([]DrugClass, 0, len(in.Medications))
	for _, raw := range in.Medications {
		dc, err := ParseDrugClass(raw)
		if err != nil {
			return nil, &ValidationError{
				Field:   "medications",
				Message: err.Error(),
				Value:   raw,
				Err:     ErrUnknownDrugClass,
			}
		}
		meds = append(meds, dc)
	}

	return newProfile(in, meds), nil
}

// MustPatientProfile builds a profile from already-typed medications without range
// validation. Classes outside the registry are kept so the engine can reject them.
func MustPatientProfile(in PatientInput, meds ...DrugClass) *PatientProfile {
	return newProfile(in, meds)
}

func newProfile(in PatientInput, meds []DrugClass) *PatientProfile {
	heightM := in.HeightCm / 100
	var bmi float64
	if heightM > 0 {
		bmi = in.WeightKg / (heightM * heightM)
	}
	return &PatientProfile{
		age:          in.Age,
		weightKg:     in.WeightKg,
		heightCm:     in.HeightCm,
		bmi:          bmi,
		hba1c:        in.HbA1c,
		hba1cTarget:  in.HbA1cTarget,
		egfr:         in.EGFR,
		ascvd:        in.ASCVD,
		heartFailure: in.HeartFailure,
		ckd:          in.CKD,
		medications:  dedupeClasses(meds),
	}
}

func dedupeClasses(meds []DrugClass) []DrugClass {
	seen := make(map[DrugClass]bool, len(meds))
	out := make([]DrugClass, 0, len(meds))
	for _, dc := range meds {
		if seen[dc] {
			continue
		}
		seen[dc] = true
		out = append(out, dc)
	}
	return out
}

func (p *PatientProfile) Age() int             { return p.age }
func (p *PatientProfile) WeightKg() float64    { return p.weightKg }
func (p *PatientProfile) HeightCm() float64    { return p.heightCm }
func (p *PatientProfile) BMI() float64         { return p.bmi }
func (p *PatientProfile) HbA1c() float64       { return p.hba1c }
func (p *PatientProfile) HbA1cTarget() float64 { return p.hba1cTarget }
func (p *PatientProfile) EGFR() float64        { return p.egfr }
func (p *PatientProfile) ASCVD() bool          { return p.ascvd }
func (p *PatientProfile) HeartFailure() bool   { return p.heartFailure }
func (p *PatientProfile) CKD() bool            { return p.ckd }

// GlycemicGap is HbA1c minus target; positive means above target.
func (p *PatientProfile) GlycemicGap() float64 {
	return p.hba1c - p.hba1cTarget
}

// HasCardiorenalRisk reports whether any of ASCVD, HF or CKD is present.
func (p *PatientProfile) HasCardiorenalRisk() bool {
	return p.ascvd || p.heartFailure || p.ckd
}

// Medications returns a copy of the current regimen in intake order.
func (p *PatientProfile) Medications() []DrugClass {
	out := make([]DrugClass, len(p.medications))
	copy(out, p.medications)
	return out
}

// WithMedications returns a copy of the profile with a different regimen.
func (p *PatientProfile) WithMedications(meds []DrugClass) *PatientProfile {
	cp := *p
	cp.medications = dedupeClasses(meds)
	return &cp
}

// Input converts the profile back to intake form.
func (p *PatientProfile) Input() PatientInput {
	meds := make([]string, 0, len(p.medications))
	for _, dc := range p.medications {
		meds = append(meds, dc.String())
	}
	return PatientInput{
		Age:          p.age,
		WeightKg:     p.weightKg,
		HeightCm:     p.heightCm,
		HbA1c:        p.hba1c,
		HbA1cTarget:  p.hba1cTarget,
		EGFR:         p.egfr,
		ASCVD:        p.ascvd,
		HeartFailure: p.heartFailure,
		CKD:          p.ckd,
		Medications:  meds,
	}
}

// Fingerprint is a stable SHA-256 over the clinical inputs with medications in
// canonical order. It carries no identifiers and is used as a cache key.
func (p *PatientProfile) Fingerprint() string {
	in := p.Input()
	set := NewMedicationSetUnchecked(p.medications)
	in.Medications = in.Medications[:0]
	for _, dc := range set.Classes() {
		in.Medications = append(in.Medications, dc.String())
	}
	data, _ := json.Marshal(in)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
