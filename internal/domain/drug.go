// Package domain contains the core entities for glucose-lowering therapy planning
// following the ADA/EASD 2022 consensus report on the management of hyperglycemia
// in type 2 diabetes.
//
// Reference: Davies MJ et al. (2022) Management of Hyperglycemia in Type 2 Diabetes.
// Diabetes Care 45(11):2753-2786. doi: 10.2337/dci22-0034
package domain

import (
	"fmt"
	"strings"
)

// DrugClass identifies a category of glucose-lowering medication.
// The set is closed: a new class needs a registry entry and any rule that references it.
type DrugClass string

const (
	Metformin         DrugClass = "metformin"
	SGLT2Inhibitor    DrugClass = "sglt2i"
	GLP1ReceptorAgon  DrugClass = "glp1_ra"
	GIPGLP1DualAgon   DrugClass = "gip_glp1_ra"
	DPP4Inhibitor     DrugClass = "dpp4i"
	Sulfonylurea      DrugClass = "sulfonylurea"
	Thiazolidinedione DrugClass = "tzd"
	Insulin           DrugClass = "insulin"
)

// AllDrugClasses lists every class in canonical order. Sets of classes iterate in this order.
var AllDrugClasses = []DrugClass{
	Metformin,
	SGLT2Inhibitor,
	GLP1ReceptorAgon,
	GIPGLP1DualAgon,
	DPP4Inhibitor,
	Sulfonylurea,
	Thiazolidinedione,
	Insulin,
}

// drugClassAliases maps lower-cased labels used by intake forms to canonical classes.
var drugClassAliases = map[string]DrugClass{
	"metformin":          Metformin,
	"metformine":         Metformin,
	"sglt2i":             SGLT2Inhibitor,
	"sglt2":              SGLT2Inhibitor,
	"sglt2 inhibitor":    SGLT2Inhibitor,
	"sglt2 inhibitors":   SGLT2Inhibitor,
	"isglt2":             SGLT2Inhibitor,
	"glp1_ra":            GLP1ReceptorAgon,
	"glp-1 ra":           GLP1ReceptorAgon,
	"glp-1 ras":          GLP1ReceptorAgon,
	"aglp-1":             GLP1ReceptorAgon,
	"gip_glp1_ra":        GIPGLP1DualAgon,
	"gip/glp-1 ra":       GIPGLP1DualAgon,
	"tirzepatide":        GIPGLP1DualAgon,
	"dpp4i":              DPP4Inhibitor,
	"dpp-4i":             DPP4Inhibitor,
	"dpp-4 inhibitors":   DPP4Inhibitor,
	"idpp-4":             DPP4Inhibitor,
	"sulfonylurea":       Sulfonylurea,
	"sulfonylureas":      Sulfonylurea,
	"sulfoniluree":       Sulfonylurea,
	"tzd":                Thiazolidinedione,
	"thiazolidinedione":  Thiazolidinedione,
	"thiazolidinediones": Thiazolidinedione,
	"insulin":            Insulin,
	"insulină":           Insulin,
	"insuline":           Insulin,
}

// ParseDrugClass resolves a canonical identifier or a known label to a DrugClass.
func ParseDrugClass(s string) (DrugClass, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if dc, ok := drugClassAliases[key]; ok {
		return dc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDrugClass, s)
}

// IsValid reports whether the class is part of the closed set.
func (dc DrugClass) IsValid() bool {
	for _, c := range AllDrugClasses {
		if c == dc {
			return true
		}
	}
	return false
}

// String returns the canonical identifier.
func (dc DrugClass) String() string {
	return string(dc)
}

// ordinal is the position of the class in canonical order, or -1.
func (dc DrugClass) ordinal() int {
	for i, c := range AllDrugClasses {
		if c == dc {
			return i
		}
	}
	return -1
}

// EfficacyTier is the ordinal glucose-lowering efficacy of a class.
type EfficacyTier int

const (
	EfficacyIntermediate EfficacyTier = iota + 1
	EfficacyHigh
	EfficacyVeryHigh
	EfficacyHighest
)

// String returns the label used in the consensus report tables.
func (t EfficacyTier) String() string {
	switch t {
	case EfficacyIntermediate:
		return "Intermediate"
	case EfficacyHigh:
		return "High"
	case EfficacyVeryHigh:
		return "Very High"
	case EfficacyHighest:
		return "Highest"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the tier by label.
func (t EfficacyTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// WeightDirection is the sign of a class's effect on body weight.
type WeightDirection string

const (
	WeightLoss    WeightDirection = "Loss"
	WeightNeutral WeightDirection = "Neutral"
	WeightGain    WeightDirection = "Gain"
)

// Magnitude qualifies an effect size.
type Magnitude string

const (
	MagnitudeNone     Magnitude = ""
	MagnitudeHigh     Magnitude = "High"
	MagnitudeVeryHigh Magnitude = "Very High"
)

// WeightEffect is a direction with an optional magnitude qualifier.
type WeightEffect struct {
	Direction WeightDirection `json:"direction"`
	Magnitude Magnitude       `json:"magnitude,omitempty"`
}

// String renders the effect the way the compendium prints it, e.g. "Loss (Very High)".
func (w WeightEffect) String() string {
	if w.Magnitude == MagnitudeNone {
		return string(w.Direction)
	}
	return fmt.Sprintf("%s (%s)", w.Direction, w.Magnitude)
}

// CostTier is the relative acquisition cost of a class.
type CostTier string

const (
	CostLow      CostTier = "Low"
	CostHigh     CostTier = "High"
	CostVariable CostTier = "Variable"
)

// DrugClassProperties holds the clinical profile of a drug class (consensus report Table 1).
type DrugClassProperties struct {
	Class DrugClass `json:"class"`
	Name  string    `json:"name"`

	Efficacy        EfficacyTier `json:"efficacy"`
	EfficacyCeiling EfficacyTier `json:"efficacy_ceiling,omitempty"`
	Hypoglycemia    bool         `json:"hypoglycemia_risk"`
	Weight          WeightEffect `json:"weight_effect"`

	CardiovascularEffect string   `json:"cv_effect"`
	HeartFailureEffect   string   `json:"hf_effect"`
	RenalEffect          string   `json:"renal_effect"`
	Cost                 CostTier `json:"cost"`

	ClinicalConsiderations []string `json:"clinical_considerations"`
}

// EfficacyLabel renders single tiers as-is and ranges as "High/Very High".
func (p DrugClassProperties) EfficacyLabel() string {
	if p.EfficacyCeiling != 0 && p.EfficacyCeiling != p.Efficacy {
		return p.Efficacy.String() + "/" + p.EfficacyCeiling.String()
	}
	return p.Efficacy.String()
}

// HypoglycemiaLabel renders the risk as Yes/No.
func (p DrugClassProperties) HypoglycemiaLabel() string {
	if p.Hypoglycemia {
		return "Yes"
	}
	return "No"
}
