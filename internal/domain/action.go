package domain

import (
	"fmt"
	"strings"
	"time"
)

// ActionKind is the type of a recommended therapy action.
type ActionKind string

const (
	ActionStop   ActionKind = "STOP"
	ActionStart  ActionKind = "START"
	ActionSwitch ActionKind = "SWITCH"
	ActionAlert  ActionKind = "ALERT"
)

// IsValid validates the action kind.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionStop, ActionStart, ActionSwitch, ActionAlert:
		return true
	default:
		return false
	}
}

// ParseActionKind accepts any casing of a valid kind.
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidActionKind, s)
	}
	return k, nil
}

func (k ActionKind) String() string {
	return string(k)
}

// Phase is an evaluation stage. Phases run in ascending order.
type Phase int

const (
	PhaseSafety Phase = iota + 1
	PhaseOrganProtection
	PhaseGlycemicGap
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseSafety:
		return "safety"
	case PhaseOrganProtection:
		return "organ_protection"
	case PhaseGlycemicGap:
		return "glycemic_gap"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name written by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseSafety, PhaseOrganProtection, PhaseGlycemicGap} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Locale selects the language of rendered text.
type Locale string

const (
	LocaleEnglish  Locale = "en"
	LocaleRomanian Locale = "ro"
	LocaleFrench   Locale = "fr"
)

// StructuredLocales are the locales available for action records.
var StructuredLocales = []Locale{LocaleEnglish, LocaleRomanian}

// ParseLocale validates a structured-record locale. Empty input yields English.
func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if l == "" {
		return LocaleEnglish, nil
	}
	for _, sl := range StructuredLocales {
		if l == sl {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLocale, s)
}

// ActionRecord is one recommended action. Records are values; the order of a
// record sequence reflects clinical priority and must be preserved.
type ActionRecord struct {
	RuleID    string      `json:"rule_id"`
	Phase     Phase       `json:"phase"`
	Kind      ActionKind  `json:"kind"`
	Classes   []DrugClass `json:"classes"`
	Target    string      `json:"target"`
	Rationale string      `json:"rationale"`
	Reference string      `json:"reference"`
}

// EvaluationStatus is the terminal state of one evaluation pass.
type EvaluationStatus string

const (
	// StatusActionsRecommended: at least one record was emitted.
	StatusActionsRecommended EvaluationStatus = "ACTIONS_RECOMMENDED"
	// StatusControlled: HbA1c at or below target and no rule fired.
	StatusControlled EvaluationStatus = "CONTROLLED"
	// StatusNoRuleMatched: HbA1c above target but no rule applied.
	StatusNoRuleMatched EvaluationStatus = "NO_RULE_MATCHED"
)

// Evaluation is the result of one pass of the rule engine. Records and Prose are
// two projections of the same fired rules.
type Evaluation struct {
	ID               string           `json:"evaluation_id,omitempty"`
	Status           EvaluationStatus `json:"status"`
	Locale           Locale           `json:"locale"`
	Records          []ActionRecord   `json:"records"`
	Prose            []string         `json:"prose"`
	BMI              float64          `json:"bmi"`
	GlycemicGap      float64          `json:"glycemic_gap"`
	FinalMedications []DrugClass      `json:"final_medications"`
	Fingerprint      string           `json:"fingerprint"`
	EvaluatedAt      time.Time        `json:"evaluated_at"`
}

// IsControlled reports the controlled terminal state.
func (e *Evaluation) IsControlled() bool {
	return e.Status == StatusControlled
}

// CountByKind tallies records per action kind.
func (e *Evaluation) CountByKind() map[ActionKind]int {
	counts := make(map[ActionKind]int, 4)
	for _, r := range e.Records {
		counts[r.Kind]++
	}
	return counts
}
