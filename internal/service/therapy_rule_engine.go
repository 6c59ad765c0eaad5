package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// TherapyRuleEngine walks a patient profile through the safety, organ-protection
// and glycemic-gap phases of the ADA/EASD 2022 algorithm.
// The catalog is built once and never mutated, so one engine serves concurrent callers.
type TherapyRuleEngine struct {
	logger *logrus.Logger
	phases []RulePhase
	byID   map[string]*TherapyRule
}

var _ domain.TherapyEngine = (*TherapyRuleEngine)(nil)

// NewTherapyRuleEngine creates an engine over the default rule catalog
func NewTherapyRuleEngine(logger *logrus.Logger) *TherapyRuleEngine {
	engine := &TherapyRuleEngine{
		logger: logger,
		phases: defaultCatalog(),
		byID:   make(map[string]*TherapyRule),
	}

	for _, phase := range engine.phases {
		for _, rule := range phase.Rules {
			engine.byID[rule.ID] = rule
		}
	}

	engine.logger.WithFields(logrus.Fields{
		"phase_count": len(engine.phases),
		"rule_count":  len(engine.byID),
	}).Debug("Initialized therapy rule catalog")

	return engine
}

// Evaluate runs one pass over the catalog. The working medication state is a private
// copy of the profile's regimen; the profile itself is never modified.
func (e *TherapyRuleEngine) Evaluate(profile *domain.PatientProfile, locale domain.Locale) (*domain.Evaluation, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is nil", domain.ErrInvalidProfile)
	}
	if locale == "" {
		locale = domain.LocaleEnglish
	}
	if _, err := domain.ParseLocale(string(locale)); err != nil {
		return nil, err
	}

	meds, err := domain.NewMedicationSet(profile.Medications())
	if err != nil {
		return nil, fmt.Errorf("building working medication state: %w", err)
	}

	pc := &passContext{
		profile: profile,
		meds:    meds,
		gap:     profile.GlycemicGap(),
	}

	eval := &domain.Evaluation{
		Locale:      locale,
		Records:     make([]domain.ActionRecord, 0, 4),
		Prose:       make([]string, 0, 4),
		BMI:         profile.BMI(),
		GlycemicGap: pc.gap,
		Fingerprint: profile.Fingerprint(),
	}

	for _, phase := range e.phases {
		if phase.Gate != nil && !phase.Gate(pc) {
			e.logger.WithField("phase", phase.Phase.String()).Debug("Phase gate not satisfied")
			continue
		}

		for _, rule := range phase.Rules {
			if !rule.Applies(pc) {
				continue
			}

			classes := rule.Apply(pc)
			eval.Records = append(eval.Records, rule.record(locale, classes))
			eval.Prose = append(eval.Prose, fillClass(rule.Prose, domain.LocaleFrench, classes))

			e.logger.WithFields(logrus.Fields{
				"rule":  rule.ID,
				"phase": phase.Phase.String(),
				"kind":  rule.Kind.String(),
			}).Debug("Rule fired")

			if phase.FirstMatchOnly {
				break
			}
		}
	}

	eval.FinalMedications = meds.Classes()
	eval.Status = e.determineStatus(eval)
	if eval.Status == domain.StatusControlled {
		eval.Prose = append(eval.Prose, maintenanceProse)
	}

	e.logger.WithFields(logrus.Fields{
		"fingerprint":  eval.Fingerprint,
		"status":       eval.Status,
		"record_count": len(eval.Records),
	}).Info("Completed therapy rule evaluation")

	return eval, nil
}

// determineStatus distinguishes the controlled terminal state from an empty result
// for a patient above target.
func (e *TherapyRuleEngine) determineStatus(eval *domain.Evaluation) domain.EvaluationStatus {
	switch {
	case len(eval.Records) > 0:
		return domain.StatusActionsRecommended
	case eval.GlycemicGap <= 0:
		return domain.StatusControlled
	default:
		return domain.StatusNoRuleMatched
	}
}

// Rules returns the catalog in evaluation order.
func (e *TherapyRuleEngine) Rules() []*TherapyRule {
	out := make([]*TherapyRule, 0, len(e.byID))
	for _, phase := range e.phases {
		out = append(out, phase.Rules...)
	}
	return out
}

// RuleInfo is the serializable description of a catalog entry.
type RuleInfo struct {
	ID        string            `json:"id"`
	Phase     domain.Phase      `json:"phase"`
	Kind      domain.ActionKind `json:"kind"`
	Name      string            `json:"name"`
	Reference string            `json:"reference"`
}

// Catalog describes the rules in evaluation order.
func (e *TherapyRuleEngine) Catalog() []RuleInfo {
	rules := e.Rules()
	out := make([]RuleInfo, len(rules))
	for i, r := range rules {
		out[i] = RuleInfo{ID: r.ID, Phase: r.Phase, Kind: r.Kind, Name: r.Name, Reference: r.Reference}
	}
	return out
}

// Rule looks up a catalog entry by ID.
func (e *TherapyRuleEngine) Rule(id string) (*TherapyRule, bool) {
	r, ok := e.byID[id]
	return r, ok
}

func (r *TherapyRule) record(locale domain.Locale, classes []domain.DrugClass) domain.ActionRecord {
	text, ok := r.Text[locale]
	if !ok {
		text = r.Text[domain.LocaleEnglish]
	}
	return domain.ActionRecord{
		RuleID:    r.ID,
		Phase:     r.Phase,
		Kind:      r.Kind,
		Classes:   classes,
		Target:    fillClass(text.Target, locale, classes),
		Rationale: fillClass(text.Rationale, locale, classes),
		Reference: r.Reference,
	}
}
