package service

import (
	"strings"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// ActionText is the structured rendering of a rule in one locale.
// "{class}" in either field is replaced with the label of the chosen class.
type ActionText struct {
	Target    string
	Rationale string
}

// TherapyRule is one entry of the ordered rule catalog. The same rule carries the
// structured templates and the French prose sentence, so both projections are
// derived from a single evaluation.
type TherapyRule struct {
	ID        string
	Phase     domain.Phase
	Kind      domain.ActionKind
	Name      string
	Reference string

	// Applies is evaluated against the working state as left by earlier rules.
	Applies func(pc *passContext) bool
	// Apply mutates the working state and returns the classes the record targets.
	Apply func(pc *passContext) []domain.DrugClass

	Text  map[domain.Locale]ActionText
	Prose string
}

// RulePhase groups rules evaluated together. When FirstMatchOnly is set the rules
// are mutually exclusive and the first applicable one wins.
type RulePhase struct {
	Phase          domain.Phase
	FirstMatchOnly bool
	// Gate, when set, must hold for any rule of the phase to be considered.
	Gate  func(pc *passContext) bool
	Rules []*TherapyRule
}

// passContext is the exclusively-owned scratch state of one evaluation.
type passContext struct {
	profile *domain.PatientProfile
	meds    *domain.MedicationSet
	gap     float64
}

const maintenanceProse = "**Maintien du traitement actuel** : Objectifs atteints."

// organProtective are the classes with proven cardiorenal benefit.
var organProtective = []domain.DrugClass{domain.SGLT2Inhibitor, domain.GLP1ReceptorAgon, domain.GIPGLP1DualAgon}

// incretinAgonists are the GLP-1 based injectables.
var incretinAgonists = []domain.DrugClass{domain.GLP1ReceptorAgon, domain.GIPGLP1DualAgon}

func fillClass(tmpl string, locale domain.Locale, classes []domain.DrugClass) string {
	if !strings.Contains(tmpl, "{class}") || len(classes) == 0 {
		return tmpl
	}
	return strings.ReplaceAll(tmpl, "{class}", domain.ClassLabel(locale, classes[len(classes)-1]))
}

func remove(dc domain.DrugClass) func(pc *passContext) []domain.DrugClass {
	return func(pc *passContext) []domain.DrugClass {
		pc.meds.Remove(dc)
		return []domain.DrugClass{dc}
	}
}

func add(dc domain.DrugClass) func(pc *passContext) []domain.DrugClass {
	return func(pc *passContext) []domain.DrugClass {
		pc.meds.Add(dc)
		return []domain.DrugClass{dc}
	}
}

// defaultCatalog builds the ADA/EASD 2022 rule catalog in evaluation order.
func defaultCatalog() []RulePhase {
	return []RulePhase{
		{
			Phase: domain.PhaseSafety,
			Rules: []*TherapyRule{
				{
					ID:        "SAFETY_METFORMIN_STOP",
					Phase:     domain.PhaseSafety,
					Kind:      domain.ActionStop,
					Name:      "Metformin contraindicated below eGFR 30",
					Reference: "Table 1",
					Applies: func(pc *passContext) bool {
						return pc.meds.Has(domain.Metformin) && pc.profile.EGFR() < 30
					},
					Apply: remove(domain.Metformin),
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "STOP Metformin", Rationale: "Absolute contraindication: eGFR < 30 mL/min/1.73m²."},
						domain.LocaleRomanian: {Target: "OPRIȚI Metformin", Rationale: "Contraindicație: eGFR < 30 ml/min."},
					},
					Prose: "**ARRÊT Metformine** : Contre-indication absolue (DFG < 30 ml/min).",
				},
				{
					ID:        "SAFETY_METFORMIN_DOSE",
					Phase:     domain.PhaseSafety,
					Kind:      domain.ActionAlert,
					Name:      "Metformin dose reduction for eGFR 30-45",
					Reference: "Clinical Considerations",
					Applies: func(pc *passContext) bool {
						egfr := pc.profile.EGFR()
						return pc.meds.Has(domain.Metformin) && egfr >= 30 && egfr < 45
					},
					Apply: func(pc *passContext) []domain.DrugClass {
						return []domain.DrugClass{domain.Metformin}
					},
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "Reduce Metformin dose", Rationale: "Dose adjustment required for eGFR 30-45."},
						domain.LocaleRomanian: {Target: "Reduceți doza Metformin", Rationale: "Ajustare necesară eGFR 30-45."},
					},
					Prose: "**Ajustement posologique Metformine** : Réduire la dose (DFG 30-45 ml/min).",
				},
				{
					ID:        "SAFETY_SGLT2_STOP",
					Phase:     domain.PhaseSafety,
					Kind:      domain.ActionStop,
					Name:      "SGLT2i not recommended below eGFR 20",
					Reference: "DAPA-CKD criteria",
					Applies: func(pc *passContext) bool {
						return pc.meds.Has(domain.SGLT2Inhibitor) && pc.profile.EGFR() < 20
					},
					Apply: remove(domain.SGLT2Inhibitor),
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "STOP SGLT2i", Rationale: "Reduced efficacy; not recommended below eGFR 20."},
						domain.LocaleRomanian: {Target: "STOP SGLT2i", Rationale: "Inițiere nerecomandată eGFR < 20."},
					},
					Prose: "**ARRÊT iSGLT2** : DFG < 20 ml/min (Efficacité glycémique réduite).",
				},
				{
					ID:        "SAFETY_TZD_HF_STOP",
					Phase:     domain.PhaseSafety,
					Kind:      domain.ActionStop,
					Name:      "Thiazolidinedione in heart failure",
					Reference: "Table 1",
					Applies: func(pc *passContext) bool {
						return pc.meds.Has(domain.Thiazolidinedione) && pc.profile.HeartFailure()
					},
					Apply: remove(domain.Thiazolidinedione),
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "STOP TZD", Rationale: "Risk of heart-failure worsening."},
						domain.LocaleRomanian: {Target: "OPRIȚI TZD", Rationale: "Risc de agravare HF."},
					},
					Prose: "**ARRÊT Glitazone** : Risque d'aggravation de l'insuffisance cardiaque.",
				},
				{
					ID:        "SAFETY_DPP4_REDUNDANT",
					Phase:     domain.PhaseSafety,
					Kind:      domain.ActionStop,
					Name:      "DPP-4i redundant with GLP-1/GIP agonism",
					Reference: "Principles of Care",
					Applies: func(pc *passContext) bool {
						return pc.meds.Has(domain.DPP4Inhibitor) && pc.meds.HasAny(incretinAgonists...)
					},
					Apply: remove(domain.DPP4Inhibitor),
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "STOP DPP-4i", Rationale: "Therapeutic redundancy with GLP-1/GIP agonism."},
						domain.LocaleRomanian: {Target: "OPRIȚI DPP-4i", Rationale: "Redundanță terapeutică cu GLP-1/GIP."},
					},
					Prose: "**ARRÊT iDPP-4** : Redondance thérapeutique avec l'agoniste GLP-1.",
				},
			},
		},
		{
			Phase: domain.PhaseOrganProtection,
			Rules: []*TherapyRule{
				{
					ID:        "ORGAN_HF_SGLT2",
					Phase:     domain.PhaseOrganProtection,
					Kind:      domain.ActionStart,
					Name:      "SGLT2i for heart failure",
					Reference: "Fig 3",
					Applies: func(pc *passContext) bool {
						return pc.profile.HeartFailure() && !pc.meds.Has(domain.SGLT2Inhibitor) && pc.profile.EGFR() >= 20
					},
					Apply: add(domain.SGLT2Inhibitor),
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "START SGLT2i", Rationale: "Major benefit: heart failure."},
						domain.LocaleRomanian: {Target: "INIȚIAȚI SGLT2i", Rationale: "Beneficiu Major: Heart Failure."},
					},
					Prose: "**INITIATION iSGLT2 (Dapagliflozine/Empagliflozine)** : Indication formelle pour l'Insuffisance Cardiaque (Grade A).",
				},
				{
					ID:        "ORGAN_CKD_SGLT2",
					Phase:     domain.PhaseOrganProtection,
					Kind:      domain.ActionStart,
					Name:      "SGLT2i for chronic kidney disease",
					Reference: "Fig 3",
					Applies: func(pc *passContext) bool {
						return pc.profile.CKD() && !pc.meds.Has(domain.SGLT2Inhibitor) && pc.profile.EGFR() >= 20
					},
					Apply: add(domain.SGLT2Inhibitor),
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "START SGLT2i", Rationale: "Major benefit: slows chronic kidney disease progression."},
						domain.LocaleRomanian: {Target: "INIȚIAȚI SGLT2i", Rationale: "Beneficiu Major: Progresia DKD."},
					},
					Prose: "**INITIATION iSGLT2** : Néphroprotection recommandée pour ralentir la progression de la MRC.",
				},
				{
					ID:        "ORGAN_ASCVD_PROTECTION",
					Phase:     domain.PhaseOrganProtection,
					Kind:      domain.ActionStart,
					Name:      "GLP-1 RA or SGLT2i for ASCVD",
					Reference: "Fig 3",
					Applies: func(pc *passContext) bool {
						return pc.profile.ASCVD() && !pc.meds.HasAny(organProtective...)
					},
					Apply: func(pc *passContext) []domain.DrugClass {
						chosen := domain.SGLT2Inhibitor
						if pc.profile.BMI() > 27 {
							chosen = domain.GLP1ReceptorAgon
						}
						pc.meds.Add(chosen)
						return []domain.DrugClass{chosen}
					},
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "START GLP-1 RA or SGLT2i", Rationale: "Proven reduction of major adverse cardiovascular events (preferred: {class})."},
						domain.LocaleRomanian: {Target: "INIȚIAȚI GLP-1 RA sau SGLT2i", Rationale: "Beneficiu MACE dovedit (preferat: {class})."},
					},
					Prose: "**INITIATION {class}** : Prévention secondaire cardiovasculaire (MACE).",
				},
			},
		},
		{
			Phase:          domain.PhaseGlycemicGap,
			FirstMatchOnly: true,
			Gate: func(pc *passContext) bool {
				return pc.gap > 0
			},
			Rules: []*TherapyRule{
				{
					ID:        "GAP_METFORMIN_FIRST_LINE",
					Phase:     domain.PhaseGlycemicGap,
					Kind:      domain.ActionStart,
					Name:      "Metformin as first-line agent",
					Reference: "Table 1",
					Applies: func(pc *passContext) bool {
						return !pc.meds.Has(domain.Metformin) && pc.profile.EGFR() >= 30
					},
					Apply: add(domain.Metformin),
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "ADD Metformin", Rationale: "First-line agent."},
						domain.LocaleRomanian: {Target: "ADĂUGAȚI Metformin", Rationale: "Prima linie."},
					},
					Prose: "**INITIATION Metformine** : Traitement de première intention.",
				},
				{
					ID:        "GAP_WEIGHT_INCRETIN",
					Phase:     domain.PhaseGlycemicGap,
					Kind:      domain.ActionStart,
					Name:      "GLP-1/GIP agonist for weight management",
					Reference: "Weight Management",
					Applies: func(pc *passContext) bool {
						return pc.profile.BMI() >= 30 && !pc.meds.HasAny(domain.GLP1ReceptorAgon, domain.GIPGLP1DualAgon, domain.SGLT2Inhibitor)
					},
					Apply: func(pc *passContext) []domain.DrugClass {
						pc.meds.Add(domain.GLP1ReceptorAgon)
						return []domain.DrugClass{domain.GLP1ReceptorAgon, domain.GIPGLP1DualAgon}
					},
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "ADD GLP-1/GIP agonist", Rationale: "Weight-management benefit."},
						domain.LocaleRomanian: {Target: "ADĂUGAȚI GLP-1/GIP", Rationale: "Managementul greutății."},
					},
					Prose: "**Optimisation Pondérale** : Considérer l'ajout d'un agoniste GLP-1 ou Tirzepatide (Bénéfice perte de poids).",
				},
				{
					ID:        "GAP_DPP4_SWITCH",
					Phase:     domain.PhaseGlycemicGap,
					Kind:      domain.ActionSwitch,
					Name:      "Switch DPP-4i to GLP-1 RA",
					Reference: "Comparative Efficacy",
					Applies: func(pc *passContext) bool {
						return pc.meds.Has(domain.DPP4Inhibitor) && pc.gap > 0.5
					},
					Apply: func(pc *passContext) []domain.DrugClass {
						pc.meds.Replace(domain.DPP4Inhibitor, domain.GLP1ReceptorAgon)
						return []domain.DrugClass{domain.DPP4Inhibitor, domain.GLP1ReceptorAgon}
					},
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "Switch DPP-4i -> GLP-1 RA", Rationale: "Superior efficacy."},
						domain.LocaleRomanian: {Target: "Switch DPP-4i -> GLP-1 RA", Rationale: "Eficacitate superioară."},
					},
					Prose: "**SWITCH thérapeutique** : Remplacer iDPP-4 par aGLP-1 (Efficacité supérieure).",
				},
				{
					ID:        "GAP_GLP1_BEFORE_INSULIN",
					Phase:     domain.PhaseGlycemicGap,
					Kind:      domain.ActionStart,
					Name:      "GLP-1 RA before insulin",
					Reference: "Fig 5",
					Applies: func(pc *passContext) bool {
						return !pc.meds.Has(domain.Insulin) && !pc.meds.HasAny(incretinAgonists...)
					},
					Apply: add(domain.GLP1ReceptorAgon),
					Text: map[domain.Locale]ActionText{
						domain.LocaleEnglish:  {Target: "START GLP-1 RA (before insulin)", Rationale: "Recommended before initiating insulin."},
						domain.LocaleRomanian: {Target: "INIȚIAȚI GLP-1 RA (pre-Insulină)", Rationale: "Recomandat înainte de insulină."},
					},
					Prose: "**Intensification** : Introduction d'un aGLP-1 avant d'envisager l'insulinothérapie basale.",
				},
			},
		},
	}
}
