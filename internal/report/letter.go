package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

const (
	DefaultSignature = "Dr. Diabétologue"
	DefaultFooter    = "Généré par avis-diabeto"
	DefaultAddressee = "Dr. Traitant"
	DefaultPatient   = "M. Dupont"
)

const letterTemplate = `**Date:** {{.Date}}
**Pour:** {{.Addressee}}
**Concerne:** Avis Diabétologique - {{.PatientName}}

Cher Confrère,

J'ai vu en consultation ce jour votre patient, âgé de {{.Age}} ans.

**1. PROFIL CLINIQUE ET BIOLOGIQUE**
*   **Anthropométrie:** Poids {{num .Weight}} kg, Taille {{num .Height}} cm, **IMC {{printf "%.1f" .BMI}} kg/m²**.
*   **Contrôle Glycémique:** HbA1c **{{num .HbA1c}}%** (Objectif : < {{num .Target}}%).
*   **Fonction Rénale:** DFG (CKD-EPI) **{{num .EGFR}} ml/min/1.73m²**.
*   **Comorbidités:** {{join .Comorbidities ", "}}.

**2. TRAITEMENT ACTUEL**
{{.Treatment}}

**3. ANALYSE ET SYNTHÈSE (Selon recommandations ADA/EASD 2022)**
{{range .Synthesis}}{{.}}
{{end}}
**4. CONDUITE À TENIR PROPOSÉE**
{{range .Actions}}- {{.}}
{{end}}
Je reste à votre disposition pour tout complément d'information.

Cordialement,

**{{.Signature}}**
{{if .Footer}}*{{.Footer}}*
{{end}}`

// LetterOptions configures the fixed parts of the letter.
type LetterOptions struct {
	Signature string
	Footer    string
	// Now is used for the letter date when the request does not carry one.
	Now func() time.Time
}

// LetterMeta holds request-scoped identifiers. They are rendered and discarded.
type LetterMeta struct {
	PatientName string    `json:"patient_name"`
	Addressee   string    `json:"addressee"`
	Date        time.Time `json:"date,omitempty"`
}

// ParseLetterDate accepts dd/mm/yyyy or yyyy-mm-dd.
func ParseLetterDate(s string) (time.Time, error) {
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// LetterRequest pairs a profile with the evaluation produced from it.
type LetterRequest struct {
	Meta       LetterMeta
	Profile    *domain.PatientProfile
	Evaluation *domain.Evaluation
}

type letterView struct {
	Date          string
	Addressee     string
	PatientName   string
	Age           int
	Weight        float64
	Height        float64
	BMI           float64
	HbA1c         float64
	Target        float64
	EGFR          float64
	Comorbidities []string
	Treatment     string
	Synthesis     []string
	Actions       []string
	Signature     string
	Footer        string
}

// LetterRenderer produces the French consultation letter ("Avis Diabétologique").
type LetterRenderer struct {
	tmpl *template.Template
	opts LetterOptions
}

// NewLetterRenderer creates a renderer; empty options fall back to defaults.
func NewLetterRenderer(opts LetterOptions) *LetterRenderer {
	if opts.Signature == "" {
		opts.Signature = DefaultSignature
	}
	if opts.Footer == "" {
		opts.Footer = DefaultFooter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tmpl := template.Must(template.New("avis").Funcs(template.FuncMap{
		"num":  formatNumber,
		"join": strings.Join,
	}).Parse(letterTemplate))

	return &LetterRenderer{tmpl: tmpl, opts: opts}
}

// Render builds the letter text. The action section reproduces the evaluation's
// prose sentences verbatim and in order.
func (r *LetterRenderer) Render(req LetterRequest) (string, error) {
	if req.Profile == nil || req.Evaluation == nil {
		return "", errors.New("letter requires a profile and its evaluation")
	}

	p := req.Profile
	date := req.Meta.Date
	if date.IsZero() {
		date = r.opts.Now()
	}

	view := letterView{
		Date:          date.Format("02/01/2006"),
		Addressee:     orDefault(req.Meta.Addressee, DefaultAddressee),
		PatientName:   orDefault(req.Meta.PatientName, DefaultPatient),
		Age:           p.Age(),
		Weight:        p.WeightKg(),
		Height:        p.HeightCm(),
		BMI:           p.BMI(),
		HbA1c:         p.HbA1c(),
		Target:        p.HbA1cTarget(),
		EGFR:          p.EGFR(),
		Comorbidities: Comorbidities(p),
		Treatment:     Treatment(p.Medications()),
		Synthesis:     Synthesis(p),
		Actions:       req.Evaluation.Prose,
		Signature:     r.opts.Signature,
		Footer:        r.opts.Footer,
	}

	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("failed to execute letter template: %w", err)
	}
	return sb.String(), nil
}

// Comorbidities lists cardiorenal history in French.
func Comorbidities(p *domain.PatientProfile) []string {
	var out []string
	if p.ASCVD() {
		out = append(out, "Maladie Cardiovasculaire (ASCVD)")
	}
	if p.HeartFailure() {
		out = append(out, "Insuffisance Cardiaque")
	}
	if p.CKD() {
		out = append(out, "Maladie Rénale Chronique (MRC)")
	}
	if len(out) == 0 {
		out = append(out, "Pas d'antécédents cardiorénaux majeurs")
	}
	return out
}

// Treatment renders the current regimen by registry name.
func Treatment(meds []domain.DrugClass) string {
	if len(meds) == 0 {
		return "Aucun traitement"
	}
	names := make([]string, 0, len(meds))
	for _, dc := range meds {
		props, err := domain.LookupDrugClass(dc)
		if err != nil {
			names = append(names, dc.String())
			continue
		}
		names = append(names, props.Name)
	}
	return strings.Join(names, ", ")
}

// Synthesis returns the analysis sentences; conditions that do not hold produce
// no sentence.
func Synthesis(p *domain.PatientProfile) []string {
	out := make([]string, 0, 3)
	if p.GlycemicGap() > 0 {
		out = append(out, "Le patient présente un contrôle glycémique insuffisant.")
	} else {
		out = append(out, "Le contrôle glycémique est adéquat.")
	}
	if p.HasCardiorenalRisk() {
		out = append(out, "Présence de facteurs de risque cardiorénal nécessitant une protection d'organe spécifique.")
	}
	if p.EGFR() < 45 {
		out = append(out, "Le DFG actuel impose une vigilance sur certains traitements.")
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
