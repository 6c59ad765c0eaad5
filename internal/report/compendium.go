package report

import (
	"fmt"
	"strings"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// DrugCard is the compendium view of one drug class.
type DrugCard struct {
	Class                  domain.DrugClass `json:"class"`
	Name                   string           `json:"name"`
	Label                  string           `json:"label"`
	Efficacy               string           `json:"efficacy"`
	Hypoglycemia           string           `json:"hypoglycemia_risk"`
	Weight                 string           `json:"weight"`
	Cardiovascular         string           `json:"cv_effect"`
	HeartFailure           string           `json:"hf_effect"`
	Renal                  string           `json:"renal_effect"`
	Cost                   string           `json:"cost"`
	ClinicalConsiderations []string         `json:"clinical_considerations"`
}

// Card projects registry properties for display.
func Card(props domain.DrugClassProperties) DrugCard {
	considerations := make([]string, len(props.ClinicalConsiderations))
	copy(considerations, props.ClinicalConsiderations)
	return DrugCard{
		Class:                  props.Class,
		Name:                   props.Name,
		Label:                  domain.ClassLabel(domain.LocaleFrench, props.Class),
		Efficacy:               props.EfficacyLabel(),
		Hypoglycemia:           props.HypoglycemiaLabel(),
		Weight:                 props.Weight.String(),
		Cardiovascular:         props.CardiovascularEffect,
		HeartFailure:           props.HeartFailureEffect,
		Renal:                  props.RenalEffect,
		Cost:                   string(props.Cost),
		ClinicalConsiderations: considerations,
	}
}

// Compendium returns cards for every class in canonical order.
func Compendium() []DrugCard {
	registry := domain.DrugRegistry()
	cards := make([]DrugCard, 0, len(registry))
	for _, props := range registry {
		cards = append(cards, Card(props))
	}
	return cards
}

// LookupCard resolves an identifier or alias to its card.
func LookupCard(id string) (DrugCard, error) {
	dc, err := domain.ParseDrugClass(id)
	if err != nil {
		return DrugCard{}, err
	}
	props, err := domain.LookupDrugClass(dc)
	if err != nil {
		return DrugCard{}, err
	}
	return Card(props), nil
}

// Markdown renders a card as a short markdown block.
func (c DrugCard) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s (%s)\n", c.Name, c.Class)
	fmt.Fprintf(&sb, "**Efficacy:** %s | **Weight:** %s | **Hypoglycemia:** %s\n\n", c.Efficacy, c.Weight, c.Hypoglycemia)
	fmt.Fprintf(&sb, "- **CV:** %s\n", c.Cardiovascular)
	fmt.Fprintf(&sb, "- **HF:** %s\n", c.HeartFailure)
	fmt.Fprintf(&sb, "- **Renal:** %s\n", c.Renal)
	fmt.Fprintf(&sb, "- **Cost:** %s\n", c.Cost)
	if len(c.ClinicalConsiderations) > 0 {
		fmt.Fprintf(&sb, "- **Clinical:** %s\n", strings.Join(c.ClinicalConsiderations, ", "))
	}
	return sb.String()
}
