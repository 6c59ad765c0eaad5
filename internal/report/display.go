package report

import (
	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// DisplayItem is one card of the on-screen action plan.
type DisplayItem struct {
	Category  string `json:"category"`
	Icon      string `json:"icon"`
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
	Reference string `json:"reference,omitempty"`
}

type displayStyle struct {
	category string
	icon     string
}

var displayStyles = map[domain.ActionKind]displayStyle{
	domain.ActionStop:   {category: "action-stop", icon: "⛔"},
	domain.ActionStart:  {category: "action-start", icon: "✅"},
	domain.ActionSwitch: {category: "action-switch", icon: "🔄"},
	domain.ActionAlert:  {category: "action-alert", icon: "⚠️"},
}

var controlledBanner = map[domain.Locale]string{
	domain.LocaleEnglish:  "Patient controlled.",
	domain.LocaleRomanian: "Pacient controlat.",
}

// Display maps each record to a card in record order. A controlled evaluation
// renders as a single success banner.
func Display(eval *domain.Evaluation) []DisplayItem {
	if eval == nil {
		return nil
	}

	if eval.IsControlled() {
		title, ok := controlledBanner[eval.Locale]
		if !ok {
			title = controlledBanner[domain.LocaleEnglish]
		}
		return []DisplayItem{{Category: "success", Icon: "✅", Title: title}}
	}

	items := make([]DisplayItem, 0, len(eval.Records))
	for _, r := range eval.Records {
		style := displayStyles[r.Kind]
		items = append(items, DisplayItem{
			Category:  style.category,
			Icon:      style.icon,
			Title:     r.Kind.String() + ": " + r.Target,
			Rationale: r.Rationale,
			Reference: r.Reference,
		})
	}
	return items
}
