package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/report"
	"github.com/crishurazvi/avis-diabeto/internal/service"
)

// patientFlags binds the intake fields shared by evaluate and letter.
type patientFlags struct {
	input domain.PatientInput
}

func (p *patientFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&p.input.Age, "age", 0, "age in years")
	f.Float64Var(&p.input.WeightKg, "weight", 0, "weight in kg")
	f.Float64Var(&p.input.HeightCm, "height", 0, "height in cm")
	f.Float64Var(&p.input.HbA1c, "hba1c", 0, "current HbA1c (%)")
	f.Float64Var(&p.input.HbA1cTarget, "target", 7, "individualized HbA1c target (%)")
	f.Float64Var(&p.input.EGFR, "egfr", 0, "eGFR (mL/min/1.73m2)")
	f.BoolVar(&p.input.ASCVD, "ascvd", false, "established atherosclerotic cardiovascular disease")
	f.BoolVar(&p.input.HeartFailure, "hf", false, "heart failure")
	f.BoolVar(&p.input.CKD, "ckd", false, "chronic kidney disease")
	f.StringSliceVar(&p.input.Medications, "med", nil, "current drug class (repeatable or comma-separated)")

	for _, name := range []string{"age", "weight", "height", "hba1c", "egfr"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func newEvaluateCommand(a *app) *cobra.Command {
	var (
		patient  patientFlags
		locale   string
		asJSON   bool
		showNote bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a patient and print the action plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			planner, err := a.plannerFor()
			if err != nil {
				return err
			}
			result, err := planner.Plan(cmd.Context(), patient.input, locale)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, result)
			}
			printPlan(out, result, showNote)
			return nil
		},
	}

	patient.register(cmd)
	cmd.Flags().StringVar(&locale, "locale", "", "record locale: en or ro (default from AVIS_LOCALE)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full evaluation as JSON")
	cmd.Flags().BoolVar(&showNote, "prose", false, "also print the prose summary")
	return cmd
}

func printPlan(w io.Writer, result *service.PlanResult, prose bool) {
	eval := result.Evaluation
	fmt.Fprintf(w, "Status: %s  BMI: %.1f  HbA1c gap: %.1f%%\n\n", eval.Status, eval.BMI, eval.GlycemicGap)

	for _, item := range result.Display {
		fmt.Fprintf(w, "%s %s\n", item.Icon, item.Title)
		if item.Rationale != "" {
			fmt.Fprintf(w, "   %s\n", item.Rationale)
		}
		if item.Reference != "" {
			fmt.Fprintf(w, "   [%s]\n", item.Reference)
		}
	}

	if prose && len(eval.Prose) > 0 {
		fmt.Fprintln(w)
		for _, line := range eval.Prose {
			fmt.Fprintf(w, "- %s\n", line)
		}
	}

	if len(eval.FinalMedications) > 0 {
		fmt.Fprintf(w, "\nResulting regimen: %s\n", report.Treatment(eval.FinalMedications))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
