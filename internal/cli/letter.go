package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/report"
)

func newLetterCommand(a *app) *cobra.Command {
	var (
		patient patientFlags
		meta    report.LetterMeta
		date    string
	)

	cmd := &cobra.Command{
		Use:   "letter",
		Short: "Write the French consultation letter for a patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date != "" {
				d, err := report.ParseLetterDate(date)
				if err != nil {
					return domain.NewValidationError("date", "date must be dd/mm/yyyy or yyyy-mm-dd", date)
				}
				meta.Date = d
			}

			planner, err := a.plannerFor()
			if err != nil {
				return err
			}
			letter, _, err := planner.GenerateLetter(cmd.Context(), patient.input, meta)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), letter)
			return nil
		},
	}

	patient.register(cmd)
	cmd.Flags().StringVar(&meta.PatientName, "name", "", "patient name printed in the letter")
	cmd.Flags().StringVar(&meta.Addressee, "to", "", "addressee, e.g. the referring physician")
	cmd.Flags().StringVar(&date, "date", "", "letter date, dd/mm/yyyy or yyyy-mm-dd (default today)")
	return cmd
}
