package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crishurazvi/avis-diabeto/internal/report"
)

func newDrugsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "drugs [class]",
		Short: "Show the drug class compendium, or one class in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				card, err := report.LookupCard(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, card)
				}
				fmt.Fprint(out, card.Markdown())
				return nil
			}

			cards := report.Compendium()
			if asJSON {
				return writeJSON(out, cards)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CLASS\tNAME\tEFFICACY\tHYPO\tWEIGHT\tCOST")
			for _, c := range cards {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Class, c.Name, c.Efficacy, c.Hypoglycemia, c.Weight, c.Cost)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newRulesCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rule catalog in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			planner, err := a.plannerFor()
			if err != nil {
				return err
			}
			catalog := planner.Engine().Catalog()

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, catalog)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPHASE\tKIND\tNAME")
			for _, r := range catalog {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Phase, r.Kind, r.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
