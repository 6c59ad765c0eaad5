// Package cli implements avisctl, the command-line front end of the rule engine.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crishurazvi/avis-diabeto/internal/config"
	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/logging"
	"github.com/crishurazvi/avis-diabeto/internal/report"
	"github.com/crishurazvi/avis-diabeto/internal/service"
	"github.com/crishurazvi/avis-diabeto/internal/setup"
)

type app struct {
	logLevel string
	planner  *service.TherapyPlanner
}

// NewRootCommand builds the avisctl command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "avisctl",
		Short:         "ADA/EASD 2022 therapy recommendations for type 2 diabetes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newEvaluateCommand(a),
		newLetterCommand(a),
		newDrugsCommand(),
		newRulesCommand(a),
		setup.NewCommand(),
	)
	return root
}

// plannerFor builds the planner on first use from AVIS_* settings.
func (a *app) plannerFor() (*service.TherapyPlanner, error) {
	if a.planner != nil {
		return a.planner, nil
	}

	cfg := config.LoadLiteConfig()
	logCfg := cfg.Logging()
	logCfg.Level = a.logLevel
	logCfg.Format = "text"

	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	locale, err := domain.ParseLocale(cfg.Locale)
	if err != nil {
		locale = domain.LocaleEnglish
		logger.WithFields(logrus.Fields{"locale": cfg.Locale}).Warn("Ignoring invalid AVIS_LOCALE")
	}

	a.planner = service.NewTherapyPlanner(logger,
		service.WithDefaultLocale(locale),
		service.WithLetterRenderer(report.NewLetterRenderer(report.LetterOptions{Signature: cfg.LetterSignature})),
	)
	return a.planner, nil
}
