package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/cache"
	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/report"
)

// TherapyPlanner is the boundary between callers and the rule engine. It validates
// intake, consults the evaluation cache, and projects results for display and letters.
type TherapyPlanner struct {
	logger        *logrus.Logger
	engine        *TherapyRuleEngine
	cache         domain.EvaluationCache
	cacheTTL      time.Duration
	defaultLocale domain.Locale
	letters       *report.LetterRenderer
}

// PlannerOption is a functional option for TherapyPlanner.
type PlannerOption func(*TherapyPlanner)

// WithEvaluationCache enables result caching.
func WithEvaluationCache(c domain.EvaluationCache, ttl time.Duration) PlannerOption {
	return func(p *TherapyPlanner) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithDefaultLocale sets the locale used when a request names none.
func WithDefaultLocale(locale domain.Locale) PlannerOption {
	return func(p *TherapyPlanner) {
		p.defaultLocale = locale
	}
}

// WithLetterRenderer overrides the consultation letter renderer.
func WithLetterRenderer(r *report.LetterRenderer) PlannerOption {
	return func(p *TherapyPlanner) {
		p.letters = r
	}
}

// NewTherapyPlanner creates a planner over a fresh rule engine
func NewTherapyPlanner(logger *logrus.Logger, opts ...PlannerOption) *TherapyPlanner {
	p := &TherapyPlanner{
		logger:        logger,
		engine:        NewTherapyRuleEngine(logger),
		defaultLocale: domain.LocaleEnglish,
		letters:       report.NewLetterRenderer(report.LetterOptions{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlanResult bundles an evaluation with its display projection.
type PlanResult struct {
	Evaluation *domain.Evaluation   `json:"evaluation"`
	Display    []report.DisplayItem `json:"display"`
	CacheHit   bool                 `json:"cache_hit"`
}

// Plan validates intake and evaluates it. Validation failures return a
// *domain.ValidationError and no partial result.
func (p *TherapyPlanner) Plan(ctx context.Context, input domain.PatientInput, locale string) (*PlanResult, error) {
	profile, err := domain.NewPatientProfile(input)
	if err != nil {
		return nil, err
	}
	return p.PlanProfile(ctx, profile, locale)
}

// PlanProfile evaluates an already-validated profile.
func (p *TherapyPlanner) PlanProfile(ctx context.Context, profile *domain.PatientProfile, locale string) (*PlanResult, error) {
	startTime := time.Now()

	loc, err := p.resolveLocale(locale)
	if err != nil {
		return nil, err
	}

	key := cache.Key(profile, loc)
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			p.logger.WithError(err).Warn("Evaluation cache lookup failed")
		}
		if ok {
			eval := p.stamp(cached)
			p.logger.WithFields(logrus.Fields{
				"evaluation_id": eval.ID,
				"fingerprint":   eval.Fingerprint,
			}).Debug("Evaluation served from cache")
			return &PlanResult{Evaluation: eval, Display: report.Display(eval), CacheHit: true}, nil
		}
	}

	eval, err := p.engine.Evaluate(profile, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate therapy rules: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, eval, p.cacheTTL); err != nil {
			p.logger.WithError(err).Warn("Failed to cache evaluation")
		}
	}

	eval = p.stamp(eval)
	counts := eval.CountByKind()
	p.logger.WithFields(logrus.Fields{
		"evaluation_id":   eval.ID,
		"status":          eval.Status,
		"stop":            counts[domain.ActionStop],
		"start":           counts[domain.ActionStart],
		"switch":          counts[domain.ActionSwitch],
		"alert":           counts[domain.ActionAlert],
		"processing_time": time.Since(startTime),
	}).Info("Therapy plan completed")

	return &PlanResult{Evaluation: eval, Display: report.Display(eval)}, nil
}

// GenerateLetter evaluates intake and renders the French consultation letter from
// the same evaluation.
func (p *TherapyPlanner) GenerateLetter(ctx context.Context, input domain.PatientInput, meta report.LetterMeta) (string, *domain.Evaluation, error) {
	profile, err := domain.NewPatientProfile(input)
	if err != nil {
		return "", nil, err
	}

	result, err := p.PlanProfile(ctx, profile, "")
	if err != nil {
		return "", nil, err
	}

	letter, err := p.letters.Render(report.LetterRequest{
		Meta:       meta,
		Profile:    profile,
		Evaluation: result.Evaluation,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to render letter: %w", err)
	}
	return letter, result.Evaluation, nil
}

// Engine exposes the underlying rule engine.
func (p *TherapyPlanner) Engine() *TherapyRuleEngine {
	return p.engine
}

func (p *TherapyPlanner) resolveLocale(locale string) (domain.Locale, error) {
	if locale == "" {
		return p.defaultLocale, nil
	}
	return domain.ParseLocale(locale)
}

// stamp returns a deep copy carrying a fresh evaluation ID and timestamp; cached
// evaluations are shared and must not be modified.
func (p *TherapyPlanner) stamp(eval *domain.Evaluation) *domain.Evaluation {
	cp := *eval
	cp.Records = slices.Clone(eval.Records)
	for i := range cp.Records {
		cp.Records[i].Classes = slices.Clone(cp.Records[i].Classes)
	}
	cp.Prose = slices.Clone(eval.Prose)
	cp.FinalMedications = slices.Clone(eval.FinalMedications)
	cp.ID = uuid.New().String()
	cp.EvaluatedAt = time.Now().UTC()
	return &cp
}
