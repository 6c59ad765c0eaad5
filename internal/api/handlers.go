package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/feedback"
	"github.com/crishurazvi/avis-diabeto/internal/middleware"
	"github.com/crishurazvi/avis-diabeto/internal/report"
	"github.com/crishurazvi/avis-diabeto/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// EvaluateRequest is the body of POST /api/v1/evaluate.
type EvaluateRequest struct {
	Patient domain.PatientInput `json:"patient"`
	Locale  string              `json:"locale"`
}

// EvaluateResponse flattens the evaluation next to its display projection.
type EvaluateResponse struct {
	*domain.Evaluation
	Display  []report.DisplayItem `json:"display"`
	CacheHit bool                 `json:"cache_hit"`
}

// LetterRequest is the body of POST /api/v1/letter.
type LetterRequest struct {
	Patient     domain.PatientInput `json:"patient"`
	PatientName string              `json:"patient_name"`
	Addressee   string              `json:"addressee"`
	Date        string              `json:"date"` // dd/mm/yyyy or yyyy-mm-dd; empty means today
}

// LetterResponse carries the rendered letter.
type LetterResponse struct {
	EvaluationID string `json:"evaluation_id"`
	Letter       string `json:"letter"`
}

// FeedbackRequest is the body of POST /api/v1/feedback.
type FeedbackRequest struct {
	EvaluationID string `json:"evaluation_id"`
	RuleID       string `json:"rule_id" binding:"required"`
	Agreed       *bool  `json:"agreed" binding:"required"`
	Comment      string `json:"comment"`
	Locale       string `json:"locale"`
}

// handleHealth reports the status of every registered dependency
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.WithError(err).WithField("component", name).Warn("Health check failed")
			components[name] = "unhealthy"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "healthy"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC(),
		"version":    Version,
	})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewAPIError(domain.ErrCodeInvalidInput, "Malformed request body", err.Error(), ""))
		return
	}

	start := time.Now()
	result, err := s.planner.Plan(c.Request.Context(), req.Patient, req.Locale)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.recordEvaluation(c, result.Evaluation, time.Since(start))

	c.JSON(http.StatusOK, EvaluateResponse{
		Evaluation: result.Evaluation,
		Display:    result.Display,
		CacheHit:   result.CacheHit,
	})
}

func (s *Server) handleLetter(c *gin.Context) {
	var req LetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewAPIError(domain.ErrCodeInvalidInput, "Malformed request body", err.Error(), ""))
		return
	}

	meta := report.LetterMeta{PatientName: req.PatientName, Addressee: req.Addressee}
	if req.Date != "" {
		date, err := report.ParseLetterDate(req.Date)
		if err != nil {
			s.respondError(c, domain.NewValidationError("date", "date must be dd/mm/yyyy or yyyy-mm-dd", req.Date))
			return
		}
		meta.Date = date
	}

	start := time.Now()
	letter, eval, err := s.planner.GenerateLetter(c.Request.Context(), req.Patient, meta)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.recordEvaluation(c, eval, time.Since(start))

	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(letter))
		return
	}
	c.JSON(http.StatusOK, LetterResponse{EvaluationID: eval.ID, Letter: letter})
}

func (s *Server) handleListRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": s.planner.Engine().Catalog()})
}

func (s *Server) handleListDrugClasses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"drug_classes": report.Compendium()})
}

func (s *Server) handleGetDrugClass(c *gin.Context) {
	card, err := report.LookupCard(c.Param("class"))
	if errors.Is(err, domain.ErrUnknownDrugClass) {
		s.respondError(c, domain.NewAPIError(domain.ErrCodeNotFound, "Unknown drug class", c.Param("class"), ""))
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(card.Markdown()))
		return
	}
	c.JSON(http.StatusOK, card)
}

func (s *Server) handleGetEvaluation(c *gin.Context) {
	rec, err := s.evaluations.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewAPIError(domain.ErrCodeInvalidInput, "Malformed request body", err.Error(), ""))
		return
	}

	rule, ok := s.planner.Engine().Rule(req.RuleID)
	if !ok {
		s.respondError(c, domain.NewValidationError("rule_id", "unknown rule", req.RuleID))
		return
	}

	fb := &feedback.Feedback{
		EvaluationID: req.EvaluationID,
		RuleID:       rule.ID,
		ActionKind:   rule.Kind,
		Agreed:       *req.Agreed,
		Comment:      req.Comment,
		Locale:       req.Locale,
	}
	if err := s.feedback.Save(c.Request.Context(), fb); err != nil {
		s.respondError(c, storageError(err))
		return
	}

	s.logger.WithFields(logrus.Fields{
		"feedback_id":    fb.ID,
		"rule_id":        fb.RuleID,
		"agreed":         fb.Agreed,
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
	}).Info("Feedback recorded")

	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	entries, err := s.feedback.List(ctx, limit, offset)
	if err != nil {
		s.respondError(c, storageError(err))
		return
	}
	total, err := s.feedback.Count(ctx)
	if err != nil {
		s.respondError(c, storageError(err))
		return
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleFeedbackSummary(c *gin.Context) {
	summary, err := s.feedback.Summary(c.Request.Context())
	if err != nil {
		s.respondError(c, storageError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": summary})
}

// recordEvaluation writes the audit record. Failures are logged and do not
// affect the response.
func (s *Server) recordEvaluation(c *gin.Context, eval *domain.Evaluation, elapsed time.Duration) {
	if s.evaluations == nil || eval == nil {
		return
	}
	rec := repository.NewEvaluationRecord(eval, elapsed, c.GetString(middleware.CorrelationIDKey))
	if err := s.evaluations.Create(c.Request.Context(), rec); err != nil {
		s.logger.WithError(err).WithField("evaluation_id", eval.ID).Warn("Failed to record evaluation")
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// storageError tags unexpected store failures; not-found and validation errors pass through.
func storageError(err error) error {
	var verr *domain.ValidationError
	if errors.Is(err, domain.ErrNotFound) || errors.As(err, &verr) {
		return err
	}
	return domain.NewAPIError(domain.ErrCodeStorage, "Feedback store unavailable", "", "")
}

// respondError maps an error to its HTTP status and APIError body.
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		code := domain.ErrorCode(err)
		message := err.Error()
		details := ""

		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			message = "Validation failed"
			details = verr.Error()
		}
		if code == domain.ErrCodeInternalServer {
			message = "Internal server error"
		}
		apiErr = domain.NewAPIError(code, message, details, requestID)
	} else if apiErr.RequestID == "" {
		cp := *apiErr
		cp.RequestID = requestID
		apiErr = &cp
	}

	status := statusFor(apiErr.Code)
	entry := s.logger.WithFields(logrus.Fields{
		"code":           apiErr.Code,
		"status":         status,
		"correlation_id": requestID,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	c.AbortWithStatusJSON(status, apiErr)
}

func statusFor(code string) int {
	switch code {
	case domain.ErrCodeInvalidInput, domain.ErrCodeValidation, domain.ErrCodeUnknownDrugClass:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrCodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
