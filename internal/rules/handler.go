package rules

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	v1 "github.com/cadenza-lab/project-cadenza/internal/api/v1"
	httperr "github.com/cadenza-lab/project-cadenza/internal/core/errors"
	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
	"github.com/cadenza-lab/project-cadenza/internal/core/storage"
)

const (
	msgInvalidJSON     = "Invalid JSON body"
	msgInvalidPath     = "Invalid path parameters"
	msgValidationFail  = "Rule validation failed"
	msgRuleNotFound    = "Rule not found"
	msgDuplicateRule   = "A rule with this id already exists"
	msgPersistFailed   = "Failed to persist rule"
	msgProcessingError = "Processing run failed"
)

// CreateHandler handles POST /v1/orgs/:org_id/rules.
func (s *Service) CreateHandler(c *gin.Context) {
	orgID := c.Param("org_id")

	var req v1.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   msgInvalidJSON,
			Details:   err.Error(),
		})
		return
	}

	in, fieldErrs := createInput(orgID, req)
	if fieldErrs != nil {
		writeValidationError(c, fieldErrs)
		return
	}

	r, err := rule.New(in, s.nowFn())
	if err != nil {
		if errors.As(err, &fieldErrs) {
			writeValidationError(c, fieldErrs)
			return
		}
		writeInternal(c, msgPersistFailed, err)
		return
	}

	s.persistNew(c, r)
}

func writeValidationError(c *gin.Context, fieldErrs rule.FieldErrors) {
	c.JSON(http.StatusUnprocessableEntity, httperr.ErrorResponse{
		ErrorType: httperr.HttpValidationError,
		Message:   msgValidationFail,
		Details:   fieldErrs,
	})
}

func (s *Service) persistNew(c *gin.Context, r *rule.RecurrenceRule) {
	if err := s.store.CreateRule(c.Request.Context(), r); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, httperr.ErrorResponse{
				ErrorType: httperr.HttpDuplicateRule,
				Message:   msgDuplicateRule,
			})
			return
		}
		writeInternal(c, msgPersistFailed, err)
		return
	}

	slog.Info("Created recurrence rule",
		"organization_id", r.OrganizationID,
		"rule_id", r.ID,
		"frequency", r.Frequency,
		"next_occurrence", r.NextOccurrence)

	c.JSON(http.StatusCreated, v1.RuleFromDomain(r))
}

// createInput maps the wire request onto validator input. Date and frequency
// parse failures are reported in the same field->reason shape as validator
// errors so clients see one error format.
func createInput(orgID string, req v1.CreateRuleRequest) (rule.NewRuleInput, rule.FieldErrors) {
	fieldErrs := rule.FieldErrors{}

	in := rule.NewRuleInput{
		OrganizationID: orgID,
		Kind:           rule.Kind(req.Kind),
		Category:       req.Category,
		Description:    req.Description,
		Amount:         req.Amount,
		CounterpartyID: req.CounterpartyID,
		EngagementID:   req.EngagementID,
		Frequency:      schedule.Frequency(req.Frequency),
		DayOfMonth:     req.DayOfMonth,
		DayOfWeek:      req.DayOfWeek,

		OccurrenceLimit: req.OccurrenceLimit,
		CreatedBy:       req.CreatedBy,
	}

	start, err := v1.ParseDate(req.StartDate)
	if err != nil {
		fieldErrs["start_date"] = err.Error()
	}
	in.StartDate = start

	if req.EndDate != nil {
		end, err := v1.ParseDate(*req.EndDate)
		if err != nil {
			fieldErrs["end_date"] = err.Error()
		} else {
			in.EndDate = &end
		}
	}

	if len(fieldErrs) > 0 {
		return in, fieldErrs
	}
	return in, nil
}

// GetHandler handles GET /v1/orgs/:org_id/rules/:rule_id.
func (s *Service) GetHandler(c *gin.Context) {
	orgID, ruleID, ok := bindRulePath(c)
	if !ok {
		return
	}

	r, err := s.store.GetRule(c.Request.Context(), orgID, ruleID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, v1.RuleFromDomain(r))
}

// ListHandler handles GET /v1/orgs/:org_id/rules.
func (s *Service) ListHandler(c *gin.Context) {
	orgID := c.Param("org_id")

	list, err := s.store.ListRules(c.Request.Context(), orgID)
	if err != nil {
		writeInternal(c, "Failed to list rules", err)
		return
	}

	out := make([]v1.RuleResponse, 0, len(list))
	for _, r := range list {
		out = append(out, v1.RuleFromDomain(r))
	}
	c.JSON(http.StatusOK, gin.H{"rules": out, "count": len(out)})
}

// UpdateHandler handles PATCH /v1/orgs/:org_id/rules/:rule_id. Only supplied
// fields change; recurrence edits recompute the next occurrence from now.
func (s *Service) UpdateHandler(c *gin.Context) {
	orgID, ruleID, ok := bindRulePath(c)
	if !ok {
		return
	}

	var req v1.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   msgInvalidJSON,
			Details:   err.Error(),
		})
		return
	}

	existing, err := s.store.GetRule(c.Request.Context(), orgID, ruleID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	patch, fieldErrs := patchFrom(req)
	var updated *rule.RecurrenceRule
	if fieldErrs == nil {
		updated, err = rule.Apply(*existing, patch, s.nowFn())
		if err != nil && !errors.As(err, &fieldErrs) {
			writeInternal(c, msgPersistFailed, err)
			return
		}
	}
	if fieldErrs != nil {
		c.JSON(http.StatusUnprocessableEntity, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   msgValidationFail,
			Details:   fieldErrs,
		})
		return
	}

	if err := s.store.UpdateRule(c.Request.Context(), updated); err != nil {
		writeStoreError(c, err)
		return
	}

	slog.Info("Updated recurrence rule",
		"organization_id", orgID,
		"rule_id", ruleID,
		"active", updated.Active,
		"next_occurrence", updated.NextOccurrence)

	c.JSON(http.StatusOK, v1.RuleFromDomain(updated))
}

func patchFrom(req v1.UpdateRuleRequest) (rule.Patch, rule.FieldErrors) {
	fieldErrs := rule.FieldErrors{}

	p := rule.Patch{
		Category:        req.Category,
		Description:     req.Description,
		Amount:          req.Amount,
		CounterpartyID:  req.CounterpartyID,
		EngagementID:    req.EngagementID,
		DayOfMonth:      req.DayOfMonth,
		DayOfWeek:       req.DayOfWeek,
		ClearEnd:        req.ClearEnd,
		OccurrenceLimit: req.OccurrenceLimit,
		Active:          req.Active,
		UpdatedBy:       req.UpdatedBy,
	}

	if req.Kind != nil {
		k := rule.Kind(*req.Kind)
		p.Kind = &k
	}
	if req.Frequency != nil {
		f := schedule.Frequency(*req.Frequency)
		p.Frequency = &f
	}
	if req.StartDate != nil {
		start, err := v1.ParseDate(*req.StartDate)
		if err != nil {
			fieldErrs["start_date"] = err.Error()
		} else {
			p.StartDate = &start
		}
	}
	if req.EndDate != nil {
		end, err := v1.ParseDate(*req.EndDate)
		if err != nil {
			fieldErrs["end_date"] = err.Error()
		} else {
			p.EndDate = &end
		}
	}

	if len(fieldErrs) > 0 {
		return p, fieldErrs
	}
	return p, nil
}

// ProcessHandler handles POST /v1/orgs/:org_id/process: one processing pass
// for the organization at the current time.
func (s *Service) ProcessHandler(c *gin.Context) {
	orgID := c.Param("org_id")

	report, err := s.proc.ProcessDue(c.Request.Context(), orgID, s.nowFn())
	if err != nil {
		writeInternal(c, msgProcessingError, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func bindRulePath(c *gin.Context) (orgID string, ruleID uuid.UUID, ok bool) {
	orgID = c.Param("org_id")
	ruleID, err := uuid.Parse(c.Param("rule_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   msgInvalidPath,
			Details:   "rule_id must be a UUID",
		})
		return "", uuid.Nil, false
	}
	return orgID, ruleID, true
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpRuleNotFoundError,
			Message:   msgRuleNotFound,
		})
		return
	}
	writeInternal(c, msgPersistFailed, err)
}

func writeInternal(c *gin.Context, msg string, err error) {
	slog.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   msg,
	})
}
