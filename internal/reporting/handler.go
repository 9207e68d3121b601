package reporting

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	v1 "github.com/cadenza-lab/project-cadenza/internal/api/v1"
	httperr "github.com/cadenza-lab/project-cadenza/internal/core/errors"
	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
	"github.com/cadenza-lab/project-cadenza/internal/core/storage"
)

const (
	defaultPreviewCount = 5
	maxPreviewCount     = 60

	defaultEntryLimit = 100
	maxEntryLimit     = 1000
)

// StatusResponse is the wire form of a rule's display status.
type StatusResponse struct {
	RuleID           string  `json:"rule_id"`
	State            string  `json:"state"`
	StatusLabel      string  `json:"status_label"`
	NextOccurrence   *string `json:"next_occurrence,omitempty"`
	OccurrencesFired int     `json:"occurrences_fired"`
	TerminalReason   string  `json:"terminal_reason,omitempty"`
}

// StatusHandler handles GET /v1/orgs/:org_id/rules/:rule_id/status.
func (s *Service) StatusHandler(c *gin.Context) {
	orgID, ruleID, ok := bindRulePath(c)
	if !ok {
		return
	}

	r, err := s.rules.GetRule(c.Request.Context(), orgID, ruleID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	state := rule.Classify(*r, s.nowFn())
	resp := StatusResponse{
		RuleID:           r.ID.String(),
		State:            string(state),
		StatusLabel:      StatusLabel(state),
		OccurrencesFired: r.OccurrencesFired,
		TerminalReason:   string(r.TerminalReason),
	}
	if r.NextOccurrence != nil {
		d := r.NextOccurrence.Format(v1.DateFormat)
		resp.NextOccurrence = &d
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewHandler handles GET /v1/orgs/:org_id/rules/:rule_id/preview?count=n.
// The preview is computed on the fly and never persisted.
func (s *Service) PreviewHandler(c *gin.Context) {
	orgID, ruleID, ok := bindRulePath(c)
	if !ok {
		return
	}

	count, ok := boundedQueryInt(c, "count", defaultPreviewCount, maxPreviewCount)
	if !ok {
		return
	}

	r, err := s.rules.GetRule(c.Request.Context(), orgID, ruleID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	dates := rule.Preview(*r, count)
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(v1.DateFormat))
	}
	c.JSON(http.StatusOK, gin.H{
		"rule_id":     r.ID.String(),
		"occurrences": out,
		"count":       len(out),
	})
}

// RuleEntriesHandler handles GET /v1/orgs/:org_id/rules/:rule_id/entries,
// newest occurrence first.
func (s *Service) RuleEntriesHandler(c *gin.Context) {
	orgID, ruleID, ok := bindRulePath(c)
	if !ok {
		return
	}

	limit, ok := boundedQueryInt(c, "limit", defaultEntryLimit, maxEntryLimit)
	if !ok {
		return
	}

	entries, err := s.ledger.ListEntriesByRule(c.Request.Context(), orgID, ruleID, limit)
	if err != nil {
		writeInternal(c, "Failed to list ledger entries", err)
		return
	}
	writeEntries(c, entries)
}

// EntriesHandler handles GET /v1/orgs/:org_id/entries, newest occurrence
// first across all rules in the organization.
func (s *Service) EntriesHandler(c *gin.Context) {
	orgID := c.Param("org_id")

	limit, ok := boundedQueryInt(c, "limit", defaultEntryLimit, maxEntryLimit)
	if !ok {
		return
	}

	entries, err := s.ledger.ListEntries(c.Request.Context(), orgID, limit)
	if err != nil {
		writeInternal(c, "Failed to list ledger entries", err)
		return
	}
	writeEntries(c, entries)
}

func writeEntries(c *gin.Context, entries []*rule.LedgerEntry) {
	out := make([]v1.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, v1.EntryFromDomain(e))
	}
	c.JSON(http.StatusOK, gin.H{"entries": out, "count": len(out)})
}

// boundedQueryInt reads a positive integer query parameter, applying a
// default when absent and a cap on the accepted maximum.
func boundedQueryInt(c *gin.Context, name string, def, max int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid query parameters",
			Details:   name + " must be a positive integer",
		})
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}

func bindRulePath(c *gin.Context) (orgID string, ruleID uuid.UUID, ok bool) {
	orgID = c.Param("org_id")
	ruleID, err := uuid.Parse(c.Param("rule_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid path parameters",
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
			Message:   "Rule not found",
		})
		return
	}
	writeInternal(c, "Failed to load rule", err)
}

func writeInternal(c *gin.Context, msg string, err error) {
	slog.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   msg,
	})
}
