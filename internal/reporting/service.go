// Package reporting is the read path of the engine: display status, upcoming
// occurrence previews, and ledger listings. It owns no state and never writes.
package reporting

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
	"github.com/cadenza-lab/project-cadenza/internal/core/storage"
)

// StatusLabel is the human-facing rollup of a lifecycle state. Presentation
// layers only distinguish "will fire later", "should fire now", and "will not
// fire"; the finer-grained state rides alongside for clients that want it.
func StatusLabel(s rule.State) string {
	switch s {
	case rule.StateScheduled:
		return "Active"
	case rule.StateDue:
		return "Due"
	default:
		return "Inactive"
	}
}

type Service struct {
	rules  storage.RuleStore
	ledger storage.LedgerStore
	nowFn  func() time.Time
}

func NewService(rules storage.RuleStore, ledger storage.LedgerStore) *Service {
	if rules == nil {
		panic("reporting: rule store must not be nil")
	}
	if ledger == nil {
		panic("reporting: ledger store must not be nil")
	}
	return &Service{
		rules:  rules,
		ledger: ledger,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers the read-only reporting routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/orgs/:org_id/rules/:rule_id/status", s.StatusHandler)
	r.GET("/v1/orgs/:org_id/rules/:rule_id/preview", s.PreviewHandler)
	r.GET("/v1/orgs/:org_id/rules/:rule_id/entries", s.RuleEntriesHandler)
	r.GET("/v1/orgs/:org_id/entries", s.EntriesHandler)
}
