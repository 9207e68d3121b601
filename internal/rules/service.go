// Package rules is the write path of the engine: every create and edit flows
// through the rule validator before anything is persisted.
package rules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cadenza-lab/project-cadenza/internal/core/storage"
	"github.com/cadenza-lab/project-cadenza/internal/processor"
)

type Service struct {
	store storage.RuleStore
	proc  *processor.Processor
	nowFn func() time.Time
}

func NewService(store storage.RuleStore, proc *processor.Processor) *Service {
	if store == nil {
		panic("rules: store must not be nil")
	}
	if proc == nil {
		panic("rules: processor must not be nil")
	}
	return &Service{
		store: store,
		proc:  proc,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers the rule management routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/orgs/:org_id/rules", s.CreateHandler)
	r.GET("/v1/orgs/:org_id/rules", s.ListHandler)
	r.GET("/v1/orgs/:org_id/rules/:rule_id", s.GetHandler)
	r.PATCH("/v1/orgs/:org_id/rules/:rule_id", s.UpdateHandler)

	// Manual trigger for the same entry point the cron scheduler uses.
	r.POST("/v1/orgs/:org_id/process", s.ProcessHandler)
}
