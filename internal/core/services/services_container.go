package services

import (
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/pkg/config"
)

// NewServiceContainer creates a new service container with properly
// initialized dependencies.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	accountSvc := NewAccountService(repos.AccountRepo, cfg.DefaultAccounts)
	postingSvc := NewPostingService(repos.TransactionRepo, repos.AccountRepo)
	summarySvc := NewSummaryService(repos.SummaryRepo)
	advanceSvc := NewAdvanceService(repos.AdvanceRepo, repos.TransactionRepo, accountSvc, cfg.DefaultAccounts)
	eventSvc := NewEventService(repos.TransactionRepo, repos.OrderRepo, accountSvc, postingSvc, summarySvc, cfg.DefaultAccounts)
	reportingSvc := NewReportingService(repos.ReportingRepo, repos.AccountRepo)
	auditSvc := NewAuditService(repos.ReportingRepo, accountSvc, summarySvc)

	return &portssvc.ServiceContainer{
		Account:   accountSvc,
		Posting:   postingSvc,
		Advance:   advanceSvc,
		Summary:   summarySvc,
		Event:     eventSvc,
		Reporting: reportingSvc,
		Audit:     auditSvc,
	}
}
