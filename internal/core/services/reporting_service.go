package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
)

// ReportingService serves the outbound query surface. Everything here is
// read-only over posted lines.
type ReportingService struct {
	reportingRepo portsrepo.ReportingRepository
	accountRepo   portsrepo.AccountRepository
}

// NewReportingService creates a new ReportingService.
func NewReportingService(reportingRepo portsrepo.ReportingRepository, accountRepo portsrepo.AccountRepository) *ReportingService {
	return &ReportingService{reportingRepo: reportingRepo, accountRepo: accountRepo}
}

var _ portssvc.ReportingSvcFacade = (*ReportingService)(nil)

// TrialBalance aggregates posted debits and credits per account. For a
// consistent ledger total debits equal total credits.
func (s *ReportingService) TrialBalance(ctx context.Context, req dto.TrialBalanceRequest) (*domain.TrialBalance, error) {
	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	return s.reportingRepo.TrialBalance(ctx, asOf)
}

// AccountStatement returns the chronological posted lines of one account with
// the stored running balance after each line.
func (s *ReportingService) AccountStatement(ctx context.Context, accountID string, req dto.StatementRequest) (*domain.AccountStatement, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.buildStatement(ctx, account, req)
}

// CustomerStatement is the account statement of the customer's receivable
// account.
func (s *ReportingService) CustomerStatement(ctx context.Context, customerID string, req dto.StatementRequest) (*domain.AccountStatement, error) {
	account, err := s.accountRepo.FindAccountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("receivable account lookup for customer %s: %w", customerID, err)
	}
	return s.buildStatement(ctx, account, req)
}

func (s *ReportingService) buildStatement(ctx context.Context, account *domain.Account, req dto.StatementRequest) (*domain.AccountStatement, error) {
	from := time.Time{}
	if req.From != nil {
		from = *req.From
	}
	to := time.Now().UTC()
	if req.To != nil {
		to = *req.To
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	lines, err := s.reportingRepo.AccountStatement(ctx, account.AccountID, from, to, limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load statement for account %s: %w", account.AccountID, err)
	}

	closing := account.CurrentBalance
	if len(lines) > 0 {
		closing = lines[len(lines)-1].RunningBalance
	}
	return &domain.AccountStatement{
		AccountID:      account.AccountID,
		Code:           account.Code,
		Name:           account.Name,
		OpeningBalance: account.OpeningBalance,
		ClosingBalance: closing,
		Lines:          lines,
	}, nil
}
