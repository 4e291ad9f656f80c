package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
)

// AuditService runs the reconciliation checks. Findings are consistency
// warnings, not errors: normal posting is never blocked by them, and nothing
// is mutated unless fix mode is requested.
type AuditService struct {
	reportingRepo portsrepo.ReportingRepository
	accountSvc    portssvc.AccountSvcFacade
	summarySvc    portssvc.SummarySvcFacade
}

// NewAuditService creates a new AuditService.
func NewAuditService(reportingRepo portsrepo.ReportingRepository, accountSvc portssvc.AccountSvcFacade, summarySvc portssvc.SummarySvcFacade) *AuditService {
	return &AuditService{
		reportingRepo: reportingRepo,
		accountSvc:    accountSvc,
		summarySvc:    summarySvc,
	}
}

var _ portssvc.AuditSvcFacade = (*AuditService)(nil)

// FindUnbalancedTransactions reports transactions whose stored totals differ
// from each other or from their line sums.
func (s *AuditService) FindUnbalancedTransactions(ctx context.Context) ([]domain.UnbalancedTransaction, error) {
	return s.reportingRepo.FindUnbalancedTransactions(ctx)
}

// VerifyAccountBalances compares every cached balance with its authoritative
// recomputation. Balances compare with exact decimal equality. With fix set,
// each mismatched account's cache is refreshed from the posted line history.
func (s *AuditService) VerifyAccountBalances(ctx context.Context, fix bool, actor string) ([]domain.BalanceMismatch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	mismatches, err := s.reportingRepo.VerifyAccountBalances(ctx)
	if err != nil {
		return nil, err
	}
	if !fix {
		return mismatches, nil
	}

	for _, m := range mismatches {
		if err := s.accountSvc.UpdateBalance(ctx, m.AccountID, actor); err != nil {
			return mismatches, fmt.Errorf("failed to fix balance for account %s: %w", m.AccountID, err)
		}
		logger.Info("Account balance cache repaired",
			slog.String("account_id", m.AccountID),
			slog.String("was", m.Cached.String()),
			slog.String("now", m.Recomputed.String()),
		)
	}
	return mismatches, nil
}

// VerifyCustomerBalances compares every stored summary debt with the debt
// recomputed from orders and payments. With fix set, mismatched summaries are
// refreshed in full.
func (s *AuditService) VerifyCustomerBalances(ctx context.Context, fix bool) ([]domain.SummaryMismatch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	mismatches, err := s.reportingRepo.VerifyCustomerDebts(ctx)
	if err != nil {
		return nil, err
	}
	if !fix {
		return mismatches, nil
	}

	for _, m := range mismatches {
		if _, err := s.summarySvc.Refresh(ctx, m.CustomerID); err != nil {
			return mismatches, fmt.Errorf("failed to refresh summary for customer %s: %w", m.CustomerID, err)
		}
		logger.Info("Customer summary repaired", slog.String("customer_id", m.CustomerID))
	}
	return mismatches, nil
}

// CountZeroAmountLines reports lines where both debit and credit are zero.
// These cannot be created through the service layer; a nonzero count points
// at out-of-band writes.
func (s *AuditService) CountZeroAmountLines(ctx context.Context) (int64, error) {
	return s.reportingRepo.CountZeroAmountLines(ctx)
}
