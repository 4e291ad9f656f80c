package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
)

// SummaryService maintains the per-customer financial summary read model.
// Refresh is always a full replace from source facts, so repeated calls with
// unchanged facts are idempotent.
type SummaryService struct {
	summaryRepo portsrepo.SummaryRepository
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(summaryRepo portsrepo.SummaryRepository) *SummaryService {
	return &SummaryService{summaryRepo: summaryRepo}
}

var _ portssvc.SummarySvcFacade = (*SummaryService)(nil)

// GetSummary returns the customer's summary, creating it lazily on first
// access by running a refresh.
func (s *SummaryService) GetSummary(ctx context.Context, customerID string) (*domain.CustomerFinancialSummary, error) {
	summary, err := s.summaryRepo.FindSummaryByCustomerID(ctx, customerID)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	return s.Refresh(ctx, customerID)
}

// Refresh recomputes every summary field from the customer's orders, payments
// and live advances, then replaces the stored row in full.
func (s *SummaryService) Refresh(ctx context.Context, customerID string) (*domain.CustomerFinancialSummary, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	facts, err := s.summaryRepo.FetchCustomerFacts(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch facts for customer %s: %w", customerID, err)
	}

	totalDebt := facts.OrdersAmount.Sub(facts.PaidAmount)
	summary := domain.CustomerFinancialSummary{
		CustomerID:        customerID,
		TotalOrdersCount:  facts.OrdersCount,
		TotalOrdersAmount: facts.OrdersAmount,
		TotalPaid:         facts.PaidAmount,
		TotalAdvances:     facts.AdvancesAmount,
		RemainingAdvances: facts.RemainingAdvances,
		TotalDebt:         totalDebt,
		FinancialStatus:   domain.DeriveFinancialStatus(totalDebt, facts.RemainingAdvances),
		LastPaymentDate:   facts.LastPaymentDate,
		LastOrderDate:     facts.LastOrderDate,
		RefreshedAt:       time.Now().UTC(),
	}

	if err := s.summaryRepo.UpsertSummary(ctx, summary); err != nil {
		logger.Error("Failed to store summary", slog.String("customer_id", customerID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to store summary for customer %s: %w", customerID, err)
	}

	logger.Debug("Summary refreshed",
		slog.String("customer_id", customerID),
		slog.String("total_debt", summary.TotalDebt.String()),
		slog.String("status", string(summary.FinancialStatus)),
	)
	return &summary, nil
}

// RefreshAll re-runs the refresh for every known summary. Used by external
// schedulers and by the audit fix mode. Returns the number refreshed.
func (s *SummaryService) RefreshAll(ctx context.Context) (int, error) {
	customerIDs, err := s.summaryRepo.ListSummaryCustomerIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, customerID := range customerIDs {
		if _, err := s.Refresh(ctx, customerID); err != nil {
			return 0, err
		}
	}
	return len(customerIDs), nil
}
