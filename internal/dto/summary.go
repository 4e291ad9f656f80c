package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
)

// SummaryResponse is the customer financial summary representation.
type SummaryResponse struct {
	CustomerID        string                 `json:"customerID"`
	TotalOrdersCount  int64                  `json:"totalOrdersCount"`
	TotalOrdersAmount decimal.Decimal        `json:"totalOrdersAmount"`
	TotalPaid         decimal.Decimal        `json:"totalPaid"`
	TotalAdvances     decimal.Decimal        `json:"totalAdvances"`
	RemainingAdvances decimal.Decimal        `json:"remainingAdvances"`
	TotalDebt         decimal.Decimal        `json:"totalDebt"`
	FinancialStatus   domain.FinancialStatus `json:"financialStatus"`
	LastPaymentDate   *time.Time             `json:"lastPaymentDate,omitempty"`
	LastOrderDate     *time.Time             `json:"lastOrderDate,omitempty"`
	RefreshedAt       time.Time              `json:"refreshedAt"`
}

// ToSummaryResponse converts a domain.CustomerFinancialSummary.
func ToSummaryResponse(s *domain.CustomerFinancialSummary) SummaryResponse {
	return SummaryResponse{
		CustomerID:        s.CustomerID,
		TotalOrdersCount:  s.TotalOrdersCount,
		TotalOrdersAmount: s.TotalOrdersAmount,
		TotalPaid:         s.TotalPaid,
		TotalAdvances:     s.TotalAdvances,
		RemainingAdvances: s.RemainingAdvances,
		TotalDebt:         s.TotalDebt,
		FinancialStatus:   s.FinancialStatus,
		LastPaymentDate:   s.LastPaymentDate,
		LastOrderDate:     s.LastOrderDate,
		RefreshedAt:       s.RefreshedAt,
	}
}
