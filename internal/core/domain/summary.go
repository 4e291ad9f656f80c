package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialStatus classifies a customer's net position.
type FinancialStatus string

const (
	StatusClear     FinancialStatus = "CLEAR"
	StatusHasDebt   FinancialStatus = "HAS_DEBT"
	StatusHasCredit FinancialStatus = "HAS_CREDIT"
)

// CustomerFinancialSummary is a per-customer materialized rollup recomputed in
// full from orders, payments and live advances. It is a read model, never a
// source of truth; staleness between refreshes is accepted.
type CustomerFinancialSummary struct {
	CustomerID        string          `json:"customerID"`
	TotalOrdersCount  int64           `json:"totalOrdersCount"`
	TotalOrdersAmount decimal.Decimal `json:"totalOrdersAmount"`
	TotalPaid         decimal.Decimal `json:"totalPaid"`
	TotalAdvances     decimal.Decimal `json:"totalAdvances"`
	RemainingAdvances decimal.Decimal `json:"remainingAdvances"`
	TotalDebt         decimal.Decimal `json:"totalDebt"`
	FinancialStatus   FinancialStatus `json:"financialStatus"`
	LastPaymentDate   *time.Time      `json:"lastPaymentDate,omitempty"`
	LastOrderDate     *time.Time      `json:"lastOrderDate,omitempty"`
	RefreshedAt       time.Time       `json:"refreshedAt"`
}

// DeriveFinancialStatus classifies a net position from debt and open advances.
func DeriveFinancialStatus(totalDebt, remainingAdvances decimal.Decimal) FinancialStatus {
	switch {
	case totalDebt.IsPositive():
		return StatusHasDebt
	case totalDebt.IsNegative() || remainingAdvances.IsPositive():
		return StatusHasCredit
	default:
		return StatusClear
	}
}
