package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerFinancialSummary is the customer_financial_summaries table row,
// keyed 1:1 by customer.
type CustomerFinancialSummary struct {
	CustomerID        string          `db:"customer_id"`
	TotalOrdersCount  int64           `db:"total_orders_count"`
	TotalOrdersAmount decimal.Decimal `db:"total_orders_amount"`
	TotalPaid         decimal.Decimal `db:"total_paid"`
	TotalAdvances     decimal.Decimal `db:"total_advances"`
	RemainingAdvances decimal.Decimal `db:"remaining_advances"`
	TotalDebt         decimal.Decimal `db:"total_debt"`
	FinancialStatus   string          `db:"financial_status"`
	LastPaymentDate   *time.Time      `db:"last_payment_date"`
	LastOrderDate     *time.Time      `db:"last_order_date"`
	RefreshedAt       time.Time       `db:"refreshed_at"`
}

// Order is the orders mirror table row.
type Order struct {
	OrderID    string          `db:"order_id"`
	CustomerID string          `db:"customer_id"`
	FinalPrice decimal.Decimal `db:"final_price"`
	OrderDate  time.Time       `db:"order_date"`
	BranchID   string          `db:"branch_id"`
	CreatedAt  time.Time       `db:"created_at"`
}

// Payment is the payments mirror table row.
type Payment struct {
	PaymentID   string          `db:"payment_id"`
	CustomerID  string          `db:"customer_id"`
	OrderID     string          `db:"order_id"`
	Amount      decimal.Decimal `db:"amount"`
	Method      string          `db:"method"`
	PaymentDate time.Time       `db:"payment_date"`
	CreatedAt   time.Time       `db:"created_at"`
}
