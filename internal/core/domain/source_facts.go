package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the ledger-side mirror of an order captured by the intake system.
// Only the fields the ledger and the financial summary need are kept.
type Order struct {
	OrderID    string          `json:"orderID"`
	CustomerID string          `json:"customerID"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
	OrderDate  time.Time       `json:"orderDate"`
	BranchID   string          `json:"branchID"` // optional
	CreatedAt  time.Time       `json:"createdAt"`
}

// Payment is the ledger-side mirror of a captured payment.
type Payment struct {
	PaymentID   string          `json:"paymentID"`
	CustomerID  string          `json:"customerID"`
	OrderID     string          `json:"orderID"` // optional
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	PaymentDate time.Time       `json:"paymentDate"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CustomerFacts are the aggregates a summary refresh is computed from.
type CustomerFacts struct {
	OrdersCount       int64
	OrdersAmount      decimal.Decimal
	PaidAmount        decimal.Decimal
	AdvancesAmount    decimal.Decimal // advances with status ACTIVE or PARTIALLY_USED
	RemainingAdvances decimal.Decimal
	LastOrderDate     *time.Time
	LastPaymentDate   *time.Time
}
