package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerAdvance is the customer_advances table row.
type CustomerAdvance struct {
	AdvanceID       string          `db:"advance_id"`
	AdvanceNumber   string          `db:"advance_number"`
	CustomerID      string          `db:"customer_id"`
	Amount          decimal.Decimal `db:"amount"`
	RemainingAmount decimal.Decimal `db:"remaining_amount"`
	Status          string          `db:"status"`
	PaymentMethod   string          `db:"payment_method"`
	ReceiptNumber   string          `db:"receipt_number"`
	TransactionID   string          `db:"transaction_id"`
	AuditFields
}

// AdvanceUsage is the advance_usages table row. Append-only.
type AdvanceUsage struct {
	UsageID   string          `db:"usage_id"`
	AdvanceID string          `db:"advance_id"`
	OrderID   string          `db:"order_id"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
	CreatedBy string          `db:"created_by"`
}
