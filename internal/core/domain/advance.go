package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdvanceStatus is the lifecycle state of a customer advance.
type AdvanceStatus string

const (
	AdvanceActive        AdvanceStatus = "ACTIVE"
	AdvancePartiallyUsed AdvanceStatus = "PARTIALLY_USED"
	AdvanceFullyUsed     AdvanceStatus = "FULLY_USED"
	AdvanceRefunded      AdvanceStatus = "REFUNDED"
	AdvanceCancelled     AdvanceStatus = "CANCELLED"
)

// CustomerAdvance is a prepayment held as a liability until consumed against
// orders. RemainingAmount only ever decreases through UseAmount; each partial
// consumption is logged as an immutable AdvanceUsage record.
type CustomerAdvance struct {
	AdvanceID       string          `json:"advanceID"`
	AdvanceNumber   string          `json:"advanceNumber"` // unique, generated
	CustomerID      string          `json:"customerID"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          AdvanceStatus   `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	ReceiptNumber   string          `json:"receiptNumber"` // optional
	// TransactionID references the transaction that recorded receipt of the funds.
	TransactionID string `json:"transactionID,omitempty"`
	AuditFields
}

// UsedAmount is the consumed portion of the advance (derived, not stored).
func (a CustomerAdvance) UsedAmount() decimal.Decimal {
	return a.Amount.Sub(a.RemainingAmount)
}

// DeriveStatus returns the status implied by the remaining amount.
// Explicit REFUNDED/CANCELLED overrides are preserved.
func (a CustomerAdvance) DeriveStatus() AdvanceStatus {
	if a.Status == AdvanceRefunded || a.Status == AdvanceCancelled {
		return a.Status
	}
	switch {
	case a.RemainingAmount.IsZero():
		return AdvanceFullyUsed
	case a.RemainingAmount.LessThan(a.Amount):
		return AdvancePartiallyUsed
	default:
		return AdvanceActive
	}
}

// Consumable reports whether the advance can still be drawn against.
func (a CustomerAdvance) Consumable() bool {
	return (a.Status == AdvanceActive || a.Status == AdvancePartiallyUsed) &&
		a.RemainingAmount.IsPositive()
}

// AdvanceUsage is an append-only record of one consumption event.
type AdvanceUsage struct {
	UsageID   string          `json:"usageID"`
	AdvanceID string          `json:"advanceID"`
	OrderID   string          `json:"orderID"` // optional
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
	CreatedBy string          `json:"createdBy"`
}
