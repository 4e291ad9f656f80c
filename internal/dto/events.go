package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is delivered by the order capture system when an order is
// created. Re-delivery for an already-recorded order is a no-op.
type OrderCreatedEvent struct {
	OrderID    string          `json:"orderID" binding:"required"`
	CustomerID string          `json:"customerID" binding:"required"`
	FinalPrice decimal.Decimal `json:"finalPrice" binding:"required"`
	OrderDate  time.Time       `json:"orderDate" binding:"required"`
	BranchID   string          `json:"branchID"`
}

// PaymentReceivedEvent is delivered by the payment capture system.
type PaymentReceivedEvent struct {
	PaymentID   string          `json:"paymentID" binding:"required"`
	CustomerID  string          `json:"customerID" binding:"required"`
	OrderID     string          `json:"orderID"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      string          `json:"method" binding:"required,oneof=cash bank"`
	PaymentDate time.Time       `json:"paymentDate" binding:"required"`
}

// EventResponse reports the transaction an event resolved to and whether this
// delivery created it.
type EventResponse struct {
	Created     bool                `json:"created"`
	Transaction TransactionResponse `json:"transaction"`
}
