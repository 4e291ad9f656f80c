package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
)

// IssueAdvanceRequest records a customer prepayment.
type IssueAdvanceRequest struct {
	CustomerID    string          `json:"customerID" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"paymentMethod" binding:"required,oneof=cash bank"`
	ReceiptNumber string          `json:"receiptNumber"`
	Date          *time.Time      `json:"date"`
}

// UseAdvanceRequest consumes part of an advance, optionally against an order.
type UseAdvanceRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	OrderID string          `json:"orderID"`
}

// AdvanceResponse is the advance representation.
type AdvanceResponse struct {
	AdvanceID       string               `json:"advanceID"`
	AdvanceNumber   string               `json:"advanceNumber"`
	CustomerID      string               `json:"customerID"`
	Amount          decimal.Decimal      `json:"amount"`
	RemainingAmount decimal.Decimal      `json:"remainingAmount"`
	UsedAmount      decimal.Decimal      `json:"usedAmount"`
	Status          domain.AdvanceStatus `json:"status"`
	PaymentMethod   string               `json:"paymentMethod"`
	ReceiptNumber   string               `json:"receiptNumber,omitempty"`
	TransactionID   string               `json:"transactionID,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// ToAdvanceResponse converts a domain.CustomerAdvance.
func ToAdvanceResponse(adv *domain.CustomerAdvance) AdvanceResponse {
	return AdvanceResponse{
		AdvanceID:       adv.AdvanceID,
		AdvanceNumber:   adv.AdvanceNumber,
		CustomerID:      adv.CustomerID,
		Amount:          adv.Amount,
		RemainingAmount: adv.RemainingAmount,
		UsedAmount:      adv.UsedAmount(),
		Status:          adv.Status,
		PaymentMethod:   adv.PaymentMethod,
		ReceiptNumber:   adv.ReceiptNumber,
		TransactionID:   adv.TransactionID,
		CreatedAt:       adv.CreatedAt,
	}
}

// ToListAdvanceResponse converts a slice of advances.
func ToListAdvanceResponse(advances []domain.CustomerAdvance) []AdvanceResponse {
	res := make([]AdvanceResponse, len(advances))
	for i := range advances {
		res[i] = ToAdvanceResponse(&advances[i])
	}
	return res
}

// AdvanceUsageResponse is one consumption record.
type AdvanceUsageResponse struct {
	UsageID   string          `json:"usageID"`
	AdvanceID string          `json:"advanceID"`
	OrderID   string          `json:"orderID,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
	CreatedBy string          `json:"createdBy"`
}

// ToListUsageResponse converts a slice of usages.
func ToListUsageResponse(usages []domain.AdvanceUsage) []AdvanceUsageResponse {
	res := make([]AdvanceUsageResponse, len(usages))
	for i, u := range usages {
		res[i] = AdvanceUsageResponse{
			UsageID:   u.UsageID,
			AdvanceID: u.AdvanceID,
			OrderID:   u.OrderID,
			Amount:    u.Amount,
			CreatedAt: u.CreatedAt,
			CreatedBy: u.CreatedBy,
		}
	}
	return res
}
