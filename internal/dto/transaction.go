package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
)

// TransactionLineRequest is one debit-or-credit line in a draft.
type TransactionLineRequest struct {
	AccountID   string          `json:"accountID" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// CreateTransactionRequest creates a draft transaction with its lines.
type CreateTransactionRequest struct {
	TransactionType domain.TransactionType   `json:"transactionType" binding:"required,oneof=PAYMENT ADVANCE INVOICE REFUND EXPENSE TRANSFER ADJUSTMENT OPENING"`
	Date            time.Time                `json:"date" binding:"required"`
	Description     string                   `json:"description" binding:"required"`
	Reference       string                   `json:"reference"`
	CustomerID      string                   `json:"customerID"`
	OrderID         string                   `json:"orderID"`
	PaymentID       string                   `json:"paymentID"`
	BranchID        string                   `json:"branchID"`
	Lines           []TransactionLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ReplaceLinesRequest swaps the full line set of a draft.
type ReplaceLinesRequest struct {
	Lines []TransactionLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// TransactionLineResponse is one line of a transaction.
type TransactionLineResponse struct {
	LineID         string          `json:"lineID"`
	AccountID      string          `json:"accountID"`
	LineNo         int             `json:"lineNo"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Description    string          `json:"description,omitempty"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
}

// TransactionResponse is the full transaction representation.
type TransactionResponse struct {
	TransactionID         string                    `json:"transactionID"`
	TransactionNumber     string                    `json:"transactionNumber"`
	TransactionType       domain.TransactionType    `json:"transactionType"`
	Status                domain.TransactionStatus  `json:"status"`
	Date                  time.Time                 `json:"date"`
	Description           string                    `json:"description"`
	Reference             string                    `json:"reference,omitempty"`
	CustomerID            string                    `json:"customerID,omitempty"`
	OrderID               string                    `json:"orderID,omitempty"`
	PaymentID             string                    `json:"paymentID,omitempty"`
	BranchID              string                    `json:"branchID,omitempty"`
	TotalDebit            decimal.Decimal           `json:"totalDebit"`
	TotalCredit           decimal.Decimal           `json:"totalCredit"`
	PostedBy              string                    `json:"postedBy,omitempty"`
	PostedAt              *time.Time                `json:"postedAt,omitempty"`
	OriginalTransactionID string                    `json:"originalTransactionID,omitempty"`
	ReversalTransactionID string                    `json:"reversalTransactionID,omitempty"`
	CreatedAt             time.Time                 `json:"createdAt"`
	CreatedBy             string                    `json:"createdBy"`
	Lines                 []TransactionLineResponse `json:"lines,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction and its lines.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:         txn.TransactionID,
		TransactionNumber:     txn.TransactionNumber,
		TransactionType:       txn.TransactionType,
		Status:                txn.Status,
		Date:                  txn.Date,
		Description:           txn.Description,
		Reference:             txn.Reference,
		CustomerID:            txn.CustomerID,
		OrderID:               txn.OrderID,
		PaymentID:             txn.PaymentID,
		BranchID:              txn.BranchID,
		TotalDebit:            txn.TotalDebit,
		TotalCredit:           txn.TotalCredit,
		PostedBy:              txn.PostedBy,
		PostedAt:              txn.PostedAt,
		OriginalTransactionID: txn.OriginalTransactionID,
		ReversalTransactionID: txn.ReversalTransactionID,
		CreatedAt:             txn.CreatedAt,
		CreatedBy:             txn.CreatedBy,
	}
	if len(txn.Lines) > 0 {
		resp.Lines = make([]TransactionLineResponse, len(txn.Lines))
		for i, l := range txn.Lines {
			resp.Lines[i] = TransactionLineResponse{
				LineID:         l.LineID,
				AccountID:      l.AccountID,
				LineNo:         l.LineNo,
				Debit:          l.Debit,
				Credit:         l.Credit,
				Description:    l.Description,
				RunningBalance: l.RunningBalance,
			}
		}
	}
	return resp
}

// ToListTransactionResponse converts a slice of transactions.
func ToListTransactionResponse(txns []domain.Transaction) []TransactionResponse {
	res := make([]TransactionResponse, len(txns))
	for i := range txns {
		res[i] = ToTransactionResponse(&txns[i])
	}
	return res
}

// ListTransactionsParams defines query parameters for listing transactions.
type ListTransactionsParams struct {
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}
