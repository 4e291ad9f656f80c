package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the transactions table row.
type Transaction struct {
	TransactionID         string          `db:"transaction_id"`
	TransactionNumber     string          `db:"transaction_number"`
	TransactionType       string          `db:"transaction_type"`
	Status                string          `db:"status"`
	Date                  time.Time       `db:"transaction_date"`
	Description           string          `db:"description"`
	Reference             string          `db:"reference"`
	CustomerID            string          `db:"customer_id"`
	OrderID               string          `db:"order_id"`
	PaymentID             string          `db:"payment_id"`
	BranchID              string          `db:"branch_id"`
	TotalDebit            decimal.Decimal `db:"total_debit"`
	TotalCredit           decimal.Decimal `db:"total_credit"`
	PostedBy              string          `db:"posted_by"`
	PostedAt              *time.Time      `db:"posted_at"`
	OriginalTransactionID string          `db:"original_transaction_id"`
	ReversalTransactionID string          `db:"reversal_transaction_id"`
	AuditFields
}

// TransactionLine is the transaction_lines table row. Lines are immutable once
// their owning transaction is posted.
type TransactionLine struct {
	LineID         string          `db:"line_id"`
	TransactionID  string          `db:"transaction_id"`
	AccountID      string          `db:"account_id"`
	LineNo         int             `db:"line_no"`
	Debit          decimal.Decimal `db:"debit"`
	Credit         decimal.Decimal `db:"credit"`
	Description    string          `db:"description"`
	RunningBalance decimal.Decimal `db:"running_balance"`
	AuditFields
}
