package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the posting state of a transaction.
type TransactionStatus string

const (
	Draft     TransactionStatus = "DRAFT"
	Posted    TransactionStatus = "POSTED"
	Cancelled TransactionStatus = "CANCELLED"
)

// CanTransition reports whether a status transition is legal.
// The only legal transitions are DRAFT -> POSTED and POSTED -> CANCELLED.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	switch s {
	case Draft:
		return to == Posted
	case Posted:
		return to == Cancelled
	default:
		return false
	}
}

// TransactionType classifies the business event behind a transaction.
type TransactionType string

const (
	TypePayment    TransactionType = "PAYMENT"
	TypeAdvance    TransactionType = "ADVANCE"
	TypeInvoice    TransactionType = "INVOICE"
	TypeRefund     TransactionType = "REFUND"
	TypeExpense    TransactionType = "EXPENSE"
	TypeTransfer   TransactionType = "TRANSFER"
	TypeAdjustment TransactionType = "ADJUSTMENT"
	TypeOpening    TransactionType = "OPENING"
)

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TypePayment, TypeAdvance, TypeInvoice, TypeRefund,
		TypeExpense, TypeTransfer, TypeAdjustment, TypeOpening:
		return true
	}
	return false
}

// Transaction is a single balanced financial event composed of multiple lines.
// Line order is preserved for display; it has no balance semantics.
type Transaction struct {
	TransactionID     string            `json:"transactionID"`
	TransactionNumber string            `json:"transactionNumber"` // PREFIX-YYYYMM-NNNNN, assigned once
	TransactionType   TransactionType   `json:"transactionType"`
	Status            TransactionStatus `json:"status"`
	Date              time.Time         `json:"date"`
	Description       string            `json:"description"`
	Reference         string            `json:"reference"`
	CustomerID        string            `json:"customerID"` // optional
	OrderID           string            `json:"orderID"`    // optional
	PaymentID         string            `json:"paymentID"`  // optional
	BranchID          string            `json:"branchID"`   // optional
	TotalDebit        decimal.Decimal   `json:"totalDebit"`
	TotalCredit       decimal.Decimal   `json:"totalCredit"`
	PostedBy          string            `json:"postedBy,omitempty"`
	PostedAt          *time.Time        `json:"postedAt,omitempty"`
	// OriginalTransactionID links a reversal back to the transaction it reverses.
	OriginalTransactionID string `json:"originalTransactionID,omitempty"`
	// ReversalTransactionID links a cancelled transaction to its reversal.
	ReversalTransactionID string `json:"reversalTransactionID,omitempty"`
	AuditFields

	Lines []TransactionLine `json:"lines,omitempty"`
}

// TransactionLine debits or credits exactly one account.
// Exactly one of Debit and Credit is strictly positive; the other is zero.
type TransactionLine struct {
	LineID        string          `json:"lineID"`
	TransactionID string          `json:"transactionID"`
	AccountID     string          `json:"accountID"`
	LineNo        int             `json:"lineNo"` // insertion order, display only
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Description   string          `json:"description"`
	// RunningBalance is the account balance after this line, stored at post time.
	RunningBalance decimal.Decimal `json:"runningBalance"`
	AuditFields
}

// Validate enforces the line exclusivity rule: (debit > 0) XOR (credit > 0).
func (l TransactionLine) Validate() error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return fmt.Errorf("line amounts must not be negative (debit=%s credit=%s)", l.Debit, l.Credit)
	}
	debitSet := l.Debit.IsPositive()
	creditSet := l.Credit.IsPositive()
	if debitSet == creditSet {
		return fmt.Errorf("exactly one of debit and credit must be positive (debit=%s credit=%s)", l.Debit, l.Credit)
	}
	return nil
}

// CalculateTotals sums the lines' debit and credit columns into the
// transaction's totals. Must be re-run whenever draft lines change.
func (t *Transaction) CalculateTotals() {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, l := range t.Lines {
		totalDebit = totalDebit.Add(l.Debit)
		totalCredit = totalCredit.Add(l.Credit)
	}
	t.TotalDebit = totalDebit
	t.TotalCredit = totalCredit
}

// Balanced reports whether total debits equal total credits and both are positive.
func (t Transaction) Balanced() bool {
	return t.TotalDebit.Equal(t.TotalCredit) && t.TotalDebit.IsPositive()
}

// AffectedAccountIDs returns the distinct account IDs referenced by the lines,
// in first-seen order.
func (t Transaction) AffectedAccountIDs() []string {
	seen := make(map[string]struct{}, len(t.Lines))
	ids := make([]string, 0, len(t.Lines))
	for _, l := range t.Lines {
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}
