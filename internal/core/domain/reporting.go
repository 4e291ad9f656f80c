package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow aggregates posted debits and credits for one account.
type TrialBalanceRow struct {
	AccountID      string          `json:"accountID"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	AccountType    AccountCategory `json:"accountType"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	TotalDebit     decimal.Decimal `json:"totalDebit"`
	TotalCredit    decimal.Decimal `json:"totalCredit"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
}

// TrialBalance is the system-wide debit/credit aggregation. For a consistent
// ledger TotalDebit equals TotalCredit.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
	AsOf        time.Time         `json:"asOf"`
}

// Balanced reports whether total debits equal total credits.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// StatementLine is one posted line in an account statement, with the
// transaction context needed for display and the running balance after it.
type StatementLine struct {
	TransactionID     string          `json:"transactionID"`
	TransactionNumber string          `json:"transactionNumber"`
	Date              time.Time       `json:"date"`
	Description       string          `json:"description"`
	Debit             decimal.Decimal `json:"debit"`
	Credit            decimal.Decimal `json:"credit"`
	RunningBalance    decimal.Decimal `json:"runningBalance"`
}

// AccountStatement is the chronological posted-line history of one account.
type AccountStatement struct {
	AccountID      string          `json:"accountID"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	Lines          []StatementLine `json:"lines"`
}

// UnbalancedTransaction is an audit finding: a transaction whose stored totals
// or line sums do not match.
type UnbalancedTransaction struct {
	TransactionID     string            `json:"transactionID"`
	TransactionNumber string            `json:"transactionNumber"`
	Status            TransactionStatus `json:"status"`
	TotalDebit        decimal.Decimal   `json:"totalDebit"`
	TotalCredit       decimal.Decimal   `json:"totalCredit"`
	LineDebitSum      decimal.Decimal   `json:"lineDebitSum"`
	LineCreditSum     decimal.Decimal   `json:"lineCreditSum"`
}

// BalanceMismatch is an audit finding: a cached account balance diverging from
// the authoritative recomputation.
type BalanceMismatch struct {
	AccountID  string          `json:"accountID"`
	Code       string          `json:"code"`
	Cached     decimal.Decimal `json:"cached"`
	Recomputed decimal.Decimal `json:"recomputed"`
}

// Difference returns recomputed minus cached.
func (m BalanceMismatch) Difference() decimal.Decimal {
	return m.Recomputed.Sub(m.Cached)
}

// SummaryMismatch is an audit finding: a customer summary whose stored debt
// diverges from the debt recomputed from orders and payments.
type SummaryMismatch struct {
	CustomerID     string          `json:"customerID"`
	StoredDebt     decimal.Decimal `json:"storedDebt"`
	RecomputedDebt decimal.Decimal `json:"recomputedDebt"`
}
