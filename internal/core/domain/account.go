package domain

import (
	"github.com/shopspring/decimal"
)

// Account represents one node in the chart of accounts.
// Accounts form a tree via ParentAccountID; CurrentBalance is a cache over the
// posted line history and is recomputable at any time from OpeningBalance plus
// the signed sum of posted lines.
type Account struct {
	AccountID         string          `json:"accountID"`
	Code              string          `json:"code"` // unique, trimmed, non-empty
	Name              string          `json:"name"`
	AccountType       AccountCategory `json:"accountType"`
	ParentAccountID   string          `json:"parentAccountID"` // empty when root
	Description       string          `json:"description"`
	OpeningBalance    decimal.Decimal `json:"openingBalance"`
	CurrentBalance    decimal.Decimal `json:"currentBalance"` // cached projection
	IsActive          bool            `json:"isActive"`
	AllowTransactions bool            `json:"allowTransactions"`
	CustomerID        string          `json:"customerID"` // optional 1:1 link
	BranchID          string          `json:"branchID"`   // optional
	AuditFields
}

// NormalBalance returns the normal balance side of this account's category.
func (a Account) NormalBalance() NormalBalance {
	side, _ := NormalBalanceFor(a.AccountType)
	return side
}

// Postable reports whether postings against this account are permitted.
func (a Account) Postable() bool {
	return a.IsActive && a.AllowTransactions
}
