package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditFields holds standard audit columns shared by all tables.
type AuditFields struct {
	CreatedAt     time.Time `db:"created_at"`
	CreatedBy     string    `db:"created_by"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
	LastUpdatedBy string    `db:"last_updated_by"`
}

// Account is the accounts table row. ParentAccountID, CustomerID and BranchID
// are nullable foreign keys stored as empty strings in Go.
type Account struct {
	AccountID         string          `db:"account_id"`
	Code              string          `db:"code"`
	Name              string          `db:"name"`
	AccountType       string          `db:"account_type"`
	ParentAccountID   string          `db:"parent_account_id"`
	Description       string          `db:"description"`
	OpeningBalance    decimal.Decimal `db:"opening_balance"`
	CurrentBalance    decimal.Decimal `db:"current_balance"`
	IsActive          bool            `db:"is_active"`
	AllowTransactions bool            `db:"allow_transactions"`
	CustomerID        string          `db:"customer_id"`
	BranchID          string          `db:"branch_id"`
	AuditFields
}
