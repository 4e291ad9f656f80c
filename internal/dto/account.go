package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Code              string                 `json:"code" binding:"required"`
	Name              string                 `json:"name" binding:"required"`
	AccountType       domain.AccountCategory `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentAccountID   *string                `json:"parentAccountID"`
	Description       string                 `json:"description"`
	OpeningBalance    decimal.Decimal        `json:"openingBalance"`
	AllowTransactions *bool                  `json:"allowTransactions"` // defaults to true
	CustomerID        string                 `json:"customerID"`
	BranchID          string                 `json:"branchID"`
}

// UpdateAccountRequest defines the fields allowed to change on an account.
// Pointers distinguish "not provided" from zero values.
type UpdateAccountRequest struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	ParentAccountID   *string `json:"parentAccountID"` // re-parent; cycle-checked
	IsActive          *bool   `json:"isActive"`
	AllowTransactions *bool   `json:"allowTransactions"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID         string                 `json:"accountID"`
	Code              string                 `json:"code"`
	Name              string                 `json:"name"`
	AccountType       domain.AccountCategory `json:"accountType"`
	NormalBalance     domain.NormalBalance   `json:"normalBalance"`
	ParentAccountID   string                 `json:"parentAccountID,omitempty"`
	Description       string                 `json:"description,omitempty"`
	OpeningBalance    decimal.Decimal        `json:"openingBalance"`
	CurrentBalance    decimal.Decimal        `json:"currentBalance"`
	IsActive          bool                   `json:"isActive"`
	AllowTransactions bool                   `json:"allowTransactions"`
	CustomerID        string                 `json:"customerID,omitempty"`
	BranchID          string                 `json:"branchID,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	LastUpdatedAt     time.Time              `json:"lastUpdatedAt"`
}

// ToAccountResponse converts a domain.Account to its response DTO.
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:         acc.AccountID,
		Code:              acc.Code,
		Name:              acc.Name,
		AccountType:       acc.AccountType,
		NormalBalance:     acc.NormalBalance(),
		ParentAccountID:   acc.ParentAccountID,
		Description:       acc.Description,
		OpeningBalance:    acc.OpeningBalance,
		CurrentBalance:    acc.CurrentBalance,
		IsActive:          acc.IsActive,
		AllowTransactions: acc.AllowTransactions,
		CustomerID:        acc.CustomerID,
		BranchID:          acc.BranchID,
		CreatedAt:         acc.CreatedAt,
		LastUpdatedAt:     acc.LastUpdatedAt,
	}
}

// ToListAccountResponse converts a slice of accounts.
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i := range accounts {
		res[i] = ToAccountResponse(&accounts[i])
	}
	return res
}

// AccountBalanceResponse is returned by the balance endpoint.
type AccountBalanceResponse struct {
	AccountID  string          `json:"accountID"`
	Code       string          `json:"code"`
	Balance    decimal.Decimal `json:"balance"`
	Recomputed bool            `json:"recomputed"`
}

// ListAccountsParams defines query parameters for listing accounts.
type ListAccountsParams struct {
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}
