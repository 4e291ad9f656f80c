package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	"github.com/zakeetahawi/ledgercore/internal/dto"
)

// ServiceContainer aggregates the service facades handed to the HTTP layer.
type ServiceContainer struct {
	Account   AccountSvcFacade
	Posting   PostingSvcFacade
	Advance   AdvanceSvcFacade
	Summary   SummarySvcFacade
	Event     EventSvcFacade
	Reporting ReportingSvcFacade
	Audit     AuditSvcFacade
}

// AccountSvcFacade is the account directory surface consumed by handlers and
// by the other core services.
type AccountSvcFacade interface {
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, actor string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	GetAccountByCode(ctx context.Context, code string) (*domain.Account, error)
	GetAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	ListChildren(ctx context.Context, parentAccountID string) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, accountID string, req dto.UpdateAccountRequest, actor string) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, accountID string, actor string) error
	DeleteAccount(ctx context.Context, accountID string) error

	// GetBalance returns the cached balance, or the authoritative
	// recomputation from the line history when recompute is true.
	GetBalance(ctx context.Context, accountID string, recompute bool) (decimal.Decimal, error)
	// UpdateBalance refreshes the cached balance from the posted line history.
	UpdateBalance(ctx context.Context, accountID string, actor string) error

	FullPath(ctx context.Context, accountID string) (string, error)
	Level(ctx context.Context, accountID string) (int, error)

	// GetOrCreateCustomerAccount resolves the customer's receivable account,
	// creating it with a deterministic code on first use.
	GetOrCreateCustomerAccount(ctx context.Context, customerID string, actor string) (*domain.Account, error)
}

// PostingSvcFacade is the posting engine surface.
type PostingSvcFacade interface {
	CreateDraft(ctx context.Context, req dto.CreateTransactionRequest, actor string) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error)
	ReplaceDraftLines(ctx context.Context, transactionID string, req dto.ReplaceLinesRequest, actor string) (*domain.Transaction, error)
	DeleteDraft(ctx context.Context, transactionID string) error

	Post(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error)
	CreateReversal(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error)
	Cancel(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error)
}

// AdvanceSvcFacade is the customer advance sub-ledger surface.
type AdvanceSvcFacade interface {
	IssueAdvance(ctx context.Context, req dto.IssueAdvanceRequest, actor string) (*domain.CustomerAdvance, error)
	GetAdvance(ctx context.Context, advanceID string) (*domain.CustomerAdvance, error)
	ListAdvancesByCustomer(ctx context.Context, customerID string) ([]domain.CustomerAdvance, error)
	GetUsages(ctx context.Context, advanceID string) ([]domain.AdvanceUsage, error)

	UseAmount(ctx context.Context, advanceID string, req dto.UseAdvanceRequest, actor string) (decimal.Decimal, error)
	RefundAdvance(ctx context.Context, advanceID string, actor string) error
	CancelAdvance(ctx context.Context, advanceID string, actor string) error
}

// SummarySvcFacade is the customer financial summary read-model surface.
type SummarySvcFacade interface {
	// GetSummary lazily creates the summary on first access.
	GetSummary(ctx context.Context, customerID string) (*domain.CustomerFinancialSummary, error)
	Refresh(ctx context.Context, customerID string) (*domain.CustomerFinancialSummary, error)
	RefreshAll(ctx context.Context) (int, error)
}

// EventSvcFacade handles inbound domain events from order/payment capture.
// Both handlers are idempotent: re-delivery of an already-recorded order or
// payment returns the existing transaction without a second posting.
type EventSvcFacade interface {
	OrderCreated(ctx context.Context, ev dto.OrderCreatedEvent, actor string) (*domain.Transaction, bool, error)
	PaymentReceived(ctx context.Context, ev dto.PaymentReceivedEvent, actor string) (*domain.Transaction, bool, error)
}

// ReportingSvcFacade is the outbound query surface.
type ReportingSvcFacade interface {
	TrialBalance(ctx context.Context, req dto.TrialBalanceRequest) (*domain.TrialBalance, error)
	AccountStatement(ctx context.Context, accountID string, req dto.StatementRequest) (*domain.AccountStatement, error)
	CustomerStatement(ctx context.Context, customerID string, req dto.StatementRequest) (*domain.AccountStatement, error)
}

// AuditSvcFacade is the reconciliation surface. Verification never mutates
// state unless fix is set.
type AuditSvcFacade interface {
	FindUnbalancedTransactions(ctx context.Context) ([]domain.UnbalancedTransaction, error)
	VerifyAccountBalances(ctx context.Context, fix bool, actor string) ([]domain.BalanceMismatch, error)
	VerifyCustomerBalances(ctx context.Context, fix bool) ([]domain.SummaryMismatch, error)
	CountZeroAmountLines(ctx context.Context) (int64, error)
}
