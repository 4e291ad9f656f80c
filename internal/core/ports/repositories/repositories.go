package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
)

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	AccountRepo     AccountRepository
	TransactionRepo TransactionRepository
	AdvanceRepo     AdvanceRepository
	SummaryRepo     SummaryRepository
	OrderRepo       OrderRepository
	ReportingRepo   ReportingRepository
}

// AccountRepository defines the persistence operations for the chart of accounts.
type AccountRepository interface {
	SaveAccount(ctx context.Context, account domain.Account) error
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	FindAccountByCode(ctx context.Context, code string) (*domain.Account, error)
	FindAccountByCustomerID(ctx context.Context, customerID string) (*domain.Account, error)
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	ListChildren(ctx context.Context, parentAccountID string) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, account domain.Account) error
	DeactivateAccount(ctx context.Context, accountID string, actor string, now time.Time) error
	// DeleteAccount removes an account. It fails with apperrors.ErrReferenced
	// when transaction lines still reference the account.
	DeleteAccount(ctx context.Context, accountID string) error

	// RecomputedBalance derives the authoritative balance from opening balance
	// plus the signed sum of posted lines. Never reads the cache.
	RecomputedBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	// RefreshCachedBalances sets current_balance to its recomputation for each
	// account, in one statement per account inside one transaction.
	RefreshCachedBalances(ctx context.Context, accountIDs []string, actor string, now time.Time) error
}

// TransactionRepository defines persistence for transactions and their lines.
// Posting, cancellation, and numbering each run inside a single database
// transaction.
type TransactionRepository interface {
	// NextTransactionNumber reserves the next number in the per-month sequence
	// scope for the given prefix and date. Numbers are never reused.
	NextTransactionNumber(ctx context.Context, prefix string, date time.Time) (string, error)

	SaveDraft(ctx context.Context, txn domain.Transaction) error
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	FindLinesByTransactionID(ctx context.Context, transactionID string) ([]domain.TransactionLine, error)
	FindTransactionByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	FindTransactionByPaymentID(ctx context.Context, paymentID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error)

	// ReplaceDraftLines swaps a draft's line set and totals. Fails with
	// apperrors.ErrConflict when the transaction is not a draft.
	ReplaceDraftLines(ctx context.Context, transactionID string, lines []domain.TransactionLine, totalDebit, totalCredit decimal.Decimal, actor string, now time.Time) error
	// DeleteDraft removes a draft transaction and its lines.
	DeleteDraft(ctx context.Context, transactionID string) error

	// PostTransaction performs the draft -> posted transition. The status flip
	// is a compare-and-set inside the database transaction, so exactly one of
	// two concurrent callers succeeds; the loser gets apperrors.ErrConflict.
	// Cached balances of every affected account are recomputed from posted
	// lines and line running balances are stamped before commit.
	PostTransaction(ctx context.Context, transactionID string, actor string, now time.Time) error

	// CancelTransaction atomically saves and posts the reversal and marks the
	// original transaction cancelled.
	CancelTransaction(ctx context.Context, originalID string, reversal domain.Transaction, actor string, now time.Time) error
}

// AdvanceRepository defines persistence for customer advances and their
// append-only usage trail.
type AdvanceRepository interface {
	// CreateAdvance saves the advance together with its posted companion
	// transaction in one database transaction.
	CreateAdvance(ctx context.Context, advance domain.CustomerAdvance, companion domain.Transaction) error

	FindAdvanceByID(ctx context.Context, advanceID string) (*domain.CustomerAdvance, error)
	ListAdvancesByCustomer(ctx context.Context, customerID string) ([]domain.CustomerAdvance, error)
	FindUsagesByAdvanceID(ctx context.Context, advanceID string) ([]domain.AdvanceUsage, error)

	// ConsumeAmount locks the advance row, verifies the remaining amount,
	// decrements it, recomputes the status, appends the usage record and posts
	// the companion transaction, all in one database transaction. Returns the
	// remaining amount after consumption.
	ConsumeAmount(ctx context.Context, advanceID string, usage domain.AdvanceUsage, companion domain.Transaction) (decimal.Decimal, error)

	// CloseAdvance zeroes the remaining amount with an explicit REFUNDED or
	// CANCELLED override status and posts the companion transaction.
	CloseAdvance(ctx context.Context, advanceID string, status domain.AdvanceStatus, companion domain.Transaction, actor string, now time.Time) error
}

// SummaryRepository defines persistence for the customer financial summary
// read model and the source facts it is derived from.
type SummaryRepository interface {
	FetchCustomerFacts(ctx context.Context, customerID string) (*domain.CustomerFacts, error)
	UpsertSummary(ctx context.Context, summary domain.CustomerFinancialSummary) error
	FindSummaryByCustomerID(ctx context.Context, customerID string) (*domain.CustomerFinancialSummary, error)
	ListSummaryCustomerIDs(ctx context.Context) ([]string, error)
}

// OrderRepository persists the ledger-side mirror of order and payment facts.
type OrderRepository interface {
	// SaveOrder inserts the order mirror row. Returns false without error when
	// the order already exists (idempotent re-delivery).
	SaveOrder(ctx context.Context, order domain.Order) (bool, error)
	SavePayment(ctx context.Context, payment domain.Payment) (bool, error)
}

// ReportingRepository serves the read-only query and audit surface.
type ReportingRepository interface {
	TrialBalance(ctx context.Context, asOf time.Time) (*domain.TrialBalance, error)
	AccountStatement(ctx context.Context, accountID string, from, to time.Time, limit, offset int) ([]domain.StatementLine, error)
	FindUnbalancedTransactions(ctx context.Context) ([]domain.UnbalancedTransaction, error)
	VerifyAccountBalances(ctx context.Context) ([]domain.BalanceMismatch, error)
	VerifyCustomerDebts(ctx context.Context) ([]domain.SummaryMismatch, error)
	CountZeroAmountLines(ctx context.Context) (int64, error)
}
