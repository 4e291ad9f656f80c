package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
)

var (
	ErrAccountCycle    = errors.New("account cannot be its own ancestor")
	ErrUnknownCategory = errors.New("unknown account category")
)

// maxTreeDepth bounds ancestor walks. The chart of accounts is shallow in
// practice; hitting this limit means the parent chain is corrupt.
const maxTreeDepth = 64

// AccountService implements the account directory and the balance calculator
// surface over it.
type AccountService struct {
	accountRepo portsrepo.AccountRepository
	defaults    domain.DefaultAccounts
}

// NewAccountService creates a new AccountService.
func NewAccountService(accountRepo portsrepo.AccountRepository, defaults domain.DefaultAccounts) *AccountService {
	return &AccountService{accountRepo: accountRepo, defaults: defaults}
}

var _ portssvc.AccountSvcFacade = (*AccountService)(nil)

// CreateAccount validates and persists a new chart-of-accounts node.
// The code is trimmed before the uniqueness check.
func (s *AccountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, actor string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: account code must not be empty", apperrors.ErrValidation)
	}
	if !domain.ValidCategory(req.AccountType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, req.AccountType)
	}

	parentID := ""
	if req.ParentAccountID != nil && *req.ParentAccountID != "" {
		parent, err := s.accountRepo.FindAccountByID(ctx, *req.ParentAccountID)
		if err != nil {
			return nil, fmt.Errorf("parent account lookup failed: %w", err)
		}
		parentID = parent.AccountID
	}

	allowTransactions := true
	if req.AllowTransactions != nil {
		allowTransactions = *req.AllowTransactions
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:         uuid.NewString(),
		Code:              code,
		Name:              req.Name,
		AccountType:       req.AccountType,
		ParentAccountID:   parentID,
		Description:       req.Description,
		OpeningBalance:    req.OpeningBalance,
		CurrentBalance:    req.OpeningBalance,
		IsActive:          true,
		AllowTransactions: allowTransactions,
		CustomerID:        req.CustomerID,
		BranchID:          req.BranchID,
		AuditFields:       domain.NewAuditFields(actor, now),
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: account code %q already exists", apperrors.ErrDuplicate, code)
		}
		logger.Error("Failed to save account", slog.String("code", code), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID), slog.String("code", code))
	return &account, nil
}

// GetAccountByID retrieves one account.
func (s *AccountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accountRepo.FindAccountByID(ctx, accountID)
}

// GetAccountByCode retrieves one account by its unique code.
func (s *AccountService) GetAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	return s.accountRepo.FindAccountByCode(ctx, strings.TrimSpace(code))
}

// GetAccountsByIDs retrieves a batch of accounts keyed by ID.
func (s *AccountService) GetAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	return s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
}

// ListAccounts retrieves a page of accounts.
func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.accountRepo.ListAccounts(ctx, limit, offset)
}

// ListChildren retrieves the direct children of an account in the directory
// tree. The parent must exist.
func (s *AccountService) ListChildren(ctx context.Context, parentAccountID string) ([]domain.Account, error) {
	if _, err := s.accountRepo.FindAccountByID(ctx, parentAccountID); err != nil {
		return nil, err
	}
	return s.accountRepo.ListChildren(ctx, parentAccountID)
}

// UpdateAccount applies partial updates. Re-parenting runs the ancestor-walk
// cycle check before anything is persisted.
func (s *AccountService) UpdateAccount(ctx context.Context, accountID string, req dto.UpdateAccountRequest, actor string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	updated := false
	if req.Name != nil {
		account.Name = *req.Name
		updated = true
	}
	if req.Description != nil {
		account.Description = *req.Description
		updated = true
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
		updated = true
	}
	if req.AllowTransactions != nil {
		account.AllowTransactions = *req.AllowTransactions
		updated = true
	}
	if req.ParentAccountID != nil {
		newParentID := *req.ParentAccountID
		if newParentID != account.ParentAccountID {
			if err := s.checkNoCycle(ctx, accountID, newParentID); err != nil {
				return nil, err
			}
			account.ParentAccountID = newParentID
			updated = true
		}
	}

	if !updated {
		return account, nil
	}

	account.Touch(actor, time.Now().UTC())
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		logger.Error("Failed to update account", slog.String("account_id", accountID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

// checkNoCycle walks the ancestor chain of the proposed parent; encountering
// the account itself means the reassignment would create a cycle.
func (s *AccountService) checkNoCycle(ctx context.Context, accountID, newParentID string) error {
	current := newParentID
	for depth := 0; current != ""; depth++ {
		if depth >= maxTreeDepth {
			return fmt.Errorf("%w: parent chain exceeds depth %d", apperrors.ErrValidation, maxTreeDepth)
		}
		if current == accountID {
			return fmt.Errorf("%w: account %s", ErrAccountCycle, accountID)
		}
		parent, err := s.accountRepo.FindAccountByID(ctx, current)
		if err != nil {
			return fmt.Errorf("ancestor lookup failed: %w", err)
		}
		current = parent.ParentAccountID
	}
	return nil
}

// DeactivateAccount soft-disables an account; existing posted lines keep it
// in the history.
func (s *AccountService) DeactivateAccount(ctx context.Context, accountID string, actor string) error {
	return s.accountRepo.DeactivateAccount(ctx, accountID, actor, time.Now().UTC())
}

// DeleteAccount removes an account. Accounts referenced by transaction lines
// are protected and fail with apperrors.ErrReferenced.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	return s.accountRepo.DeleteAccount(ctx, accountID)
}

// GetBalance returns the cached balance, or an authoritative recomputation
// from the posted line history when recompute is set.
func (s *AccountService) GetBalance(ctx context.Context, accountID string, recompute bool) (decimal.Decimal, error) {
	if recompute {
		return s.accountRepo.RecomputedBalance(ctx, accountID)
	}
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.CurrentBalance, nil
}

// UpdateBalance refreshes the cached balance from the posted line history.
func (s *AccountService) UpdateBalance(ctx context.Context, accountID string, actor string) error {
	return s.accountRepo.RefreshCachedBalances(ctx, []string{accountID}, actor, time.Now().UTC())
}

// FullPath walks the ancestor chain and joins account names root-first.
func (s *AccountService) FullPath(ctx context.Context, accountID string) (string, error) {
	names, err := s.ancestorNames(ctx, accountID)
	if err != nil {
		return "", err
	}
	return strings.Join(names, " / "), nil
}

// Level returns the account's depth in the tree; root accounts are level 0.
func (s *AccountService) Level(ctx context.Context, accountID string) (int, error) {
	names, err := s.ancestorNames(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return len(names) - 1, nil
}

func (s *AccountService) ancestorNames(ctx context.Context, accountID string) ([]string, error) {
	var names []string
	current := accountID
	for depth := 0; current != ""; depth++ {
		if depth >= maxTreeDepth {
			return nil, fmt.Errorf("parent chain exceeds depth %d for account %s", maxTreeDepth, accountID)
		}
		account, err := s.accountRepo.FindAccountByID(ctx, current)
		if err != nil {
			return nil, err
		}
		names = append([]string{account.Name}, names...)
		current = account.ParentAccountID
	}
	return names, nil
}

// GetOrCreateCustomerAccount resolves the customer's receivable account,
// creating it under the receivables root with a code derived from the
// customer ID. Concurrent first access is resolved through the unique code
// constraint: the loser re-reads the winner's row.
func (s *AccountService) GetOrCreateCustomerAccount(ctx context.Context, customerID string, actor string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountRepo.FindAccountByCustomerID(ctx, customerID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	code := fmt.Sprintf("%s-%s", s.defaults.ReceivableRootCode, customerID)
	parentID := ""
	if parent, perr := s.accountRepo.FindAccountByCode(ctx, s.defaults.ReceivableRootCode); perr == nil {
		parentID = parent.AccountID
	}

	now := time.Now().UTC()
	created := domain.Account{
		AccountID:         uuid.NewString(),
		Code:              code,
		Name:              fmt.Sprintf("Customer %s receivable", customerID),
		AccountType:       domain.Asset,
		ParentAccountID:   parentID,
		OpeningBalance:    decimal.Zero,
		CurrentBalance:    decimal.Zero,
		IsActive:          true,
		AllowTransactions: true,
		CustomerID:        customerID,
		AuditFields:       domain.NewAuditFields(actor, now),
	}

	if err := s.accountRepo.SaveAccount(ctx, created); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Lost the creation race; the winner's row is authoritative.
			return s.accountRepo.FindAccountByCustomerID(ctx, customerID)
		}
		logger.Error("Failed to create customer account", slog.String("customer_id", customerID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create customer account: %w", err)
	}

	logger.Info("Customer receivable account created", slog.String("customer_id", customerID), slog.String("code", code))
	return &created, nil
}
