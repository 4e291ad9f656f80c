package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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
	ErrInsufficientAdvance   = errors.New("amount exceeds the advance's remaining amount")
	ErrAdvanceNotConsumable  = errors.New("advance is not in a consumable state")
	ErrNonPositiveAmount     = errors.New("amount must be positive")
	ErrAdvanceAlreadyClosed  = errors.New("advance is already refunded or cancelled")
	ErrDefaultAccountMissing = errors.New("default ledger account is not configured in the chart of accounts")
)

const advanceNumberPrefix = "ADV"

// AdvanceService implements the customer advance sub-ledger. Every mutation
// posts a companion transaction through the same contract as the posting
// engine, inside the same unit of work as the advance mutation.
type AdvanceService struct {
	advanceRepo portsrepo.AdvanceRepository
	txnRepo     portsrepo.TransactionRepository
	accountSvc  portssvc.AccountSvcFacade
	defaults    domain.DefaultAccounts
}

// NewAdvanceService creates a new AdvanceService.
func NewAdvanceService(advanceRepo portsrepo.AdvanceRepository, txnRepo portsrepo.TransactionRepository, accountSvc portssvc.AccountSvcFacade, defaults domain.DefaultAccounts) *AdvanceService {
	return &AdvanceService{
		advanceRepo: advanceRepo,
		txnRepo:     txnRepo,
		accountSvc:  accountSvc,
		defaults:    defaults,
	}
}

var _ portssvc.AdvanceSvcFacade = (*AdvanceService)(nil)

// IssueAdvance records a customer prepayment: the advance itself plus a posted
// companion transaction debiting cash/bank and crediting the customer-advances
// liability account.
func (s *AdvanceService) IssueAdvance(ctx context.Context, req dto.IssueAdvanceRequest, actor string) (*domain.CustomerAdvance, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, req.Amount)
	}

	fundsAccount, err := s.postableAccountByCode(ctx, s.defaults.CashOrBank(req.PaymentMethod))
	if err != nil {
		return nil, err
	}
	liabilityAccount, err := s.postableAccountByCode(ctx, s.defaults.AdvanceLiabilityCode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	date := now
	if req.Date != nil {
		date = *req.Date
	}

	advanceNumber, err := s.txnRepo.NextTransactionNumber(ctx, advanceNumberPrefix, date)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve advance number: %w", err)
	}

	advance := domain.CustomerAdvance{
		AdvanceID:       uuid.NewString(),
		AdvanceNumber:   advanceNumber,
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		RemainingAmount: req.Amount,
		Status:          domain.AdvanceActive,
		PaymentMethod:   req.PaymentMethod,
		ReceiptNumber:   req.ReceiptNumber,
		AuditFields:     domain.NewAuditFields(actor, now),
	}

	companion, err := s.buildCompanion(ctx, domain.TypeAdvance, date, actor, now,
		fmt.Sprintf("Advance %s received from customer %s", advanceNumber, req.CustomerID),
		req.CustomerID, "", /* orderID */
		[]companionLine{
			{accountID: fundsAccount.AccountID, debit: req.Amount},
			{accountID: liabilityAccount.AccountID, credit: req.Amount},
		})
	if err != nil {
		return nil, err
	}
	advance.TransactionID = companion.TransactionID

	if err := s.advanceRepo.CreateAdvance(ctx, advance, *companion); err != nil {
		logger.Error("Failed to create advance", slog.String("customer_id", req.CustomerID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create advance: %w", err)
	}

	logger.Info("Advance issued",
		slog.String("advance_id", advance.AdvanceID),
		slog.String("advance_number", advanceNumber),
		slog.String("amount", req.Amount.String()),
	)
	return &advance, nil
}

// GetAdvance retrieves one advance.
func (s *AdvanceService) GetAdvance(ctx context.Context, advanceID string) (*domain.CustomerAdvance, error) {
	return s.advanceRepo.FindAdvanceByID(ctx, advanceID)
}

// ListAdvancesByCustomer retrieves all advances of one customer.
func (s *AdvanceService) ListAdvancesByCustomer(ctx context.Context, customerID string) ([]domain.CustomerAdvance, error) {
	return s.advanceRepo.ListAdvancesByCustomer(ctx, customerID)
}

// GetUsages retrieves the append-only consumption trail of an advance.
func (s *AdvanceService) GetUsages(ctx context.Context, advanceID string) ([]domain.AdvanceUsage, error) {
	return s.advanceRepo.FindUsagesByAdvanceID(ctx, advanceID)
}

// UseAmount consumes part of an advance against an order. The remaining-amount
// check, the decrement, the usage record and the companion transaction
// (reclassifying the liability into the customer's receivable) commit
// together; the repository locks the advance row so concurrent consumption
// cannot overdraw it.
func (s *AdvanceService) UseAmount(ctx context.Context, advanceID string, req dto.UseAdvanceRequest, actor string) (decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.Amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, req.Amount)
	}

	advance, err := s.advanceRepo.FindAdvanceByID(ctx, advanceID)
	if err != nil {
		return decimal.Zero, err
	}
	if !advance.Consumable() {
		return decimal.Zero, fmt.Errorf("%w: advance %s has status %s", ErrAdvanceNotConsumable, advanceID, advance.Status)
	}
	if req.Amount.GreaterThan(advance.RemainingAmount) {
		return decimal.Zero, fmt.Errorf("%w: requested %s, remaining %s", ErrInsufficientAdvance, req.Amount, advance.RemainingAmount)
	}

	liabilityAccount, err := s.postableAccountByCode(ctx, s.defaults.AdvanceLiabilityCode)
	if err != nil {
		return decimal.Zero, err
	}
	receivable, err := s.accountSvc.GetOrCreateCustomerAccount(ctx, advance.CustomerID, actor)
	if err != nil {
		return decimal.Zero, err
	}

	now := time.Now().UTC()
	usage := domain.AdvanceUsage{
		UsageID:   uuid.NewString(),
		AdvanceID: advanceID,
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		CreatedAt: now,
		CreatedBy: actor,
	}

	companion, err := s.buildCompanion(ctx, domain.TypePayment, now, actor, now,
		fmt.Sprintf("Advance %s applied", advance.AdvanceNumber),
		advance.CustomerID, req.OrderID,
		[]companionLine{
			{accountID: liabilityAccount.AccountID, debit: req.Amount},
			{accountID: receivable.AccountID, credit: req.Amount},
		})
	if err != nil {
		return decimal.Zero, err
	}

	remaining, err := s.advanceRepo.ConsumeAmount(ctx, advanceID, usage, *companion)
	if err != nil {
		if errors.Is(err, ErrInsufficientAdvance) || errors.Is(err, apperrors.ErrConflict) {
			return decimal.Zero, err
		}
		logger.Error("Failed to consume advance", slog.String("advance_id", advanceID), slog.String("error", err.Error()))
		return decimal.Zero, fmt.Errorf("failed to consume advance %s: %w", advanceID, err)
	}

	logger.Info("Advance consumed",
		slog.String("advance_id", advanceID),
		slog.String("amount", req.Amount.String()),
		slog.String("remaining", remaining.String()),
	)
	return remaining, nil
}

// RefundAdvance returns the remaining amount to the customer and closes the
// advance with the explicit REFUNDED override.
func (s *AdvanceService) RefundAdvance(ctx context.Context, advanceID string, actor string) error {
	return s.closeAdvance(ctx, advanceID, domain.AdvanceRefunded, actor)
}

// CancelAdvance voids the advance with the explicit CANCELLED override,
// reversing the remaining liability.
func (s *AdvanceService) CancelAdvance(ctx context.Context, advanceID string, actor string) error {
	return s.closeAdvance(ctx, advanceID, domain.AdvanceCancelled, actor)
}

func (s *AdvanceService) closeAdvance(ctx context.Context, advanceID string, status domain.AdvanceStatus, actor string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	advance, err := s.advanceRepo.FindAdvanceByID(ctx, advanceID)
	if err != nil {
		return err
	}
	if advance.Status == domain.AdvanceRefunded || advance.Status == domain.AdvanceCancelled {
		return fmt.Errorf("%w: advance %s has status %s", ErrAdvanceAlreadyClosed, advanceID, advance.Status)
	}
	if !advance.RemainingAmount.IsPositive() {
		return fmt.Errorf("%w: advance %s has nothing remaining", ErrAdvanceNotConsumable, advanceID)
	}

	liabilityAccount, err := s.postableAccountByCode(ctx, s.defaults.AdvanceLiabilityCode)
	if err != nil {
		return err
	}
	fundsAccount, err := s.postableAccountByCode(ctx, s.defaults.CashOrBank(advance.PaymentMethod))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	verb := "refunded"
	if status == domain.AdvanceCancelled {
		verb = "cancelled"
	}
	companion, err := s.buildCompanion(ctx, domain.TypeRefund, now, actor, now,
		fmt.Sprintf("Advance %s %s", advance.AdvanceNumber, verb),
		advance.CustomerID, "",
		[]companionLine{
			{accountID: liabilityAccount.AccountID, debit: advance.RemainingAmount},
			{accountID: fundsAccount.AccountID, credit: advance.RemainingAmount},
		})
	if err != nil {
		return err
	}

	if err := s.advanceRepo.CloseAdvance(ctx, advanceID, status, *companion, actor, now); err != nil {
		logger.Error("Failed to close advance", slog.String("advance_id", advanceID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to close advance %s: %w", advanceID, err)
	}

	logger.Info("Advance closed", slog.String("advance_id", advanceID), slog.String("status", string(status)))
	return nil
}

type companionLine struct {
	accountID string
	debit     decimal.Decimal
	credit    decimal.Decimal
}

// buildCompanion assembles a transaction already in POSTED state; the advance
// repository commits it atomically with the advance mutation and refreshes the
// affected cached balances.
func (s *AdvanceService) buildCompanion(ctx context.Context, txnType domain.TransactionType, date time.Time, actor string, now time.Time, description, customerID, orderID string, lines []companionLine) (*domain.Transaction, error) {
	transactionID := uuid.NewString()
	number, err := s.txnRepo.NextTransactionNumber(ctx, numberPrefixes[txnType], date)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve companion number: %w", err)
	}

	postedAt := now
	txn := domain.Transaction{
		TransactionID:     transactionID,
		TransactionNumber: number,
		TransactionType:   txnType,
		Status:            domain.Posted,
		Date:              date,
		Description:       description,
		CustomerID:        customerID,
		OrderID:           orderID,
		PostedBy:          actor,
		PostedAt:          &postedAt,
		AuditFields:       domain.NewAuditFields(actor, now),
	}
	txn.Lines = make([]domain.TransactionLine, len(lines))
	for i, cl := range lines {
		txn.Lines[i] = domain.TransactionLine{
			LineID:        uuid.NewString(),
			TransactionID: transactionID,
			AccountID:     cl.accountID,
			LineNo:        i + 1,
			Debit:         cl.debit,
			Credit:        cl.credit,
			AuditFields:   domain.NewAuditFields(actor, now),
		}
	}
	txn.CalculateTotals()
	return &txn, nil
}

func (s *AdvanceService) postableAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	account, err := s.accountSvc.GetAccountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: code %q", ErrDefaultAccountMissing, code)
		}
		return nil, err
	}
	if !account.Postable() {
		return nil, fmt.Errorf("%w: account %s", ErrPostingsNotAllowed, account.Code)
	}
	return account, nil
}
