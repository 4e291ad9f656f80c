package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
)

// EventService turns inbound order/payment capture events into postings.
// Both handlers are idempotent: the transaction linked to the order or payment
// is the dedup key, so re-delivery returns the existing transaction.
type EventService struct {
	txnRepo    portsrepo.TransactionRepository
	orderRepo  portsrepo.OrderRepository
	accountSvc portssvc.AccountSvcFacade
	postingSvc portssvc.PostingSvcFacade
	summarySvc portssvc.SummarySvcFacade
	defaults   domain.DefaultAccounts
}

// NewEventService creates a new EventService.
func NewEventService(txnRepo portsrepo.TransactionRepository, orderRepo portsrepo.OrderRepository, accountSvc portssvc.AccountSvcFacade, postingSvc portssvc.PostingSvcFacade, summarySvc portssvc.SummarySvcFacade, defaults domain.DefaultAccounts) *EventService {
	return &EventService{
		txnRepo:    txnRepo,
		orderRepo:  orderRepo,
		accountSvc: accountSvc,
		postingSvc: postingSvc,
		summarySvc: summarySvc,
		defaults:   defaults,
	}
}

var _ portssvc.EventSvcFacade = (*EventService)(nil)

// OrderCreated posts the order's receivable: debit the customer's receivable
// account, credit revenue, for the order's final price. The second return
// value reports whether this delivery created the transaction.
func (e *EventService) OrderCreated(ctx context.Context, ev dto.OrderCreatedEvent, actor string) (*domain.Transaction, bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if existing, err := e.txnRepo.FindTransactionByOrderID(ctx, ev.OrderID); err == nil {
		logger.Info("Order already recorded, skipping", slog.String("order_id", ev.OrderID))
		existing, err = e.ensurePosted(ctx, existing, actor)
		return existing, false, err
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	if !ev.FinalPrice.IsPositive() {
		return nil, false, fmt.Errorf("%w: order final price must be positive, got %s", apperrors.ErrValidation, ev.FinalPrice)
	}

	receivable, err := e.accountSvc.GetOrCreateCustomerAccount(ctx, ev.CustomerID, actor)
	if err != nil {
		return nil, false, err
	}
	revenue, err := e.accountSvc.GetAccountByCode(ctx, e.defaults.RevenueCode)
	if err != nil {
		return nil, false, fmt.Errorf("revenue account lookup failed: %w", err)
	}

	if _, err := e.orderRepo.SaveOrder(ctx, domain.Order{
		OrderID:    ev.OrderID,
		CustomerID: ev.CustomerID,
		FinalPrice: ev.FinalPrice,
		OrderDate:  ev.OrderDate,
		BranchID:   ev.BranchID,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return nil, false, fmt.Errorf("failed to record order: %w", err)
	}

	txn, created, err := e.postEvent(ctx, dto.CreateTransactionRequest{
		TransactionType: domain.TypeInvoice,
		Date:            ev.OrderDate,
		Description:     fmt.Sprintf("Order %s", ev.OrderID),
		Reference:       ev.OrderID,
		CustomerID:      ev.CustomerID,
		OrderID:         ev.OrderID,
		BranchID:        ev.BranchID,
		Lines: []dto.TransactionLineRequest{
			{AccountID: receivable.AccountID, Debit: ev.FinalPrice},
			{AccountID: revenue.AccountID, Credit: ev.FinalPrice},
		},
	}, actor, func() (*domain.Transaction, error) {
		return e.txnRepo.FindTransactionByOrderID(ctx, ev.OrderID)
	})
	if err != nil {
		return nil, false, err
	}

	if _, err := e.summarySvc.Refresh(ctx, ev.CustomerID); err != nil {
		// The summary is an eventually-consistent read model; a failed refresh
		// does not invalidate the posting.
		logger.Warn("Summary refresh after order failed", slog.String("customer_id", ev.CustomerID), slog.String("error", err.Error()))
	}
	return txn, created, nil
}

// PaymentReceived posts the payment: debit cash/bank, credit the customer's
// receivable account.
func (e *EventService) PaymentReceived(ctx context.Context, ev dto.PaymentReceivedEvent, actor string) (*domain.Transaction, bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if existing, err := e.txnRepo.FindTransactionByPaymentID(ctx, ev.PaymentID); err == nil {
		logger.Info("Payment already recorded, skipping", slog.String("payment_id", ev.PaymentID))
		existing, err = e.ensurePosted(ctx, existing, actor)
		return existing, false, err
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	if !ev.Amount.IsPositive() {
		return nil, false, fmt.Errorf("%w: payment amount must be positive, got %s", apperrors.ErrValidation, ev.Amount)
	}

	fundsAccount, err := e.accountSvc.GetAccountByCode(ctx, e.defaults.CashOrBank(ev.Method))
	if err != nil {
		return nil, false, fmt.Errorf("funds account lookup failed: %w", err)
	}
	receivable, err := e.accountSvc.GetOrCreateCustomerAccount(ctx, ev.CustomerID, actor)
	if err != nil {
		return nil, false, err
	}

	if _, err := e.orderRepo.SavePayment(ctx, domain.Payment{
		PaymentID:   ev.PaymentID,
		CustomerID:  ev.CustomerID,
		OrderID:     ev.OrderID,
		Amount:      ev.Amount,
		Method:      ev.Method,
		PaymentDate: ev.PaymentDate,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return nil, false, fmt.Errorf("failed to record payment: %w", err)
	}

	txn, created, err := e.postEvent(ctx, dto.CreateTransactionRequest{
		TransactionType: domain.TypePayment,
		Date:            ev.PaymentDate,
		Description:     fmt.Sprintf("Payment %s", ev.PaymentID),
		Reference:       ev.PaymentID,
		CustomerID:      ev.CustomerID,
		OrderID:         ev.OrderID,
		PaymentID:       ev.PaymentID,
		Lines: []dto.TransactionLineRequest{
			{AccountID: fundsAccount.AccountID, Debit: ev.Amount},
			{AccountID: receivable.AccountID, Credit: ev.Amount},
		},
	}, actor, func() (*domain.Transaction, error) {
		return e.txnRepo.FindTransactionByPaymentID(ctx, ev.PaymentID)
	})
	if err != nil {
		return nil, false, err
	}

	if _, err := e.summarySvc.Refresh(ctx, ev.CustomerID); err != nil {
		logger.Warn("Summary refresh after payment failed", slog.String("customer_id", ev.CustomerID), slog.String("error", err.Error()))
	}
	return txn, created, nil
}

// postEvent creates and immediately posts the event's transaction. A unique
// index on the order/payment link makes concurrent duplicate deliveries
// collapse onto the winner's transaction.
func (e *EventService) postEvent(ctx context.Context, req dto.CreateTransactionRequest, actor string, findExisting func() (*domain.Transaction, error)) (*domain.Transaction, bool, error) {
	draft, err := e.postingSvc.CreateDraft(ctx, req, actor)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			if existing, ferr := findExisting(); ferr == nil {
				existing, ferr = e.ensurePosted(ctx, existing, actor)
				return existing, false, ferr
			}
		}
		return nil, false, err
	}

	posted, err := e.postingSvc.Post(ctx, draft.TransactionID, actor)
	if err != nil {
		return nil, false, err
	}
	return posted, true, nil
}

// ensurePosted posts a transaction left in draft by an earlier delivery that
// failed between draft creation and posting. A concurrent delivery may win
// the post, which counts as success.
func (e *EventService) ensurePosted(ctx context.Context, txn *domain.Transaction, actor string) (*domain.Transaction, error) {
	if txn.Status != domain.Draft {
		return txn, nil
	}
	posted, err := e.postingSvc.Post(ctx, txn.TransactionID, actor)
	if err != nil {
		if errors.Is(err, ErrAlreadyPosted) {
			return e.postingSvc.GetTransaction(ctx, txn.TransactionID)
		}
		return nil, err
	}
	return posted, nil
}
