package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
	"github.com/zakeetahawi/ledgercore/internal/utils/accounting"
)

// Typed posting failures. Each names the precondition that failed so callers
// can react without string matching.
var (
	ErrUnbalanced           = errors.New("transaction debits and credits do not balance")
	ErrInsufficientLines    = errors.New("transaction must have at least two lines")
	ErrAlreadyPosted        = errors.New("transaction is already posted")
	ErrTransactionCancelled = errors.New("transaction is cancelled")
	ErrNotDraft             = errors.New("transaction is not a draft")
	ErrNotPosted            = errors.New("transaction is not posted")
	ErrInactiveAccount      = errors.New("account is inactive")
	ErrPostingsNotAllowed   = errors.New("account does not allow postings")
)

// numberPrefixes maps a transaction type to its number prefix.
var numberPrefixes = map[domain.TransactionType]string{
	domain.TypePayment:    "PAY",
	domain.TypeAdvance:    "ADV",
	domain.TypeInvoice:    "INV",
	domain.TypeRefund:     "REF",
	domain.TypeExpense:    "EXP",
	domain.TypeTransfer:   "TRF",
	domain.TypeAdjustment: "ADJ",
	domain.TypeOpening:    "OPN",
}

// PostingService implements the posting engine state machine over the ledger.
type PostingService struct {
	txnRepo     portsrepo.TransactionRepository
	accountRepo portsrepo.AccountRepository
}

// NewPostingService creates a new PostingService.
func NewPostingService(txnRepo portsrepo.TransactionRepository, accountRepo portsrepo.AccountRepository) *PostingService {
	return &PostingService{txnRepo: txnRepo, accountRepo: accountRepo}
}

var _ portssvc.PostingSvcFacade = (*PostingService)(nil)

// CreateDraft validates the line set and saves a new draft transaction with a
// freshly reserved transaction number.
func (s *PostingService) CreateDraft(ctx context.Context, req dto.CreateTransactionRequest, actor string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !domain.ValidTransactionType(req.TransactionType) {
		return nil, fmt.Errorf("%w: unknown transaction type %q", apperrors.ErrValidation, req.TransactionType)
	}

	now := time.Now().UTC()
	transactionID := uuid.NewString()
	lines, err := s.buildLines(transactionID, req.Lines, actor, now)
	if err != nil {
		return nil, err
	}
	if err := accounting.ValidateLines(lines); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	// Accounts must exist up front; active/postable is re-checked at post time.
	txn := domain.Transaction{
		TransactionID:   transactionID,
		TransactionType: req.TransactionType,
		Status:          domain.Draft,
		Date:            req.Date,
		Description:     req.Description,
		Reference:       req.Reference,
		CustomerID:      req.CustomerID,
		OrderID:         req.OrderID,
		PaymentID:       req.PaymentID,
		BranchID:        req.BranchID,
		AuditFields:     domain.NewAuditFields(actor, now),
		Lines:           lines,
	}
	txn.CalculateTotals()

	accountIDs := txn.AffectedAccountIDs()
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	for _, id := range accountIDs {
		if _, ok := accounts[id]; !ok {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
	}

	number, err := s.txnRepo.NextTransactionNumber(ctx, numberPrefixes[req.TransactionType], req.Date)
	if err != nil {
		logger.Error("Failed to reserve transaction number", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to reserve transaction number: %w", err)
	}
	txn.TransactionNumber = number

	if err := s.txnRepo.SaveDraft(ctx, txn); err != nil {
		logger.Error("Failed to save draft transaction", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	logger.Info("Draft transaction created",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("transaction_number", txn.TransactionNumber),
	)
	return &txn, nil
}

func (s *PostingService) buildLines(transactionID string, reqs []dto.TransactionLineRequest, actor string, now time.Time) ([]domain.TransactionLine, error) {
	lines := make([]domain.TransactionLine, len(reqs))
	for i, lr := range reqs {
		lines[i] = domain.TransactionLine{
			LineID:        uuid.NewString(),
			TransactionID: transactionID,
			AccountID:     lr.AccountID,
			LineNo:        i + 1,
			Debit:         lr.Debit,
			Credit:        lr.Credit,
			Description:   lr.Description,
			AuditFields:   domain.NewAuditFields(actor, now),
		}
	}
	return lines, nil
}

// GetTransaction retrieves a transaction with its lines.
func (s *PostingService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	lines, err := s.txnRepo.FindLinesByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines for transaction %s: %w", transactionID, err)
	}
	txn.Lines = lines
	return txn, nil
}

// ListTransactions retrieves a page of transactions without lines.
func (s *PostingService) ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.txnRepo.ListTransactions(ctx, limit, offset)
}

// ReplaceDraftLines swaps the full line set of a draft and recalculates its
// totals. Posted lines are immutable; non-draft transactions are rejected.
func (s *PostingService) ReplaceDraftLines(ctx context.Context, transactionID string, req dto.ReplaceLinesRequest, actor string) (*domain.Transaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDraft(txn); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lines, err := s.buildLines(transactionID, req.Lines, actor, now)
	if err != nil {
		return nil, err
	}
	if err := accounting.ValidateLines(lines); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	txn.Lines = lines
	txn.CalculateTotals()
	txn.Touch(actor, now)

	if err := s.txnRepo.ReplaceDraftLines(ctx, transactionID, lines, txn.TotalDebit, txn.TotalCredit, actor, now); err != nil {
		return nil, fmt.Errorf("failed to replace draft lines: %w", err)
	}
	return txn, nil
}

// DeleteDraft removes a draft transaction entirely. Posted and cancelled
// transactions are permanent.
func (s *PostingService) DeleteDraft(ctx context.Context, transactionID string) error {
	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if err := s.requireDraft(txn); err != nil {
		return err
	}
	return s.txnRepo.DeleteDraft(ctx, transactionID)
}

func (s *PostingService) requireDraft(txn *domain.Transaction) error {
	switch txn.Status {
	case domain.Draft:
		return nil
	case domain.Posted:
		return fmt.Errorf("%w: transaction %s", ErrAlreadyPosted, txn.TransactionID)
	case domain.Cancelled:
		return fmt.Errorf("%w: transaction %s", ErrTransactionCancelled, txn.TransactionID)
	default:
		return fmt.Errorf("%w: unexpected status %q", ErrNotDraft, txn.Status)
	}
}

// Post finalizes a draft. Preconditions: draft status, balanced positive
// totals, at least two lines, and every referenced account active and
// accepting postings. The status flip itself is a compare-and-set inside the
// repository's database transaction, so a concurrent double-post resolves to
// exactly one success. On success every affected account's cached balance is
// recomputed from the posted line history.
func (s *PostingService) Post(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDraft(txn); err != nil {
		return nil, err
	}
	if len(txn.Lines) < 2 {
		return nil, fmt.Errorf("%w: transaction %s has %d", ErrInsufficientLines, transactionID, len(txn.Lines))
	}

	txn.CalculateTotals()
	if !txn.Balanced() {
		return nil, fmt.Errorf("%w: debits %s, credits %s", ErrUnbalanced, txn.TotalDebit, txn.TotalCredit)
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, txn.AffectedAccountIDs())
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	for _, accountID := range txn.AffectedAccountIDs() {
		account, ok := accounts[accountID]
		if !ok {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		if !account.IsActive {
			return nil, fmt.Errorf("%w: account %s (%s)", ErrInactiveAccount, account.Code, accountID)
		}
		if !account.AllowTransactions {
			return nil, fmt.Errorf("%w: account %s (%s)", ErrPostingsNotAllowed, account.Code, accountID)
		}
	}

	now := time.Now().UTC()
	if err := s.txnRepo.PostTransaction(ctx, transactionID, actor, now); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost a concurrent post/cancel race; report the actual state.
			if current, ferr := s.txnRepo.FindTransactionByID(ctx, transactionID); ferr == nil {
				return nil, s.requireDraft(current)
			}
		}
		logger.Error("Failed to post transaction", slog.String("transaction_id", transactionID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to post transaction %s: %w", transactionID, err)
	}

	logger.Info("Transaction posted",
		slog.String("transaction_id", transactionID),
		slog.String("transaction_number", txn.TransactionNumber),
		slog.String("total", txn.TotalDebit.String()),
	)
	return s.GetTransaction(ctx, transactionID)
}

// CreateReversal builds a draft transaction mirroring a posted one with the
// debit and credit sides swapped per line. This is the only sanctioned way to
// undo a posted transaction's financial effect.
func (s *PostingService) CreateReversal(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	original, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if original.Status != domain.Posted {
		if original.Status == domain.Cancelled {
			return nil, fmt.Errorf("%w: transaction %s", ErrTransactionCancelled, transactionID)
		}
		return nil, fmt.Errorf("%w: transaction %s has status %s", ErrNotPosted, transactionID, original.Status)
	}

	now := time.Now().UTC()
	reversal, err := s.buildReversal(ctx, original, actor, now)
	if err != nil {
		return nil, err
	}

	if err := s.txnRepo.SaveDraft(ctx, *reversal); err != nil {
		return nil, fmt.Errorf("failed to save reversal draft: %w", err)
	}
	return reversal, nil
}

func (s *PostingService) buildReversal(ctx context.Context, original *domain.Transaction, actor string, now time.Time) (*domain.Transaction, error) {
	reversalID := uuid.NewString()
	mirrored := accounting.ReverseLines(original.Lines)
	for i := range mirrored {
		mirrored[i].LineID = uuid.NewString()
		mirrored[i].TransactionID = reversalID
		mirrored[i].AuditFields = domain.NewAuditFields(actor, now)
	}

	reversal := domain.Transaction{
		TransactionID:         reversalID,
		TransactionType:       original.TransactionType,
		Status:                domain.Draft,
		Date:                  now,
		Description:           fmt.Sprintf("Reversal of %s: %s", original.TransactionNumber, original.Description),
		Reference:             original.Reference,
		CustomerID:            original.CustomerID,
		OrderID:               original.OrderID,
		PaymentID:             original.PaymentID,
		BranchID:              original.BranchID,
		OriginalTransactionID: original.TransactionID,
		AuditFields:           domain.NewAuditFields(actor, now),
		Lines:                 mirrored,
	}
	reversal.CalculateTotals()

	number, err := s.txnRepo.NextTransactionNumber(ctx, numberPrefixes[original.TransactionType], now)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve reversal number: %w", err)
	}
	reversal.TransactionNumber = number
	return &reversal, nil
}

// Cancel undoes a posted transaction: it creates the reversal, posts it, and
// marks the original cancelled, all in one atomic unit of work.
func (s *PostingService) Cancel(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	switch original.Status {
	case domain.Cancelled:
		return nil, fmt.Errorf("%w: transaction %s", ErrTransactionCancelled, transactionID)
	case domain.Draft:
		return nil, fmt.Errorf("%w: transaction %s (drafts are deleted, not cancelled)", ErrNotPosted, transactionID)
	}

	now := time.Now().UTC()
	reversal, err := s.buildReversal(ctx, original, actor, now)
	if err != nil {
		return nil, err
	}

	if err := s.txnRepo.CancelTransaction(ctx, transactionID, *reversal, actor, now); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: transaction %s", ErrTransactionCancelled, transactionID)
		}
		logger.Error("Failed to cancel transaction", slog.String("transaction_id", transactionID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to cancel transaction %s: %w", transactionID, err)
	}

	logger.Info("Transaction cancelled",
		slog.String("transaction_id", transactionID),
		slog.String("reversal_id", reversal.TransactionID),
	)
	return s.GetTransaction(ctx, reversal.TransactionID)
}
