package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	"github.com/zakeetahawi/ledgercore/internal/models"
)

type PgxTransactionRepository struct {
	BaseRepository
}

func newPgxTransactionRepository(pool *pgxpool.Pool) *PgxTransactionRepository {
	return &PgxTransactionRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionRepository = (*PgxTransactionRepository)(nil)

func toModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID:         d.TransactionID,
		TransactionNumber:     d.TransactionNumber,
		TransactionType:       string(d.TransactionType),
		Status:                string(d.Status),
		Date:                  d.Date,
		Description:           d.Description,
		Reference:             d.Reference,
		CustomerID:            d.CustomerID,
		OrderID:               d.OrderID,
		PaymentID:             d.PaymentID,
		BranchID:              d.BranchID,
		TotalDebit:            d.TotalDebit,
		TotalCredit:           d.TotalCredit,
		PostedBy:              d.PostedBy,
		PostedAt:              d.PostedAt,
		OriginalTransactionID: d.OriginalTransactionID,
		ReversalTransactionID: d.ReversalTransactionID,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

func toDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:         m.TransactionID,
		TransactionNumber:     m.TransactionNumber,
		TransactionType:       domain.TransactionType(m.TransactionType),
		Status:                domain.TransactionStatus(m.Status),
		Date:                  m.Date,
		Description:           m.Description,
		Reference:             m.Reference,
		CustomerID:            m.CustomerID,
		OrderID:               m.OrderID,
		PaymentID:             m.PaymentID,
		BranchID:              m.BranchID,
		TotalDebit:            m.TotalDebit,
		TotalCredit:           m.TotalCredit,
		PostedBy:              m.PostedBy,
		PostedAt:              m.PostedAt,
		OriginalTransactionID: m.OriginalTransactionID,
		ReversalTransactionID: m.ReversalTransactionID,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

func toModelLine(d domain.TransactionLine) models.TransactionLine {
	return models.TransactionLine{
		LineID:         d.LineID,
		TransactionID:  d.TransactionID,
		AccountID:      d.AccountID,
		LineNo:         d.LineNo,
		Debit:          d.Debit,
		Credit:         d.Credit,
		Description:    d.Description,
		RunningBalance: d.RunningBalance,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

func toDomainLine(m models.TransactionLine) domain.TransactionLine {
	return domain.TransactionLine{
		LineID:         m.LineID,
		TransactionID:  m.TransactionID,
		AccountID:      m.AccountID,
		LineNo:         m.LineNo,
		Debit:          m.Debit,
		Credit:         m.Credit,
		Description:    m.Description,
		RunningBalance: m.RunningBalance,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

func toModelLines(ds []domain.TransactionLine) []models.TransactionLine {
	ms := make([]models.TransactionLine, len(ds))
	for i, d := range ds {
		ms[i] = toModelLine(d)
	}
	return ms
}

const transactionColumns = `transaction_id, transaction_number, transaction_type, status,
	transaction_date, description, reference,
	COALESCE(customer_id, ''), COALESCE(order_id, ''), COALESCE(payment_id, ''), COALESCE(branch_id, ''),
	total_debit, total_credit, COALESCE(posted_by, ''), posted_at,
	COALESCE(original_transaction_id, ''), COALESCE(reversal_transaction_id, ''),
	created_at, created_by, last_updated_at, last_updated_by`

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID, &m.TransactionNumber, &m.TransactionType, &m.Status,
		&m.Date, &m.Description, &m.Reference,
		&m.CustomerID, &m.OrderID, &m.PaymentID, &m.BranchID,
		&m.TotalDebit, &m.TotalCredit, &m.PostedBy, &m.PostedAt,
		&m.OriginalTransactionID, &m.ReversalTransactionID,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

// NextTransactionNumber reserves the next value in the per-prefix, per-month
// sequence. The upsert both creates the scope on first use and increments it
// afterwards; RETURNING makes reservation atomic, so numbers are never reused
// even under concurrency.
func (r *PgxTransactionRepository) NextTransactionNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	scope := fmt.Sprintf("%s-%s", prefix, date.UTC().Format("200601"))

	var n int64
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO transaction_sequences (scope, last_value)
		VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET last_value = transaction_sequences.last_value + 1
		RETURNING last_value;
	`, scope).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("failed to reserve transaction number for scope %s: %w", scope, err)
	}
	return fmt.Sprintf("%s-%05d", scope, n), nil
}

// SaveDraft inserts a draft transaction with its lines.
func (r *PgxTransactionRepository) SaveDraft(ctx context.Context, txn domain.Transaction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := insertTransactionTx(ctx, tx, toModelTransaction(txn), toModelLines(txn.Lines)); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

func (r *PgxTransactionRepository) findOne(ctx context.Context, where string, arg any) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where + `;`
	m, err := scanTransaction(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	txn := toDomainTransaction(m)
	return &txn, nil
}

func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return r.findOne(ctx, "transaction_id = $1", transactionID)
}

// FindTransactionByOrderID resolves the event-created transaction for an
// order. Reversals carry the link too, so they are excluded.
func (r *PgxTransactionRepository) FindTransactionByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return r.findOne(ctx, "order_id = $1 AND original_transaction_id IS NULL", orderID)
}

func (r *PgxTransactionRepository) FindTransactionByPaymentID(ctx context.Context, paymentID string) (*domain.Transaction, error) {
	return r.findOne(ctx, "payment_id = $1 AND original_transaction_id IS NULL", paymentID)
}

func (r *PgxTransactionRepository) FindLinesByTransactionID(ctx context.Context, transactionID string) ([]domain.TransactionLine, error) {
	query := `
		SELECT line_id, transaction_id, account_id, line_no, debit, credit, description, running_balance,
			created_at, created_by, last_updated_at, last_updated_by
		FROM transaction_lines
		WHERE transaction_id = $1
		ORDER BY line_no;
	`
	rows, err := r.Pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines for transaction %s: %w", transactionID, err)
	}
	defer rows.Close()

	var lines []domain.TransactionLine
	for rows.Next() {
		var m models.TransactionLine
		err := rows.Scan(
			&m.LineID, &m.TransactionID, &m.AccountID, &m.LineNo,
			&m.Debit, &m.Credit, &m.Description, &m.RunningBalance,
			&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction line: %w", err)
		}
		lines = append(lines, toDomainLine(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction lines: %w", err)
	}
	return lines, nil
}

func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		ORDER BY transaction_date DESC, transaction_number DESC
		LIMIT $1 OFFSET $2;`
	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, toDomainTransaction(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txns, nil
}

// ReplaceDraftLines swaps a draft's line set. The status check and the swap
// share one database transaction, with the header row locked so a concurrent
// post cannot slip between them.
func (r *PgxTransactionRepository) ReplaceDraftLines(ctx context.Context, transactionID string, lines []domain.TransactionLine, totalDebit, totalCredit decimal.Decimal, actor string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM transactions WHERE transaction_id = $1 FOR UPDATE;`, transactionID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: transaction %s not found", apperrors.ErrNotFound, transactionID)
		}
		return fmt.Errorf("failed to lock transaction %s: %w", transactionID, err)
	}
	if status != string(domain.Draft) {
		return fmt.Errorf("%w: transaction %s is %s, not a draft", apperrors.ErrConflict, transactionID, status)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transaction_lines WHERE transaction_id = $1;`, transactionID); err != nil {
		return fmt.Errorf("failed to delete draft lines: %w", err)
	}
	if err := insertLinesTx(ctx, tx, toModelLines(lines)); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE transactions
		SET total_debit = $2, total_credit = $3, last_updated_at = $4, last_updated_by = $5
		WHERE transaction_id = $1;
	`, transactionID, totalDebit, totalCredit, now, actor)
	if err != nil {
		return fmt.Errorf("failed to update draft totals: %w", err)
	}
	return r.Commit(ctx, tx)
}

// DeleteDraft removes a draft and its lines. Posted and cancelled
// transactions are immutable and refuse deletion.
func (r *PgxTransactionRepository) DeleteDraft(ctx context.Context, transactionID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM transaction_lines
		WHERE transaction_id = $1
			AND EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1 AND status = 'DRAFT');
	`, transactionID); err != nil {
		return fmt.Errorf("failed to delete draft lines: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`DELETE FROM transactions WHERE transaction_id = $1 AND status = 'DRAFT';`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1);`, transactionID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check transaction %s: %w", transactionID, err)
		}
		if exists {
			return fmt.Errorf("%w: transaction %s is not a draft", apperrors.ErrConflict, transactionID)
		}
		return fmt.Errorf("%w: transaction %s not found", apperrors.ErrNotFound, transactionID)
	}
	return r.Commit(ctx, tx)
}

// PostTransaction flips a draft to posted. The UPDATE carries a status guard,
// so of two concurrent posters exactly one sees an affected row; the other
// gets ErrConflict. Account rows are locked first so that balance
// recomputation and running balance stamping see a stable posted-line set.
func (r *PgxTransactionRepository) PostTransaction(ctx context.Context, transactionID string, actor string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	accountIDs, err := affectedAccountIDsTx(ctx, tx, transactionID)
	if err != nil {
		return err
	}
	if len(accountIDs) == 0 {
		return fmt.Errorf("%w: transaction %s has no lines", apperrors.ErrNotFound, transactionID)
	}
	if err := lockAccountsTx(ctx, tx, accountIDs); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = 'POSTED', posted_by = $2, posted_at = $3, last_updated_at = $3, last_updated_by = $2
		WHERE transaction_id = $1 AND status = 'DRAFT';
	`, transactionID, actor, now)
	if err != nil {
		return fmt.Errorf("failed to post transaction %s: %w", transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s is not in draft status", apperrors.ErrConflict, transactionID)
	}

	if err := stampRunningBalancesTx(ctx, tx, transactionID); err != nil {
		return err
	}
	if err := refreshBalancesTx(ctx, tx, accountIDs, actor, now); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// CancelTransaction posts the compensating reversal and marks the original
// cancelled in one database transaction. The original's guard is POSTED, so a
// transaction can only be cancelled once.
func (r *PgxTransactionRepository) CancelTransaction(ctx context.Context, originalID string, reversal domain.Transaction, actor string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	accountIDs, err := affectedAccountIDsTx(ctx, tx, originalID)
	if err != nil {
		return err
	}
	if len(accountIDs) == 0 {
		return fmt.Errorf("%w: transaction %s has no lines", apperrors.ErrNotFound, originalID)
	}
	if err := lockAccountsTx(ctx, tx, accountIDs); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = 'CANCELLED', reversal_transaction_id = $2, last_updated_at = $3, last_updated_by = $4
		WHERE transaction_id = $1 AND status = 'POSTED';
	`, originalID, reversal.TransactionID, now, actor)
	if err != nil {
		return fmt.Errorf("failed to cancel transaction %s: %w", originalID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s is not in posted status", apperrors.ErrConflict, originalID)
	}

	m := toModelTransaction(reversal)
	m.Status = string(domain.Posted)
	m.PostedBy = actor
	m.PostedAt = &now
	if err := insertTransactionTx(ctx, tx, m, toModelLines(reversal.Lines)); err != nil {
		return err
	}

	if err := stampRunningBalancesTx(ctx, tx, reversal.TransactionID); err != nil {
		return err
	}
	if err := refreshBalancesTx(ctx, tx, accountIDs, actor, now); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}
