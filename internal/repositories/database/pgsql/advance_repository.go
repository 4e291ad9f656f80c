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

type PgxAdvanceRepository struct {
	BaseRepository
}

func newPgxAdvanceRepository(pool *pgxpool.Pool) *PgxAdvanceRepository {
	return &PgxAdvanceRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.AdvanceRepository = (*PgxAdvanceRepository)(nil)

func toModelAdvance(d domain.CustomerAdvance) models.CustomerAdvance {
	return models.CustomerAdvance{
		AdvanceID:       d.AdvanceID,
		AdvanceNumber:   d.AdvanceNumber,
		CustomerID:      d.CustomerID,
		Amount:          d.Amount,
		RemainingAmount: d.RemainingAmount,
		Status:          string(d.Status),
		PaymentMethod:   d.PaymentMethod,
		ReceiptNumber:   d.ReceiptNumber,
		TransactionID:   d.TransactionID,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

func toDomainAdvance(m models.CustomerAdvance) domain.CustomerAdvance {
	return domain.CustomerAdvance{
		AdvanceID:       m.AdvanceID,
		AdvanceNumber:   m.AdvanceNumber,
		CustomerID:      m.CustomerID,
		Amount:          m.Amount,
		RemainingAmount: m.RemainingAmount,
		Status:          domain.AdvanceStatus(m.Status),
		PaymentMethod:   m.PaymentMethod,
		ReceiptNumber:   m.ReceiptNumber,
		TransactionID:   m.TransactionID,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

const advanceColumns = `advance_id, advance_number, customer_id, amount, remaining_amount, status,
	payment_method, COALESCE(receipt_number, ''), COALESCE(transaction_id, ''),
	created_at, created_by, last_updated_at, last_updated_by`

func scanAdvance(row pgx.Row) (models.CustomerAdvance, error) {
	var m models.CustomerAdvance
	err := row.Scan(
		&m.AdvanceID, &m.AdvanceNumber, &m.CustomerID, &m.Amount, &m.RemainingAmount, &m.Status,
		&m.PaymentMethod, &m.ReceiptNumber, &m.TransactionID,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

// CreateAdvance inserts the advance and posts its companion receipt
// transaction in one database transaction. Either both land or neither does.
func (r *PgxAdvanceRepository) CreateAdvance(ctx context.Context, advance domain.CustomerAdvance, companion domain.Transaction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.postCompanionTx(ctx, tx, companion); err != nil {
		return err
	}

	m := toModelAdvance(advance)
	query := `
		INSERT INTO customer_advances (advance_id, advance_number, customer_id, amount, remaining_amount,
			status, payment_method, receipt_number, transaction_id,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err = tx.Exec(ctx, query,
		m.AdvanceID, m.AdvanceNumber, m.CustomerID, m.Amount, m.RemainingAmount,
		m.Status, m.PaymentMethod, nullStr(m.ReceiptNumber), nullStr(m.TransactionID),
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to save advance %s: %w", m.AdvanceID, err)
	}
	return r.Commit(ctx, tx)
}

func (r *PgxAdvanceRepository) FindAdvanceByID(ctx context.Context, advanceID string) (*domain.CustomerAdvance, error) {
	query := `SELECT ` + advanceColumns + ` FROM customer_advances WHERE advance_id = $1;`
	m, err := scanAdvance(r.Pool.QueryRow(ctx, query, advanceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: advance %s not found", apperrors.ErrNotFound, advanceID)
		}
		return nil, fmt.Errorf("failed to find advance %s: %w", advanceID, err)
	}
	adv := toDomainAdvance(m)
	return &adv, nil
}

func (r *PgxAdvanceRepository) ListAdvancesByCustomer(ctx context.Context, customerID string) ([]domain.CustomerAdvance, error) {
	query := `SELECT ` + advanceColumns + ` FROM customer_advances WHERE customer_id = $1 ORDER BY created_at;`
	rows, err := r.Pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advances for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	var advances []domain.CustomerAdvance
	for rows.Next() {
		m, err := scanAdvance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advance row: %w", err)
		}
		advances = append(advances, toDomainAdvance(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating advance rows: %w", err)
	}
	return advances, nil
}

func (r *PgxAdvanceRepository) FindUsagesByAdvanceID(ctx context.Context, advanceID string) ([]domain.AdvanceUsage, error) {
	query := `
		SELECT usage_id, advance_id, COALESCE(order_id, ''), amount, created_at, created_by
		FROM advance_usages
		WHERE advance_id = $1
		ORDER BY created_at;
	`
	rows, err := r.Pool.Query(ctx, query, advanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query usages for advance %s: %w", advanceID, err)
	}
	defer rows.Close()

	var usages []domain.AdvanceUsage
	for rows.Next() {
		var m models.AdvanceUsage
		if err := rows.Scan(&m.UsageID, &m.AdvanceID, &m.OrderID, &m.Amount, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		usages = append(usages, domain.AdvanceUsage{
			UsageID:   m.UsageID,
			AdvanceID: m.AdvanceID,
			OrderID:   m.OrderID,
			Amount:    m.Amount,
			CreatedAt: m.CreatedAt,
			CreatedBy: m.CreatedBy,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage rows: %w", err)
	}
	return usages, nil
}

// lockAdvanceTx loads the advance row under FOR UPDATE. Concurrent consumers
// of the same advance serialize here, which is what prevents the remaining
// amount from ever going negative.
func lockAdvanceTx(ctx context.Context, tx pgx.Tx, advanceID string) (domain.CustomerAdvance, error) {
	query := `SELECT ` + advanceColumns + ` FROM customer_advances WHERE advance_id = $1 FOR UPDATE;`
	m, err := scanAdvance(tx.QueryRow(ctx, query, advanceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CustomerAdvance{}, fmt.Errorf("%w: advance %s not found", apperrors.ErrNotFound, advanceID)
		}
		return domain.CustomerAdvance{}, fmt.Errorf("failed to lock advance %s: %w", advanceID, err)
	}
	return toDomainAdvance(m), nil
}

// ConsumeAmount decrements the advance under a row lock, appends the usage
// record and posts the companion transaction atomically. The re-check of the
// remaining amount happens after the lock is held, so a concurrent consumer
// that drained the advance first surfaces as ErrConflict.
func (r *PgxAdvanceRepository) ConsumeAmount(ctx context.Context, advanceID string, usage domain.AdvanceUsage, companion domain.Transaction) (decimal.Decimal, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer r.Rollback(ctx, tx)

	advance, err := lockAdvanceTx(ctx, tx, advanceID)
	if err != nil {
		return decimal.Zero, err
	}
	if !advance.Consumable() {
		return decimal.Zero, fmt.Errorf("%w: advance %s is %s", apperrors.ErrConflict, advanceID, advance.Status)
	}
	if usage.Amount.GreaterThan(advance.RemainingAmount) {
		return decimal.Zero, fmt.Errorf("%w: requested %s exceeds remaining %s on advance %s",
			apperrors.ErrConflict, usage.Amount, advance.RemainingAmount, advanceID)
	}

	remaining := advance.RemainingAmount.Sub(usage.Amount)
	advance.RemainingAmount = remaining
	newStatus := advance.DeriveStatus()

	_, err = tx.Exec(ctx, `
		UPDATE customer_advances
		SET remaining_amount = $2, status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE advance_id = $1;
	`, advanceID, remaining, string(newStatus), usage.CreatedAt, usage.CreatedBy)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decrement advance %s: %w", advanceID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO advance_usages (usage_id, advance_id, order_id, amount, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, usage.UsageID, usage.AdvanceID, nullStr(usage.OrderID), usage.Amount, usage.CreatedAt, usage.CreatedBy)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return decimal.Zero, mapped
		}
		return decimal.Zero, fmt.Errorf("failed to record advance usage: %w", err)
	}

	if err := r.postCompanionTx(ctx, tx, companion); err != nil {
		return decimal.Zero, err
	}
	if err := r.Commit(ctx, tx); err != nil {
		return decimal.Zero, err
	}
	return remaining, nil
}

// CloseAdvance zeroes the remaining amount with a REFUNDED or CANCELLED
// override and posts the companion transaction that returns the funds.
func (r *PgxAdvanceRepository) CloseAdvance(ctx context.Context, advanceID string, status domain.AdvanceStatus, companion domain.Transaction, actor string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	advance, err := lockAdvanceTx(ctx, tx, advanceID)
	if err != nil {
		return err
	}
	if advance.Status == domain.AdvanceRefunded || advance.Status == domain.AdvanceCancelled {
		return fmt.Errorf("%w: advance %s is already %s", apperrors.ErrConflict, advanceID, advance.Status)
	}
	if !advance.RemainingAmount.IsPositive() {
		return fmt.Errorf("%w: advance %s has no remaining amount", apperrors.ErrConflict, advanceID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE customer_advances
		SET remaining_amount = 0, status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE advance_id = $1;
	`, advanceID, string(status), now, actor)
	if err != nil {
		return fmt.Errorf("failed to close advance %s: %w", advanceID, err)
	}

	if err := r.postCompanionTx(ctx, tx, companion); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// postCompanionTx inserts a companion transaction as POSTED with stamped
// running balances and refreshed account caches, inside the caller's database
// transaction.
func (r *PgxAdvanceRepository) postCompanionTx(ctx context.Context, tx pgx.Tx, companion domain.Transaction) error {
	accountIDs := companion.AffectedAccountIDs()
	if err := lockAccountsTx(ctx, tx, accountIDs); err != nil {
		return err
	}

	m := toModelTransaction(companion)
	m.Status = string(domain.Posted)
	if m.PostedBy == "" {
		m.PostedBy = m.CreatedBy
	}
	if m.PostedAt == nil {
		at := m.CreatedAt
		m.PostedAt = &at
	}
	if err := insertTransactionTx(ctx, tx, m, toModelLines(companion.Lines)); err != nil {
		return err
	}
	if err := stampRunningBalancesTx(ctx, tx, companion.TransactionID); err != nil {
		return err
	}
	return refreshBalancesTx(ctx, tx, accountIDs, m.PostedBy, m.CreatedAt)
}
