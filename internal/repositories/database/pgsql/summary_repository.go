package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
	"github.com/zakeetahawi/ledgercore/internal/models"
)

type PgxSummaryRepository struct {
	BaseRepository
}

func newPgxSummaryRepository(pool *pgxpool.Pool) *PgxSummaryRepository {
	return &PgxSummaryRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.SummaryRepository = (*PgxSummaryRepository)(nil)

// FetchCustomerFacts aggregates orders, payments and live advances for one
// customer in a single round trip. A customer with no rows anywhere still
// gets zero-valued facts, never ErrNotFound.
func (r *PgxSummaryRepository) FetchCustomerFacts(ctx context.Context, customerID string) (*domain.CustomerFacts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE customer_id = $1),
			(SELECT COALESCE(SUM(final_price), 0) FROM orders WHERE customer_id = $1),
			(SELECT MAX(order_date) FROM orders WHERE customer_id = $1),
			(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE customer_id = $1),
			(SELECT MAX(payment_date) FROM payments WHERE customer_id = $1),
			(SELECT COALESCE(SUM(amount), 0) FROM customer_advances
				WHERE customer_id = $1 AND status IN ('ACTIVE', 'PARTIALLY_USED')),
			(SELECT COALESCE(SUM(remaining_amount), 0) FROM customer_advances
				WHERE customer_id = $1 AND status IN ('ACTIVE', 'PARTIALLY_USED'));
	`
	var facts domain.CustomerFacts
	err := r.Pool.QueryRow(ctx, query, customerID).Scan(
		&facts.OrdersCount,
		&facts.OrdersAmount,
		&facts.LastOrderDate,
		&facts.PaidAmount,
		&facts.LastPaymentDate,
		&facts.AdvancesAmount,
		&facts.RemainingAdvances,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch facts for customer %s: %w", customerID, err)
	}
	return &facts, nil
}

// UpsertSummary replaces the full summary row. Refreshes always overwrite
// every derived column, so last-writer-wins is correct here.
func (r *PgxSummaryRepository) UpsertSummary(ctx context.Context, summary domain.CustomerFinancialSummary) error {
	query := `
		INSERT INTO customer_financial_summaries (customer_id, total_orders_count, total_orders_amount,
			total_paid, total_advances, remaining_advances, total_debt, financial_status,
			last_payment_date, last_order_date, refreshed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (customer_id) DO UPDATE SET
			total_orders_count = EXCLUDED.total_orders_count,
			total_orders_amount = EXCLUDED.total_orders_amount,
			total_paid = EXCLUDED.total_paid,
			total_advances = EXCLUDED.total_advances,
			remaining_advances = EXCLUDED.remaining_advances,
			total_debt = EXCLUDED.total_debt,
			financial_status = EXCLUDED.financial_status,
			last_payment_date = EXCLUDED.last_payment_date,
			last_order_date = EXCLUDED.last_order_date,
			refreshed_at = EXCLUDED.refreshed_at;
	`
	_, err := r.Pool.Exec(ctx, query,
		summary.CustomerID, summary.TotalOrdersCount, summary.TotalOrdersAmount,
		summary.TotalPaid, summary.TotalAdvances, summary.RemainingAdvances,
		summary.TotalDebt, string(summary.FinancialStatus),
		summary.LastPaymentDate, summary.LastOrderDate, summary.RefreshedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary for customer %s: %w", summary.CustomerID, err)
	}
	return nil
}

func (r *PgxSummaryRepository) FindSummaryByCustomerID(ctx context.Context, customerID string) (*domain.CustomerFinancialSummary, error) {
	query := `
		SELECT customer_id, total_orders_count, total_orders_amount, total_paid, total_advances,
			remaining_advances, total_debt, financial_status, last_payment_date, last_order_date, refreshed_at
		FROM customer_financial_summaries
		WHERE customer_id = $1;
	`
	var m models.CustomerFinancialSummary
	err := r.Pool.QueryRow(ctx, query, customerID).Scan(
		&m.CustomerID, &m.TotalOrdersCount, &m.TotalOrdersAmount, &m.TotalPaid, &m.TotalAdvances,
		&m.RemainingAdvances, &m.TotalDebt, &m.FinancialStatus, &m.LastPaymentDate, &m.LastOrderDate, &m.RefreshedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no summary for customer %s", apperrors.ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("failed to find summary for customer %s: %w", customerID, err)
	}
	summary := domain.CustomerFinancialSummary{
		CustomerID:        m.CustomerID,
		TotalOrdersCount:  m.TotalOrdersCount,
		TotalOrdersAmount: m.TotalOrdersAmount,
		TotalPaid:         m.TotalPaid,
		TotalAdvances:     m.TotalAdvances,
		RemainingAdvances: m.RemainingAdvances,
		TotalDebt:         m.TotalDebt,
		FinancialStatus:   domain.FinancialStatus(m.FinancialStatus),
		LastPaymentDate:   m.LastPaymentDate,
		LastOrderDate:     m.LastOrderDate,
		RefreshedAt:       m.RefreshedAt,
	}
	return &summary, nil
}

// ListSummaryCustomerIDs returns every customer known to the ledger, whether
// or not a summary row exists yet. Bulk refresh walks this list.
func (r *PgxSummaryRepository) ListSummaryCustomerIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT customer_id FROM orders
		UNION
		SELECT customer_id FROM payments
		UNION
		SELECT customer_id FROM customer_advances
		UNION
		SELECT customer_id FROM customer_financial_summaries
		ORDER BY customer_id;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list summary customer IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan customer ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customer IDs: %w", err)
	}
	return ids, nil
}
