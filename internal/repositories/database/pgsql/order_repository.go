package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
)

type PgxOrderRepository struct {
	BaseRepository
}

func newPgxOrderRepository(pool *pgxpool.Pool) *PgxOrderRepository {
	return &PgxOrderRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.OrderRepository = (*PgxOrderRepository)(nil)

// SaveOrder inserts the order mirror row. ON CONFLICT DO NOTHING makes
// event re-delivery idempotent; the affected-row count tells the caller
// whether this delivery was the first.
func (r *PgxOrderRepository) SaveOrder(ctx context.Context, order domain.Order) (bool, error) {
	query := `
		INSERT INTO orders (order_id, customer_id, final_price, order_date, branch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO NOTHING;
	`
	tag, err := r.Pool.Exec(ctx, query,
		order.OrderID, order.CustomerID, order.FinalPrice, order.OrderDate,
		nullStr(order.BranchID), order.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save order %s: %w", order.OrderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgxOrderRepository) SavePayment(ctx context.Context, payment domain.Payment) (bool, error) {
	query := `
		INSERT INTO payments (payment_id, customer_id, order_id, amount, method, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (payment_id) DO NOTHING;
	`
	tag, err := r.Pool.Exec(ctx, query,
		payment.PaymentID, payment.CustomerID, nullStr(payment.OrderID),
		payment.Amount, payment.Method, payment.PaymentDate, payment.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save payment %s: %w", payment.PaymentID, err)
	}
	return tag.RowsAffected() == 1, nil
}
