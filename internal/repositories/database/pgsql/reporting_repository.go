package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
	portsrepo "github.com/zakeetahawi/ledgercore/internal/core/ports/repositories"
)

type PgxReportingRepository struct {
	BaseRepository
}

func newPgxReportingRepository(pool *pgxpool.Pool) *PgxReportingRepository {
	return &PgxReportingRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.ReportingRepository = (*PgxReportingRepository)(nil)

// TrialBalance aggregates ledger activity up to the cutoff, one row per
// account. Accounts without activity still appear with their opening balance,
// and cancelled transactions stay in the sums alongside their reversals.
func (r *PgxReportingRepository) TrialBalance(ctx context.Context, asOf time.Time) (*domain.TrialBalance, error) {
	query := `
		SELECT a.account_id, a.code, a.name, a.account_type, a.opening_balance,
			COALESCE(SUM(l.debit), 0) AS total_debit,
			COALESCE(SUM(l.credit), 0) AS total_credit
		FROM accounts a
		LEFT JOIN (
			SELECT l.account_id, l.debit, l.credit
			FROM transaction_lines l
			JOIN transactions t ON t.transaction_id = l.transaction_id
			WHERE t.status IN ('POSTED', 'CANCELLED') AND t.transaction_date <= $1
		) l ON l.account_id = a.account_id
		GROUP BY a.account_id, a.code, a.name, a.account_type, a.opening_balance
		ORDER BY a.code;
	`
	rows, err := r.Pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query trial balance: %w", err)
	}
	defer rows.Close()

	tb := &domain.TrialBalance{
		AsOf:        asOf,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for rows.Next() {
		var row domain.TrialBalanceRow
		if err := rows.Scan(&row.AccountID, &row.Code, &row.Name, &row.AccountType,
			&row.OpeningBalance, &row.TotalDebit, &row.TotalCredit); err != nil {
			return nil, fmt.Errorf("failed to scan trial balance row: %w", err)
		}
		side, _ := domain.NormalBalanceFor(row.AccountType)
		if side == domain.DebitNormal {
			row.ClosingBalance = row.OpeningBalance.Add(row.TotalDebit).Sub(row.TotalCredit)
		} else {
			row.ClosingBalance = row.OpeningBalance.Add(row.TotalCredit).Sub(row.TotalDebit)
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.TotalDebit)
		tb.TotalCredit = tb.TotalCredit.Add(row.TotalCredit)
		tb.Rows = append(tb.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trial balance rows: %w", err)
	}
	return tb, nil
}

// AccountStatement returns one account's ledger lines inside the date range
// in chronological order, with running balances as stamped at post time.
// Cancelled transactions appear next to their reversals.
func (r *PgxReportingRepository) AccountStatement(ctx context.Context, accountID string, from, to time.Time, limit, offset int) ([]domain.StatementLine, error) {
	query := `
		SELECT t.transaction_id, t.transaction_number, t.transaction_date,
			CASE WHEN l.description <> '' THEN l.description ELSE t.description END,
			l.debit, l.credit, l.running_balance
		FROM transaction_lines l
		JOIN transactions t ON t.transaction_id = l.transaction_id
		WHERE l.account_id = $1 AND t.status IN ('POSTED', 'CANCELLED')
			AND t.transaction_date >= $2 AND t.transaction_date <= $3
		ORDER BY t.transaction_date, t.posted_at, l.line_no
		LIMIT $4 OFFSET $5;
	`
	rows, err := r.Pool.Query(ctx, query, accountID, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query statement for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var lines []domain.StatementLine
	for rows.Next() {
		var l domain.StatementLine
		if err := rows.Scan(&l.TransactionID, &l.TransactionNumber, &l.Date,
			&l.Description, &l.Debit, &l.Credit, &l.RunningBalance); err != nil {
			return nil, fmt.Errorf("failed to scan statement line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statement lines: %w", err)
	}
	return lines, nil
}

// FindUnbalancedTransactions flags transactions whose stored totals disagree
// with each other or with the sums of their lines.
func (r *PgxReportingRepository) FindUnbalancedTransactions(ctx context.Context) ([]domain.UnbalancedTransaction, error) {
	query := `
		SELECT t.transaction_id, t.transaction_number, t.status, t.total_debit, t.total_credit,
			COALESCE(SUM(l.debit), 0) AS line_debit_sum,
			COALESCE(SUM(l.credit), 0) AS line_credit_sum
		FROM transactions t
		LEFT JOIN transaction_lines l ON l.transaction_id = t.transaction_id
		GROUP BY t.transaction_id, t.transaction_number, t.status, t.total_debit, t.total_credit
		HAVING t.total_debit <> t.total_credit
			OR t.total_debit <> COALESCE(SUM(l.debit), 0)
			OR t.total_credit <> COALESCE(SUM(l.credit), 0)
		ORDER BY t.transaction_number;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unbalanced transactions: %w", err)
	}
	defer rows.Close()

	var findings []domain.UnbalancedTransaction
	for rows.Next() {
		var f domain.UnbalancedTransaction
		if err := rows.Scan(&f.TransactionID, &f.TransactionNumber, &f.Status,
			&f.TotalDebit, &f.TotalCredit, &f.LineDebitSum, &f.LineCreditSum); err != nil {
			return nil, fmt.Errorf("failed to scan unbalanced transaction: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unbalanced transactions: %w", err)
	}
	return findings, nil
}

// VerifyAccountBalances compares every cached balance against its
// recomputation from the line history.
func (r *PgxReportingRepository) VerifyAccountBalances(ctx context.Context) ([]domain.BalanceMismatch, error) {
	query := `
		SELECT a.account_id, a.code, a.current_balance,
			a.opening_balance + COALESCE((
				SELECT SUM(CASE WHEN a.account_type IN ('ASSET', 'EXPENSE')
					THEN l.debit - l.credit
					ELSE l.credit - l.debit END)
				FROM transaction_lines l
				JOIN transactions t ON t.transaction_id = l.transaction_id
				WHERE l.account_id = a.account_id AND t.status IN ('POSTED', 'CANCELLED')
			), 0) AS recomputed
		FROM accounts a
		ORDER BY a.code;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to verify account balances: %w", err)
	}
	defer rows.Close()

	var mismatches []domain.BalanceMismatch
	for rows.Next() {
		var m domain.BalanceMismatch
		if err := rows.Scan(&m.AccountID, &m.Code, &m.Cached, &m.Recomputed); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		if !m.Cached.Equal(m.Recomputed) {
			mismatches = append(mismatches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}
	return mismatches, nil
}

// VerifyCustomerDebts compares each stored summary debt against orders minus
// payments recomputed from the mirror tables.
func (r *PgxReportingRepository) VerifyCustomerDebts(ctx context.Context) ([]domain.SummaryMismatch, error) {
	query := `
		SELECT s.customer_id, s.total_debt,
			COALESCE((SELECT SUM(final_price) FROM orders WHERE customer_id = s.customer_id), 0)
			- COALESCE((SELECT SUM(amount) FROM payments WHERE customer_id = s.customer_id), 0) AS recomputed
		FROM customer_financial_summaries s
		ORDER BY s.customer_id;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to verify customer debts: %w", err)
	}
	defer rows.Close()

	var mismatches []domain.SummaryMismatch
	for rows.Next() {
		var m domain.SummaryMismatch
		if err := rows.Scan(&m.CustomerID, &m.StoredDebt, &m.RecomputedDebt); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if !m.StoredDebt.Equal(m.RecomputedDebt) {
			mismatches = append(mismatches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}
	return mismatches, nil
}

// CountZeroAmountLines counts lines carrying neither a debit nor a credit.
// A healthy ledger reports zero.
func (r *PgxReportingRepository) CountZeroAmountLines(ctx context.Context) (int64, error) {
	var count int64
	err := r.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transaction_lines WHERE debit = 0 AND credit = 0;`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count zero amount lines: %w", err)
	}
	return count, nil
}
