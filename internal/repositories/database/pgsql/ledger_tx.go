package pgsql

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/models"
)

// Helpers shared by the transaction and advance repositories. Every function
// here runs inside a caller-owned pgx.Tx so that posting, cancellation and
// advance consumption each commit as one atomic unit.

// lockAccountsTx takes row locks on the given accounts in a deterministic
// order. Concurrent postings touching the same accounts serialize here, which
// keeps cached balance recomputation free of lost updates.
func lockAccountsTx(ctx context.Context, tx pgx.Tx, accountIDs []string) error {
	if len(accountIDs) == 0 {
		return nil
	}
	ids := make([]string, len(accountIDs))
	copy(ids, accountIDs)
	sort.Strings(ids)

	rows, err := tx.Query(ctx,
		`SELECT account_id FROM accounts WHERE account_id = ANY($1) ORDER BY account_id FOR UPDATE;`, ids)
	if err != nil {
		return fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan locked account: %w", err)
		}
		locked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error locking accounts: %w", err)
	}
	if locked != len(ids) {
		return fmt.Errorf("expected to lock %d accounts, locked %d", len(ids), locked)
	}
	return nil
}

// insertTransactionTx inserts a transaction header and its lines. The lines go
// in as one batch.
func insertTransactionTx(ctx context.Context, tx pgx.Tx, m models.Transaction, lines []models.TransactionLine) error {
	query := `
		INSERT INTO transactions (transaction_id, transaction_number, transaction_type, status,
			transaction_date, description, reference, customer_id, order_id, payment_id, branch_id,
			total_debit, total_credit, posted_by, posted_at, original_transaction_id, reversal_transaction_id,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
	`
	_, err := tx.Exec(ctx, query,
		m.TransactionID, m.TransactionNumber, m.TransactionType, m.Status,
		m.Date, m.Description, m.Reference,
		nullStr(m.CustomerID), nullStr(m.OrderID), nullStr(m.PaymentID), nullStr(m.BranchID),
		m.TotalDebit, m.TotalCredit, nullStr(m.PostedBy), m.PostedAt,
		nullStr(m.OriginalTransactionID), nullStr(m.ReversalTransactionID),
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to insert transaction %s: %w", m.TransactionID, err)
	}
	return insertLinesTx(ctx, tx, lines)
}

func insertLinesTx(ctx context.Context, tx pgx.Tx, lines []models.TransactionLine) error {
	if len(lines) == 0 {
		return nil
	}
	query := `
		INSERT INTO transaction_lines (line_id, transaction_id, account_id, line_no,
			debit, credit, description, running_balance,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(query,
			l.LineID, l.TransactionID, l.AccountID, l.LineNo,
			l.Debit, l.Credit, l.Description, l.RunningBalance,
			l.CreatedAt, l.CreatedBy, l.LastUpdatedAt, l.LastUpdatedBy,
		)
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range lines {
		if _, err := results.Exec(); err != nil {
			if mapped := mapPgError(err); mapped != err {
				return mapped
			}
			return fmt.Errorf("failed to insert transaction line: %w", err)
		}
	}
	return nil
}

// balanceBeforeTx computes an account's balance excluding one transaction,
// used to seed running balance stamping for the transaction being posted.
// Cancelled transactions stay in the sums, each offset by its posted reversal.
func balanceBeforeTx(ctx context.Context, tx pgx.Tx, accountID, excludeTransactionID string) (decimal.Decimal, error) {
	query := `
		SELECT a.opening_balance + COALESCE((
			SELECT SUM(CASE WHEN a.account_type IN ('ASSET', 'EXPENSE')
				THEN l.debit - l.credit
				ELSE l.credit - l.debit END)
			FROM transaction_lines l
			JOIN transactions t ON t.transaction_id = l.transaction_id
			WHERE l.account_id = a.account_id
				AND t.status IN ('POSTED', 'CANCELLED')
				AND t.transaction_id <> $2
		), 0)
		FROM accounts a
		WHERE a.account_id = $1;
	`
	var balance decimal.Decimal
	if err := tx.QueryRow(ctx, query, accountID, excludeTransactionID).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute prior balance for account %s: %w", accountID, err)
	}
	return balance, nil
}

// lineForStamping is the slice of a transaction line needed to stamp its
// running balance.
type lineForStamping struct {
	LineID    string
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// stampRunningBalancesTx walks the transaction's lines in insertion order and
// writes the per-account balance after each line. The owning transaction must
// already carry POSTED status inside this database transaction.
func stampRunningBalancesTx(ctx context.Context, tx pgx.Tx, transactionID string) error {
	rows, err := tx.Query(ctx, `
		SELECT l.line_id, l.account_id, l.debit, l.credit, a.account_type
		FROM transaction_lines l
		JOIN accounts a ON a.account_id = l.account_id
		WHERE l.transaction_id = $1
		ORDER BY l.line_no;
	`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to load lines for running balance stamping: %w", err)
	}

	var lines []lineForStamping
	accountTypes := make(map[string]string)
	for rows.Next() {
		var l lineForStamping
		var accountType string
		if err := rows.Scan(&l.LineID, &l.AccountID, &l.Debit, &l.Credit, &accountType); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan line for stamping: %w", err)
		}
		lines = append(lines, l)
		accountTypes[l.AccountID] = accountType
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating lines for stamping: %w", err)
	}

	running := make(map[string]decimal.Decimal, len(accountTypes))
	for accountID := range accountTypes {
		balance, err := balanceBeforeTx(ctx, tx, accountID, transactionID)
		if err != nil {
			return err
		}
		running[accountID] = balance
	}

	batch := &pgx.Batch{}
	for _, l := range lines {
		var delta decimal.Decimal
		if accountTypes[l.AccountID] == "ASSET" || accountTypes[l.AccountID] == "EXPENSE" {
			delta = l.Debit.Sub(l.Credit)
		} else {
			delta = l.Credit.Sub(l.Debit)
		}
		running[l.AccountID] = running[l.AccountID].Add(delta)
		batch.Queue(`UPDATE transaction_lines SET running_balance = $2 WHERE line_id = $1;`,
			l.LineID, running[l.AccountID])
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range lines {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to stamp running balance: %w", err)
		}
	}
	return nil
}

// refreshBalancesTx resets each account's cached current_balance to its
// recomputation from the line history. Cancelled transactions keep their
// lines in the sums, each offset by its posted reversal.
func refreshBalancesTx(ctx context.Context, tx pgx.Tx, accountIDs []string, actor string, now time.Time) error {
	query := `
		UPDATE accounts a
		SET current_balance = a.opening_balance + COALESCE((
				SELECT SUM(CASE WHEN a.account_type IN ('ASSET', 'EXPENSE')
					THEN l.debit - l.credit
					ELSE l.credit - l.debit END)
				FROM transaction_lines l
				JOIN transactions t ON t.transaction_id = l.transaction_id
				WHERE l.account_id = a.account_id AND t.status IN ('POSTED', 'CANCELLED')
			), 0),
			last_updated_at = $2,
			last_updated_by = $3
		WHERE a.account_id = ANY($1);
	`
	if _, err := tx.Exec(ctx, query, accountIDs, now, actor); err != nil {
		return fmt.Errorf("failed to refresh cached balances: %w", err)
	}
	return nil
}

// affectedAccountIDsTx returns the distinct account IDs referenced by a
// transaction's lines.
func affectedAccountIDsTx(ctx context.Context, tx pgx.Tx, transactionID string) ([]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT DISTINCT account_id FROM transaction_lines WHERE transaction_id = $1;`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query affected accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan affected account: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating affected accounts: %w", err)
	}
	return ids, nil
}
