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

type PgxAccountRepository struct {
	BaseRepository
}

func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountRepository = (*PgxAccountRepository)(nil)

func toModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:         d.AccountID,
		Code:              d.Code,
		Name:              d.Name,
		AccountType:       string(d.AccountType),
		ParentAccountID:   d.ParentAccountID,
		Description:       d.Description,
		OpeningBalance:    d.OpeningBalance,
		CurrentBalance:    d.CurrentBalance,
		IsActive:          d.IsActive,
		AllowTransactions: d.AllowTransactions,
		CustomerID:        d.CustomerID,
		BranchID:          d.BranchID,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
}

func toDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:         m.AccountID,
		Code:              m.Code,
		Name:              m.Name,
		AccountType:       domain.AccountCategory(m.AccountType),
		ParentAccountID:   m.ParentAccountID,
		Description:       m.Description,
		OpeningBalance:    m.OpeningBalance,
		CurrentBalance:    m.CurrentBalance,
		IsActive:          m.IsActive,
		AllowTransactions: m.AllowTransactions,
		CustomerID:        m.CustomerID,
		BranchID:          m.BranchID,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

const accountColumns = `account_id, code, name, account_type, COALESCE(parent_account_id, ''), description,
	opening_balance, current_balance, is_active, allow_transactions,
	COALESCE(customer_id, ''), COALESCE(branch_id, ''),
	created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row pgx.Row) (models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID, &m.Code, &m.Name, &m.AccountType, &m.ParentAccountID, &m.Description,
		&m.OpeningBalance, &m.CurrentBalance, &m.IsActive, &m.AllowTransactions,
		&m.CustomerID, &m.BranchID,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := toModelAccount(account)

	query := `
		INSERT INTO accounts (account_id, code, name, account_type, parent_account_id, description,
			opening_balance, current_balance, is_active, allow_transactions, customer_id, branch_id,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.AccountID, m.Code, m.Name, m.AccountType, nullStr(m.ParentAccountID), m.Description,
		m.OpeningBalance, m.CurrentBalance, m.IsActive, m.AllowTransactions,
		nullStr(m.CustomerID), nullStr(m.BranchID),
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to save account %s: %w", m.AccountID, err)
	}
	return nil
}

func (r *PgxAccountRepository) findOne(ctx context.Context, where string, arg any) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where + `;`
	m, err := scanAccount(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	acc := toDomainAccount(m)
	return &acc, nil
}

func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return r.findOne(ctx, "account_id = $1", accountID)
}

func (r *PgxAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	return r.findOne(ctx, "code = $1", code)
}

func (r *PgxAccountRepository) FindAccountByCustomerID(ctx context.Context, customerID string) (*domain.Account, error) {
	return r.findOne(ctx, "customer_id = $1", customerID)
}

// FindAccountsByIDs fetches multiple accounts keyed by ID. Missing IDs are
// simply absent from the result map.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by IDs: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Account, len(accountIDs))
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		result[m.AccountID] = toDomainAccount(m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return result, nil
}

func (r *PgxAccountRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, toDomainAccount(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

func (r *PgxAccountRepository) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY code LIMIT $1 OFFSET $2;`
	return r.queryAccounts(ctx, query, limit, offset)
}

func (r *PgxAccountRepository) ListChildren(ctx context.Context, parentAccountID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE parent_account_id = $1 ORDER BY code;`
	return r.queryAccounts(ctx, query, parentAccountID)
}

// UpdateAccount overwrites the mutable fields of an account. The account type
// and opening balance are fixed at creation and not touched here.
func (r *PgxAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	m := toModelAccount(account)

	query := `
		UPDATE accounts
		SET name = $2, parent_account_id = $3, description = $4, is_active = $5,
			allow_transactions = $6, branch_id = $7, last_updated_at = $8, last_updated_by = $9
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.AccountID, m.Name, nullStr(m.ParentAccountID), m.Description, m.IsActive,
		m.AllowTransactions, nullStr(m.BranchID), m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update account %s: %w", m.AccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s not found", apperrors.ErrNotFound, m.AccountID)
	}
	return nil
}

func (r *PgxAccountRepository) DeactivateAccount(ctx context.Context, accountID string, actor string, now time.Time) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, now, actor)
	if err != nil {
		return fmt.Errorf("failed to deactivate account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s not found", apperrors.ErrNotFound, accountID)
	}
	return nil
}

// DeleteAccount removes an account that has never been posted to. The foreign
// key from transaction_lines backs up the explicit existence check.
func (r *PgxAccountRepository) DeleteAccount(ctx context.Context, accountID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	var referenced bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transaction_lines WHERE account_id = $1);`, accountID,
	).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check account references: %w", err)
	}
	if referenced {
		return fmt.Errorf("%w: account %s has transaction lines", apperrors.ErrReferenced, accountID)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1;`, accountID)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to delete account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s not found", apperrors.ErrNotFound, accountID)
	}
	return r.Commit(ctx, tx)
}

// recomputedBalanceQuery derives an account balance from first principles:
// opening balance plus the signed sum of its posted lines, where the sign
// convention follows the account's normal balance side.
const recomputedBalanceQuery = `
	SELECT a.opening_balance + COALESCE((
		SELECT SUM(CASE WHEN a.account_type IN ('ASSET', 'EXPENSE')
			THEN l.debit - l.credit
			ELSE l.credit - l.debit END)
		FROM transaction_lines l
		JOIN transactions t ON t.transaction_id = l.transaction_id
		WHERE l.account_id = a.account_id AND t.status IN ('POSTED', 'CANCELLED')
	), 0)
	FROM accounts a
	WHERE a.account_id = $1`

func (r *PgxAccountRepository) RecomputedBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.Pool.QueryRow(ctx, recomputedBalanceQuery+`;`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: account %s not found", apperrors.ErrNotFound, accountID)
		}
		return decimal.Zero, fmt.Errorf("failed to recompute balance for account %s: %w", accountID, err)
	}
	return balance, nil
}

func (r *PgxAccountRepository) RefreshCachedBalances(ctx context.Context, accountIDs []string, actor string, now time.Time) error {
	if len(accountIDs) == 0 {
		return nil
	}
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := refreshBalancesTx(ctx, tx, accountIDs, actor, now); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}
