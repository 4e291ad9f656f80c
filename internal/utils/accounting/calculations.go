package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
)

// SignedAmount converts a line's debit/credit columns into a signed balance
// delta for the owning account.
// Debit-normal accounts (ASSET, EXPENSE) increase with debits;
// credit-normal accounts (LIABILITY, EQUITY, REVENUE) increase with credits.
func SignedAmount(line domain.TransactionLine, category domain.AccountCategory) (decimal.Decimal, error) {
	side, ok := domain.NormalBalanceFor(category)
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown account category %q for account %s", category, line.AccountID)
	}
	if side == domain.DebitNormal {
		return line.Debit.Sub(line.Credit), nil
	}
	return line.Credit.Sub(line.Debit), nil
}

// BalanceDeltas folds a transaction's lines into per-account signed deltas.
func BalanceDeltas(lines []domain.TransactionLine, categories map[string]domain.AccountCategory) (map[string]decimal.Decimal, error) {
	deltas := make(map[string]decimal.Decimal, len(categories))
	for _, line := range lines {
		category, ok := categories[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("account category not known for account %s", line.AccountID)
		}
		signed, err := SignedAmount(line, category)
		if err != nil {
			return nil, err
		}
		deltas[line.AccountID] = deltas[line.AccountID].Add(signed)
	}
	return deltas, nil
}

// ValidateLines checks every line's debit/credit exclusivity rule and that the
// set as a whole balances: sum of debits equals sum of credits and both are
// strictly positive.
func ValidateLines(lines []domain.TransactionLine) error {
	if len(lines) < 2 {
		return fmt.Errorf("a transaction requires at least two lines, got %d", len(lines))
	}

	debits := decimal.Zero
	credits := decimal.Zero
	for i, line := range lines {
		if err := line.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}

	if !debits.Equal(credits) {
		return fmt.Errorf("lines do not balance: debits %s, credits %s", debits, credits)
	}
	if !debits.IsPositive() {
		return fmt.Errorf("transaction total must be positive, got %s", debits)
	}
	return nil
}

// RecomputeBalance derives an account balance from its opening balance and the
// posted lines referencing it, honoring the normal-balance convention. The
// cached balance is never consulted.
func RecomputeBalance(account domain.Account, postedLines []domain.TransactionLine) (decimal.Decimal, error) {
	balance := account.OpeningBalance
	for _, line := range postedLines {
		signed, err := SignedAmount(line, account.AccountType)
		if err != nil {
			return decimal.Zero, err
		}
		balance = balance.Add(signed)
	}
	return balance, nil
}

// ReverseLines mirrors a posted transaction's lines with debit and credit
// swapped per line, same accounts and amounts.
func ReverseLines(lines []domain.TransactionLine) []domain.TransactionLine {
	reversed := make([]domain.TransactionLine, len(lines))
	for i, line := range lines {
		reversed[i] = domain.TransactionLine{
			AccountID:   line.AccountID,
			LineNo:      line.LineNo,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		}
	}
	return reversed
}
