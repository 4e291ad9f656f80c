package domain

// AccountCategory defines the fundamental accounting category of an account.
type AccountCategory string

const (
	Asset     AccountCategory = "ASSET"
	Liability AccountCategory = "LIABILITY"
	Equity    AccountCategory = "EQUITY"
	Revenue   AccountCategory = "REVENUE"
	Expense   AccountCategory = "EXPENSE"
)

// NormalBalance is the side on which an account category's balance naturally increases.
type NormalBalance string

const (
	DebitNormal  NormalBalance = "DEBIT"
	CreditNormal NormalBalance = "CREDIT"
)

// AccountType is immutable reference data describing one account category.
type AccountType struct {
	Category      AccountCategory `json:"category"`
	CodePrefix    string          `json:"codePrefix"`
	NormalBalance NormalBalance   `json:"normalBalance"`
}

// accountTypeRegistry maps every category to its type definition.
// Asset and Expense accounts increase on the debit side; Liability, Equity
// and Revenue accounts increase on the credit side.
var accountTypeRegistry = map[AccountCategory]AccountType{
	Asset:     {Category: Asset, CodePrefix: "1", NormalBalance: DebitNormal},
	Liability: {Category: Liability, CodePrefix: "2", NormalBalance: CreditNormal},
	Equity:    {Category: Equity, CodePrefix: "3", NormalBalance: CreditNormal},
	Revenue:   {Category: Revenue, CodePrefix: "4", NormalBalance: CreditNormal},
	Expense:   {Category: Expense, CodePrefix: "5", NormalBalance: DebitNormal},
}

// LookupAccountType returns the registry entry for a category.
func LookupAccountType(category AccountCategory) (AccountType, bool) {
	t, ok := accountTypeRegistry[category]
	return t, ok
}

// NormalBalanceFor returns the normal balance side for a category.
// Unknown categories report false.
func NormalBalanceFor(category AccountCategory) (NormalBalance, bool) {
	t, ok := accountTypeRegistry[category]
	if !ok {
		return "", false
	}
	return t.NormalBalance, true
}

// ValidCategory reports whether the category is a known account category.
func ValidCategory(category AccountCategory) bool {
	_, ok := accountTypeRegistry[category]
	return ok
}
