package domain

// DefaultAccounts names the chart-of-accounts codes the posting engine and the
// domain-event handlers post against. Injected at construction time from
// configuration; never looked up ad hoc.
type DefaultAccounts struct {
	CashCode             string // asset: cash on hand
	BankCode             string // asset: bank
	ReceivableRootCode   string // asset: parent of per-customer receivable accounts
	RevenueCode          string // revenue: sales
	AdvanceLiabilityCode string // liability: customer advances held
}

// CashOrBank resolves a payment method to the matching default account code.
func (d DefaultAccounts) CashOrBank(method string) string {
	if method == "cash" {
		return d.CashCode
	}
	return d.BankCode
}
