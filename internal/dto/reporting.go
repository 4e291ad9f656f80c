package dto

import "time"

// TrialBalanceRequest scopes the trial balance to a point in time.
type TrialBalanceRequest struct {
	AsOf *time.Time `form:"asOf" time_format:"2006-01-02"`
}

// StatementRequest scopes an account or customer statement.
type StatementRequest struct {
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	Limit  int        `form:"limit,default=100"`
	Offset int        `form:"offset,default=0"`
}

// AuditReport is the combined output of the reconciliation checks.
type AuditReport struct {
	UnbalancedTransactions int   `json:"unbalancedTransactions"`
	BalanceMismatches      int   `json:"balanceMismatches"`
	SummaryMismatches      int   `json:"summaryMismatches"`
	ZeroAmountLines        int64 `json:"zeroAmountLines"`
	Fixed                  bool  `json:"fixed"`
}
