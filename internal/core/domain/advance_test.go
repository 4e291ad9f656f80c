package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/zakeetahawi/ledgercore/internal/core/domain"
)

func TestCustomerAdvance_DeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    domain.AdvanceStatus
		amount    string
		remaining string
		want      domain.AdvanceStatus
	}{
		{"untouched", domain.AdvanceActive, "500", "500", domain.AdvanceActive},
		{"partially used", domain.AdvanceActive, "500", "200", domain.AdvancePartiallyUsed},
		{"fully used", domain.AdvancePartiallyUsed, "500", "0", domain.AdvanceFullyUsed},
		{"refunded override sticks", domain.AdvanceRefunded, "500", "0", domain.AdvanceRefunded},
		{"cancelled override sticks", domain.AdvanceCancelled, "500", "500", domain.AdvanceCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := domain.CustomerAdvance{
				Status:          tt.status,
				Amount:          decimal.RequireFromString(tt.amount),
				RemainingAmount: decimal.RequireFromString(tt.remaining),
			}
			assert.Equal(t, tt.want, adv.DeriveStatus())
		})
	}
}

func TestCustomerAdvance_Consumable(t *testing.T) {
	adv := domain.CustomerAdvance{
		Status:          domain.AdvanceActive,
		Amount:          decimal.NewFromInt(300),
		RemainingAmount: decimal.NewFromInt(300),
	}
	assert.True(t, adv.Consumable())

	adv.Status = domain.AdvancePartiallyUsed
	adv.RemainingAmount = decimal.NewFromInt(100)
	assert.True(t, adv.Consumable())

	adv.RemainingAmount = decimal.Zero
	assert.False(t, adv.Consumable())

	adv.Status = domain.AdvanceRefunded
	adv.RemainingAmount = decimal.NewFromInt(100)
	assert.False(t, adv.Consumable())

	adv.Status = domain.AdvanceCancelled
	assert.False(t, adv.Consumable())
}

func TestCustomerAdvance_UsedAmount(t *testing.T) {
	adv := domain.CustomerAdvance{
		Amount:          decimal.NewFromInt(500),
		RemainingAmount: decimal.NewFromInt(180),
	}
	assert.True(t, adv.UsedAmount().Equal(decimal.NewFromInt(320)))
}
