package guard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountThreshold_Evaluate(t *testing.T) {
	tests := []struct {
		name        string
		amount      decimal.Decimal
		balance     decimal.Decimal
		wantPercent string
		wantMessage string
		wantTrigger bool
		wantSkipped bool
	}{
		{
			name:        "ninety five percent triggers",
			amount:      decimal.NewFromInt(950_000),
			balance:     decimal.NewFromInt(1_000_000),
			wantTrigger: true,
			wantPercent: "95.0",
			wantMessage: "You are transferring 95.0% of your account balance. Please confirm this is intentional.",
		},
		{
			name:        "two percent passes",
			amount:      decimal.NewFromInt(20_000),
			balance:     decimal.NewFromInt(1_000_000),
			wantPercent: "2.0",
		},
		{
			name:        "exactly ninety percent passes",
			amount:      decimal.NewFromInt(900_000),
			balance:     decimal.NewFromInt(1_000_000),
			wantPercent: "90.0",
		},
		{
			name:        "just above ninety percent triggers",
			amount:      decimal.NewFromInt(900_001),
			balance:     decimal.NewFromInt(1_000_000),
			wantTrigger: true,
			wantPercent: "90.0",
			wantMessage: "You are transferring 90.0% of your account balance. Please confirm this is intentional.",
		},
		{
			name:        "more than the balance triggers",
			amount:      decimal.NewFromInt(1_500_000),
			balance:     decimal.NewFromInt(1_000_000),
			wantTrigger: true,
			wantPercent: "150.0",
			wantMessage: "You are transferring 150.0% of your account balance. Please confirm this is intentional.",
		},
		{
			name:        "zero balance skips",
			amount:      decimal.NewFromInt(950_000),
			balance:     decimal.Zero,
			wantSkipped: true,
		},
		{
			name:        "zero amount skips",
			amount:      decimal.Zero,
			balance:     decimal.NewFromInt(1_000_000),
			wantSkipped: true,
		},
	}

	g := NewAmountThreshold(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Evaluate(tt.amount, tt.balance)
			assert.Equal(t, tt.wantTrigger, got.Triggered)
			assert.Equal(t, tt.wantSkipped, got.Skipped)
			assert.Equal(t, tt.wantMessage, got.Message)
			if !tt.wantSkipped {
				assert.Equal(t, tt.wantPercent, got.Percentage.StringFixed(1))
			}
		})
	}
}

func TestNewAmountThreshold_CustomPercent(t *testing.T) {
	g := NewAmountThreshold(50)
	assert.Equal(t, "50", g.Threshold().String())

	got := g.Evaluate(decimal.NewFromInt(600), decimal.NewFromInt(1000))
	assert.True(t, got.Triggered)

	assert.Equal(t, "90", NewAmountThreshold(-1).Threshold().String())
}
