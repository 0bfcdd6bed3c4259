// Package guard holds the local, pre-network checks run on a transfer
// before any remote safety check is made.
package guard

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultThresholdPercent is the share of the balance above which a transfer
// needs explicit confirmation.
const DefaultThresholdPercent = 90

var hundred = decimal.NewFromInt(100)

// Decision is the outcome of the amount threshold check.
type Decision struct {
	Message    string
	Percentage decimal.Decimal
	Triggered  bool
	// Skipped is set when the amount or balance was missing and no
	// comparison was made.
	Skipped bool
}

// AmountThreshold flags transfers that move most of the sender's balance.
type AmountThreshold struct {
	threshold decimal.Decimal
}

// NewAmountThreshold creates a guard. A non-positive percent selects
// DefaultThresholdPercent.
func NewAmountThreshold(percent float64) *AmountThreshold {
	if percent <= 0 {
		percent = DefaultThresholdPercent
	}
	return &AmountThreshold{threshold: decimal.NewFromFloat(percent)}
}

// Threshold returns the configured percentage.
func (g *AmountThreshold) Threshold() decimal.Decimal {
	return g.threshold
}

// Evaluate compares amount against balance. The guard fails open: a zero or
// absent value on either side skips the check.
func (g *AmountThreshold) Evaluate(amount, balance decimal.Decimal) Decision {
	if !amount.IsPositive() || !balance.IsPositive() {
		return Decision{Skipped: true}
	}

	percentage := amount.Div(balance).Mul(hundred)
	if !percentage.GreaterThan(g.threshold) {
		return Decision{Percentage: percentage}
	}

	return Decision{
		Triggered:  true,
		Percentage: percentage,
		Message:    FormatMessage(percentage),
	}
}

// FormatMessage renders the confirmation prompt for a percentage.
func FormatMessage(percentage decimal.Decimal) string {
	return fmt.Sprintf("You are transferring %s%% of your account balance. Please confirm this is intentional.",
		percentage.StringFixed(1))
}
