// Package display formats transfer values for the terminal front-ends.
package display

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vnd = message.NewPrinter(language.Vietnamese)

// VND formats an amount in Vietnamese dong, rounded to whole units.
func VND(amount decimal.Decimal) string {
	return vnd.Sprintf("%d ₫", amount.Round(0).IntPart())
}

// AccountNumber groups a ten-digit account number as 4-4-2. Other inputs
// are returned unchanged.
func AccountNumber(number string) string {
	if len(number) != 10 {
		return number
	}
	return number[:4] + " " + number[4:8] + " " + number[8:]
}

// Recipient renders "Name (1234 5678 90, bank)".
func Recipient(name, number, bank string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" (")
	b.WriteString(AccountNumber(number))
	if bank != "" {
		b.WriteString(", ")
		b.WriteString(bank)
	}
	b.WriteString(")")
	return b.String()
}

// BalanceAge describes how old a balance snapshot is.
func BalanceAge(asOf, now time.Time) string {
	if asOf.IsZero() {
		return "balance time unknown"
	}
	age := now.Sub(asOf)
	switch {
	case age < time.Minute:
		return "balance as of just now"
	case age < time.Hour:
		return vnd.Sprintf("balance as of %d min ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return vnd.Sprintf("balance as of %d h ago", int(age.Hours()))
	default:
		return "balance as of " + asOf.Format("2006-01-02 15:04")
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
