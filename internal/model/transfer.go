// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// InternalBank is the bank code for transfers that stay inside VigiPay.
const InternalBank = "vigipay"

// MaxDescriptionLength mirrors the column limit enforced by the transfer API.
const MaxDescriptionLength = 255

// ErrInvalidIntent indicates a transfer intent failed validation.
var ErrInvalidIntent = errors.New("invalid transfer intent")

// TransferIntent is the in-flight transfer under evaluation.
// It is passed by value through every step and never mutated once the
// safety workflow has started.
type TransferIntent struct {
	BalanceAsOf           time.Time
	SenderAccountNumber   string
	ReceiverAccountNumber string
	ReceiverBank          string
	ReceiverName          string
	Description           string
	SenderBalance         decimal.Decimal
	Amount                decimal.Decimal
	SenderAccountID       int64
}

// Validate checks the fields the transfer form requires.
func (t TransferIntent) Validate() error {
	if t.SenderAccountID <= 0 {
		return fmt.Errorf("%w: missing sender account", ErrInvalidIntent)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidIntent)
	}
	if !isAccountNumber(t.ReceiverAccountNumber) {
		return fmt.Errorf("%w: receiver account number must be 10 digits", ErrInvalidIntent)
	}
	if strings.TrimSpace(t.ReceiverName) == "" {
		return fmt.Errorf("%w: missing receiver name", ErrInvalidIntent)
	}
	if strings.TrimSpace(t.ReceiverBank) == "" {
		return fmt.Errorf("%w: missing receiver bank", ErrInvalidIntent)
	}
	if len([]rune(t.Description)) > MaxDescriptionLength {
		return fmt.Errorf("%w: description longer than %d characters", ErrInvalidIntent, MaxDescriptionLength)
	}
	return nil
}

// IsInternal reports whether the receiver is another VigiPay account.
func (t TransferIntent) IsInternal() bool {
	return strings.EqualFold(t.ReceiverBank, InternalBank)
}

// HasBalance reports whether a usable balance snapshot is attached.
func (t TransferIntent) HasBalance() bool {
	return t.SenderBalance.IsPositive()
}

// RemainingBalance is the snapshot balance minus the amount.
func (t TransferIntent) RemainingBalance() decimal.Decimal {
	return t.SenderBalance.Sub(t.Amount)
}

// Fingerprint creates a stable hash identifying the transfer for audit records.
func (t TransferIntent) Fingerprint() string {
	data := fmt.Sprintf("%d:%s:%s:%s:%s",
		t.SenderAccountID,
		t.Amount.String(),
		t.ReceiverBank,
		t.ReceiverAccountNumber,
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func isAccountNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
