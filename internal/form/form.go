// Package form builds the transfer intent the safety workflow evaluates.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/vigil/internal/balance"
	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/shopspring/decimal"
)

// ErrRecipientNotFound indicates an internal account number that does not
// exist.
var ErrRecipientNotFound = errors.New("recipient account not found")

// Input is what the user typed into the transfer form.
type Input struct {
	ReceiverAccountNumber string
	ReceiverBank          string
	ReceiverName          string
	Description           string
	Amount                decimal.Decimal
	SenderAccountID       int64
}

// FromIntent pre-fills the form from an earlier intent.
func FromIntent(intent model.TransferIntent) Input {
	return Input{
		SenderAccountID:       intent.SenderAccountID,
		ReceiverAccountNumber: intent.ReceiverAccountNumber,
		ReceiverBank:          intent.ReceiverBank,
		ReceiverName:          intent.ReceiverName,
		Description:           intent.Description,
		Amount:                intent.Amount,
	}
}

// Builder turns form input into a validated intent.
type Builder struct {
	balances balance.Source
	accounts bankapi.AccountReader
	logger   *slog.Logger
}

// NewBuilder creates a builder. accounts may be nil, in which case internal
// recipients are not looked up.
func NewBuilder(balances balance.Source, accounts bankapi.AccountReader) *Builder {
	return &Builder{
		balances: balances,
		accounts: accounts,
		logger:   slog.Default().With("component", "form"),
	}
}

// Build resolves the recipient, takes the balance snapshot and validates
// the result. A balance that cannot be read leaves the intent without one,
// which skips the amount guard.
func (b *Builder) Build(ctx context.Context, in Input) (model.TransferIntent, error) {
	intent := model.TransferIntent{
		SenderAccountID:       in.SenderAccountID,
		ReceiverAccountNumber: strings.TrimSpace(in.ReceiverAccountNumber),
		ReceiverBank:          strings.TrimSpace(in.ReceiverBank),
		ReceiverName:          strings.TrimSpace(in.ReceiverName),
		Description:           strings.TrimSpace(in.Description),
		Amount:                in.Amount,
	}

	if intent.IsInternal() && b.accounts != nil && intent.ReceiverAccountNumber != "" {
		if err := b.resolveRecipient(ctx, &intent); err != nil {
			return model.TransferIntent{}, err
		}
	}

	if b.balances != nil {
		snap, err := b.balances.Snapshot(ctx, intent.SenderAccountID)
		if err != nil {
			b.logger.Warn("Balance unavailable, amount guard will be skipped", "error", err)
		} else {
			intent.SenderBalance = snap.Amount
			intent.BalanceAsOf = snap.AsOf
			intent.SenderAccountNumber = snap.AccountNumber
			b.logger.Debug("Took balance snapshot", "source", snap.Source, "as_of", snap.AsOf)
		}
	}

	if err := intent.Validate(); err != nil {
		return model.TransferIntent{}, err
	}
	return intent, nil
}

func (b *Builder) resolveRecipient(ctx context.Context, intent *model.TransferIntent) error {
	lookup, err := b.accounts.LookupAccount(ctx, intent.ReceiverAccountNumber)
	if err != nil {
		return fmt.Errorf("failed to look up recipient: %w", err)
	}
	if !lookup.Exists {
		return fmt.Errorf("%w: %s", ErrRecipientNotFound, intent.ReceiverAccountNumber)
	}

	holder := strings.TrimSpace(lookup.AccountHolderName)
	if holder == "" {
		return nil
	}
	if intent.ReceiverName != "" && !strings.EqualFold(intent.ReceiverName, holder) {
		b.logger.Warn("Recipient name differs from account holder",
			"entered", intent.ReceiverName,
			"holder", holder)
	}
	intent.ReceiverName = holder
	return nil
}
