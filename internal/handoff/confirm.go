package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/shopspring/decimal"
)

// ErrNotConfirmable indicates the route state came from an exit that does
// not lead to confirmation.
var ErrNotConfirmable = errors.New("transfer was not cleared for confirmation")

// Summary is what the user reviews before executing a transfer.
type Summary struct {
	BalanceAsOf time.Time
	Intent      model.TransferIntent
	Fee         decimal.Decimal
	Remaining   decimal.Decimal
	Reason      model.ExitReason
	Internal    bool
}

// Total is the amount leaving the sender's account.
func (s Summary) Total() decimal.Decimal {
	return s.Intent.Amount.Add(s.Fee)
}

// Receipt describes an executed transfer.
type Receipt struct {
	TransferID   string
	Status       string
	Message      string
	ReceiverName string
	AmountSent   decimal.Decimal
	Fee          decimal.Decimal
	NewBalance   decimal.Decimal
	Internal     bool
}

// Confirmer runs the confirmation step.
type Confirmer struct {
	executor bankapi.TransferExecutor
	logger   *slog.Logger
}

// NewConfirmer creates a confirmer that executes through executor.
func NewConfirmer(executor bankapi.TransferExecutor) *Confirmer {
	return &Confirmer{
		executor: executor,
		logger:   slog.Default().With("component", "confirm"),
	}
}

// Summary prepares the review shown before execution. The fee is always
// zero and the remaining balance uses the snapshot taken with the form.
func (c *Confirmer) Summary(state model.RouteState) (Summary, error) {
	intent, err := state.Intent()
	if err != nil {
		return Summary{}, err
	}
	switch state.Reason {
	case "", model.ReasonSafe, model.ReasonSkipped, model.ReasonContinuedAnyway:
	default:
		return Summary{}, fmt.Errorf("%w: %s", ErrNotConfirmable, state.Reason)
	}

	summary := Summary{
		Intent:      intent,
		Fee:         decimal.Zero,
		Reason:      state.Reason,
		Internal:    intent.IsInternal(),
		BalanceAsOf: intent.BalanceAsOf,
	}
	if intent.HasBalance() {
		summary.Remaining = intent.RemainingBalance().Sub(summary.Fee)
	}
	return summary, nil
}

// Execute performs the transfer described by summary. Internal receivers go
// through the internal endpoint; every other bank goes through the general
// transfers endpoint.
func (c *Confirmer) Execute(ctx context.Context, summary Summary) (*Receipt, error) {
	intent := summary.Intent

	if summary.Internal {
		result, err := c.executor.ExecuteInternalTransfer(ctx, bankapi.NewInternalTransferRequest(intent))
		if err != nil {
			c.logger.Error("Internal transfer failed", "receiver", intent.ReceiverAccountNumber, "error", err)
			return nil, err
		}
		c.logger.Info("Internal transfer completed", "transfer_id", result.TransferID)
		return &Receipt{
			TransferID:   strconv.FormatInt(result.TransferID, 10),
			Status:       "completed",
			Message:      result.Message,
			ReceiverName: result.ReceiverName,
			AmountSent:   result.AmountSent,
			Fee:          result.Fee,
			NewBalance:   result.SenderNewBalance,
			Internal:     true,
		}, nil
	}

	transfer, err := c.executor.ExecuteTransfer(ctx, bankapi.NewTransferRequest(intent))
	if err != nil {
		c.logger.Error("Transfer failed", "receiver_bank", intent.ReceiverBank, "error", err)
		return nil, err
	}
	c.logger.Info("Transfer created", "transfer_id", transfer.ID, "status", transfer.Status)

	receipt := &Receipt{
		TransferID:   strconv.FormatInt(transfer.ID, 10),
		Status:       transfer.Status,
		ReceiverName: intent.ReceiverName,
		AmountSent:   transfer.Amount,
		Fee:          transfer.Fee,
	}
	if transfer.ReceiverName != nil {
		receipt.ReceiverName = *transfer.ReceiverName
	}
	if receipt.AmountSent.IsZero() {
		receipt.AmountSent = intent.Amount
	}
	if summary.Intent.HasBalance() {
		receipt.NewBalance = summary.Intent.SenderBalance.Sub(receipt.AmountSent).Sub(receipt.Fee)
	}
	return receipt, nil
}
