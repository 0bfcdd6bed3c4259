package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingRouteState indicates a step was entered without the transfer data
// the previous step should have handed over.
var ErrMissingRouteState = errors.New("missing transfer data")

// RouteState is the navigation payload carried between the transfer form,
// the safety check and the confirmation step.
//
// The balance is written under both sender_balance and
// sender_account_balance. Readers accept either key.
type RouteState struct {
	SenderBalance         *decimal.Decimal `json:"sender_balance,omitempty"`
	SenderAccountBalance  *decimal.Decimal `json:"sender_account_balance,omitempty"`
	BalanceAsOf           *time.Time       `json:"balance_as_of,omitempty"`
	SenderAccountNumber   string           `json:"sender_account_number,omitempty"`
	ReceiverAccountNumber string           `json:"receiver_account_number,omitempty"`
	ReceiverBank          string           `json:"receiver_bank"`
	ReceiverName          string           `json:"receiver_name"`
	Description           string           `json:"description,omitempty"`
	Reason                ExitReason       `json:"reason,omitempty"`
	Amount                decimal.Decimal  `json:"amount"`
	SenderAccountID       int64            `json:"sender_account_id"`
}

// NewRouteState packages an intent for navigation.
func NewRouteState(intent TransferIntent) RouteState {
	state := RouteState{
		SenderAccountID:       intent.SenderAccountID,
		SenderAccountNumber:   intent.SenderAccountNumber,
		ReceiverAccountNumber: intent.ReceiverAccountNumber,
		ReceiverBank:          intent.ReceiverBank,
		ReceiverName:          intent.ReceiverName,
		Amount:                intent.Amount,
		Description:           intent.Description,
	}
	if intent.HasBalance() {
		balance := intent.SenderBalance
		state.SenderBalance = &balance
		state.SenderAccountBalance = &balance
	}
	if !intent.BalanceAsOf.IsZero() {
		asOf := intent.BalanceAsOf
		state.BalanceAsOf = &asOf
	}
	return state
}

// ParseRouteState decodes a navigation payload. An empty payload is reported
// as ErrMissingRouteState.
func ParseRouteState(data []byte) (*RouteState, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, ErrMissingRouteState
	}

	var state RouteState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode route state: %w", err)
	}
	return &state, nil
}

// Balance returns the sender balance from whichever key carried it.
func (r RouteState) Balance() (decimal.Decimal, bool) {
	if r.SenderAccountBalance != nil {
		return *r.SenderAccountBalance, true
	}
	if r.SenderBalance != nil {
		return *r.SenderBalance, true
	}
	return decimal.Zero, false
}

// Intent rebuilds the transfer intent. Only the sender account and the amount
// are required; it fails with ErrMissingRouteState when either is absent and
// with ErrInvalidIntent for a negative amount. Receiver details are optional.
func (r RouteState) Intent() (TransferIntent, error) {
	if r.SenderAccountID <= 0 || r.Amount.IsZero() {
		return TransferIntent{}, ErrMissingRouteState
	}
	if !r.Amount.IsPositive() {
		return TransferIntent{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidIntent)
	}

	intent := TransferIntent{
		SenderAccountID:       r.SenderAccountID,
		SenderAccountNumber:   r.SenderAccountNumber,
		ReceiverAccountNumber: r.ReceiverAccountNumber,
		ReceiverBank:          r.ReceiverBank,
		ReceiverName:          r.ReceiverName,
		Amount:                r.Amount,
		Description:           r.Description,
	}
	if balance, ok := r.Balance(); ok {
		intent.SenderBalance = balance
	}
	if r.BalanceAsOf != nil {
		intent.BalanceAsOf = *r.BalanceAsOf
	}
	return intent, nil
}
