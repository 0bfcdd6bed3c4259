package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validIntent() TransferIntent {
	return TransferIntent{
		SenderAccountID:       7,
		SenderAccountNumber:   "1234567890",
		SenderBalance:         decimal.NewFromInt(10_000_000),
		ReceiverAccountNumber: "0987654321",
		ReceiverBank:          "vigipay",
		ReceiverName:          "Tran Thi B",
		Amount:                decimal.NewFromInt(200_000),
		Description:           "rent",
	}
}

func TestTransferIntent_Validate(t *testing.T) {
	tests := []struct {
		modify  func(*TransferIntent)
		name    string
		wantErr bool
	}{
		{name: "valid", modify: func(*TransferIntent) {}},
		{name: "missing sender", modify: func(i *TransferIntent) { i.SenderAccountID = 0 }, wantErr: true},
		{name: "zero amount", modify: func(i *TransferIntent) { i.Amount = decimal.Zero }, wantErr: true},
		{name: "negative amount", modify: func(i *TransferIntent) { i.Amount = decimal.NewFromInt(-5) }, wantErr: true},
		{name: "short account number", modify: func(i *TransferIntent) { i.ReceiverAccountNumber = "12345" }, wantErr: true},
		{name: "non-digit account number", modify: func(i *TransferIntent) { i.ReceiverAccountNumber = "12345abcde" }, wantErr: true},
		{name: "blank receiver name", modify: func(i *TransferIntent) { i.ReceiverName = "  " }, wantErr: true},
		{name: "missing bank", modify: func(i *TransferIntent) { i.ReceiverBank = "" }, wantErr: true},
		{name: "description too long", modify: func(i *TransferIntent) {
			b := make([]rune, MaxDescriptionLength+1)
			for j := range b {
				b[j] = 'x'
			}
			i.Description = string(b)
		}, wantErr: true},
		{name: "zero balance is allowed", modify: func(i *TransferIntent) { i.SenderBalance = decimal.Zero }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := validIntent()
			tt.modify(&intent)
			err := intent.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIntent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransferIntent_Helpers(t *testing.T) {
	intent := validIntent()
	assert.True(t, intent.IsInternal())
	assert.True(t, intent.HasBalance())
	assert.True(t, intent.RemainingBalance().Equal(decimal.NewFromInt(9_800_000)))

	intent.ReceiverBank = "VCB"
	assert.False(t, intent.IsInternal())

	first := validIntent().Fingerprint()
	second := validIntent().Fingerprint()
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	changed := validIntent()
	changed.Amount = decimal.NewFromInt(200_001)
	assert.NotEqual(t, first, changed.Fingerprint())
}

func TestCheckStatus_Transitions(t *testing.T) {
	tests := []struct {
		from CheckStatus
		to   CheckStatus
		want bool
	}{
		{StatusIdle, StatusHighAmount, true},
		{StatusIdle, StatusCheckingML, true},
		{StatusHighAmount, StatusCheckingML, true},
		{StatusCheckingML, StatusSafe, true},
		{StatusCheckingML, StatusMLWarning, true},
		{StatusCheckingML, StatusError, true},
		{StatusMLWarning, StatusCheckingLLM, true},
		{StatusCheckingLLM, StatusMLWarning, true},
		{StatusCheckingLLM, StatusLLMWarning, true},
		{StatusCheckingLLM, StatusSafe, true},
		{StatusLLMWarning, StatusCheckingLLM, false},
		{StatusSafe, StatusCheckingML, false},
		{StatusError, StatusCheckingML, false},
		{StatusMLWarning, StatusCheckingML, false},
		{StatusHighAmount, StatusSafe, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestCheckStatus_Classification(t *testing.T) {
	assert.True(t, StatusCheckingML.IsChecking())
	assert.True(t, StatusCheckingLLM.IsChecking())
	assert.False(t, StatusMLWarning.IsChecking())
	assert.True(t, StatusSafe.IsValid())
	assert.False(t, CheckStatus("done").IsValid())
}

func TestExit(t *testing.T) {
	assert.True(t, Exit{Kind: ExitConfirmation, Reason: ReasonSkipped}.IsBypass())
	assert.True(t, Exit{Kind: ExitConfirmation, Reason: ReasonContinuedAnyway}.IsBypass())
	assert.False(t, Exit{Kind: ExitConfirmation, Reason: ReasonSafe}.IsBypass())
	assert.False(t, Exit{Kind: ExitTransferForm, Reason: ReasonCancelled}.ProceedsToConfirmation())
	assert.Equal(t, "confirmation/safe", Exit{Kind: ExitConfirmation, Reason: ReasonSafe}.String())
}

func TestRouteState_RoundTripKeepsIntent(t *testing.T) {
	intent := validIntent()
	intent.BalanceAsOf = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	state := NewRouteState(intent)
	require.NotNil(t, state.SenderBalance)
	require.NotNil(t, state.SenderAccountBalance)

	got, err := state.Intent()
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(intent.Amount))
	assert.True(t, got.SenderBalance.Equal(intent.SenderBalance))
	assert.Equal(t, intent.ReceiverAccountNumber, got.ReceiverAccountNumber)
	assert.Equal(t, intent.BalanceAsOf, got.BalanceAsOf)
}

func TestParseRouteState(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantBalance string
		wantErr     error
	}{
		{name: "empty", payload: "", wantErr: ErrMissingRouteState},
		{name: "null", payload: "null", wantErr: ErrMissingRouteState},
		{name: "empty object", payload: "{}", wantErr: ErrMissingRouteState},
		{
			name:        "form key",
			payload:     `{"sender_account_id":1,"sender_balance":1000000,"receiver_account_number":"0987654321","receiver_bank":"vigipay","receiver_name":"B","amount":950000}`,
			wantBalance: "1000000",
		},
		{
			name:        "page key",
			payload:     `{"sender_account_id":1,"sender_account_balance":"2000000","receiver_account_number":"0987654321","receiver_bank":"vigipay","receiver_name":"B","amount":"10000"}`,
			wantBalance: "2000000",
		},
		{
			name:    "missing amount",
			payload: `{"sender_account_id":1,"receiver_account_number":"0987654321"}`,
			wantErr: ErrMissingRouteState,
		},
		{
			name:        "sender and amount only",
			payload:     `{"sender_account_id":11,"amount":200000}`,
			wantBalance: "0",
		},
		{
			name:    "negative amount",
			payload: `{"sender_account_id":11,"amount":-500000,"sender_balance":1000000}`,
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "missing sender",
			payload: `{"amount":200000,"receiver_account_number":"0987654321"}`,
			wantErr: ErrMissingRouteState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := ParseRouteState([]byte(tt.payload))
			if err == nil {
				var intent TransferIntent
				intent, err = state.Intent()
				if err == nil {
					assert.Equal(t, tt.wantBalance, intent.SenderBalance.String())
				}
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
