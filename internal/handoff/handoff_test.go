package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIntent(bank string) model.TransferIntent {
	return model.TransferIntent{
		SenderAccountID:       9,
		SenderAccountNumber:   "1234567890",
		SenderBalance:         decimal.NewFromInt(5_000_000),
		BalanceAsOf:           time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
		ReceiverAccountNumber: "0987654321",
		ReceiverBank:          bank,
		ReceiverName:          "Vo Thi F",
		Amount:                decimal.NewFromInt(1_200_000),
		Description:           "school fees",
	}
}

func TestHandoff_KeepsFirstNavigation(t *testing.T) {
	h := New()
	intent := testIntent("vigipay")

	h.Navigate(model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSkipped}, intent)
	h.Navigate(model.Exit{Kind: model.ExitTransferForm, Reason: model.ReasonCancelled}, intent)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	dest, err := h.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.ReasonSkipped, dest.Exit.Reason)
	assert.Equal(t, model.ReasonSkipped, dest.State.Reason)

	got, err := dest.State.Intent()
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(intent.Amount))
	assert.Equal(t, intent.ReceiverName, got.ReceiverName)
}

func TestHandoff_StateSurvivesJSON(t *testing.T) {
	h := New()
	h.Navigate(model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSafe}, testIntent("vigipay"))
	dest, ok := h.Destination()
	require.True(t, ok)

	data, err := json.Marshal(dest.State)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sender_balance"`)
	assert.Contains(t, string(data), `"sender_account_balance"`)

	parsed, err := model.ParseRouteState(data)
	require.NoError(t, err)
	assert.Equal(t, model.ReasonSafe, parsed.Reason)
}

func TestHandoff_WaitHonoursContext(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := h.Destination()
	assert.False(t, ok)
}

func TestConfirmer_Summary(t *testing.T) {
	c := NewConfirmer(bankapi.NewMockClient())

	tests := []struct {
		name          string
		reason        model.ExitReason
		wantErr       error
		wantRemaining string
	}{
		{name: "safe", reason: model.ReasonSafe, wantRemaining: "3800000"},
		{name: "skipped", reason: model.ReasonSkipped, wantRemaining: "3800000"},
		{name: "continued anyway", reason: model.ReasonContinuedAnyway, wantRemaining: "3800000"},
		{name: "cancelled", reason: model.ReasonCancelled, wantErr: ErrNotConfirmable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := model.NewRouteState(testIntent("vigipay"))
			state.Reason = tt.reason

			summary, err := c.Summary(state)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, summary.Fee.IsZero())
			assert.Equal(t, tt.wantRemaining, summary.Remaining.String())
			assert.True(t, summary.Internal)
			assert.Equal(t, "1200000", summary.Total().String())
		})
	}
}

func TestConfirmer_SummaryMissingData(t *testing.T) {
	_, err := NewConfirmer(bankapi.NewMockClient()).Summary(model.RouteState{})
	assert.ErrorIs(t, err, model.ErrMissingRouteState)
}

func TestConfirmer_ExecuteRoutesByBank(t *testing.T) {
	api := bankapi.NewMockClient()
	api.ExecuteInternalTransferFn = func(_ context.Context, req bankapi.InternalTransferRequest) (*bankapi.InternalTransferResult, error) {
		return &bankapi.InternalTransferResult{
			Success:          true,
			TransferID:       77,
			ReceiverName:     "Vo Thi F",
			AmountSent:       decimal.NewFromFloat(req.Amount),
			SenderNewBalance: decimal.NewFromInt(3_800_000),
			Message:          "Transfer completed",
		}, nil
	}
	c := NewConfirmer(api)
	ctx := context.Background()

	internal, err := c.Summary(model.NewRouteState(testIntent("VigiPay")))
	require.NoError(t, err)
	receipt, err := c.Execute(ctx, internal)
	require.NoError(t, err)
	assert.Equal(t, "77", receipt.TransferID)
	assert.True(t, receipt.Internal)
	assert.Equal(t, "3800000", receipt.NewBalance.String())
	require.Len(t, api.InternalTransferCalls, 1)
	assert.Equal(t, "school fees", api.InternalTransferCalls[0].Description)
	assert.Empty(t, api.TransferCalls)

	external, err := c.Summary(model.NewRouteState(testIntent("VCB")))
	require.NoError(t, err)
	receipt, err = c.Execute(ctx, external)
	require.NoError(t, err)
	assert.False(t, receipt.Internal)
	assert.Equal(t, "completed", receipt.Status)
	assert.Equal(t, "1200000", receipt.AmountSent.String())
	require.Len(t, api.TransferCalls, 1)
	assert.Equal(t, "VCB", api.TransferCalls[0].ReceiverBank)
	assert.Equal(t, bankapi.FeePayerSender, api.TransferCalls[0].FeePayer)
}

func TestConfirmer_ExecuteFailure(t *testing.T) {
	api := bankapi.NewMockClient()
	api.ExecuteTransferFn = func(context.Context, bankapi.TransferRequest) (*bankapi.Transfer, error) {
		return nil, &bankapi.APIError{StatusCode: 400, Detail: "Insufficient balance"}
	}
	c := NewConfirmer(api)

	summary, err := c.Summary(model.NewRouteState(testIntent("ACB")))
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), summary)
	var apiErr *bankapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Insufficient balance", apiErr.Detail)
}
