package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_PersistsControllerRuns(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	recorder := NewRecorder(store)
	scheduler := &workflow.FakeScheduler{}
	api := bankapi.NewMockClient()
	nav := &workflow.RecordingNavigator{}

	c := workflow.New(api, api, nav, workflow.WithObservers(recorder), workflow.WithScheduler(scheduler))
	defer c.Close()

	state := model.NewRouteState(model.TransferIntent{
		SenderAccountID:       5,
		SenderBalance:         decimal.NewFromInt(500_000),
		ReceiverAccountNumber: "1111222233",
		ReceiverBank:          "vigipay",
		ReceiverName:          "Hoang Van E",
		Amount:                decimal.NewFromInt(50_000),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Start(ctx, &state))
	_, err := c.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, scheduler.FireAll())

	snap, err := c.WaitFor(ctx, func(s workflow.Snapshot) bool { return s.Done() })
	require.NoError(t, err)
	require.NoError(t, recorder.Err())

	got, err := store.GetRun(ctx, snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSafe}, got.Exit)
	assert.Equal(t, model.StatusSafe, got.FinalStatus)
	assert.Len(t, got.Transitions, 2)
	assert.True(t, got.Intent.Amount.Equal(decimal.NewFromInt(50_000)))
}

func TestRecorder_ReportsSaveErrors(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	recorder := NewRecorder(store)
	recorder.Finished(model.Run{})
	assert.ErrorIs(t, recorder.Err(), ErrInvalidRun)

	runs, err := store.ListRuns(context.Background(), service.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
