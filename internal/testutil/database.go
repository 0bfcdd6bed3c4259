// Package testutil provides test helpers for packages that need an audit
// database or canned workflow runs.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/Veraticus/vigil/internal/storage"
	"github.com/shopspring/decimal"
)

// TestDB is a migrated in-memory audit database.
type TestDB struct {
	Storage service.RunStore
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database seeded with runs. It
// is closed automatically when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewRun().Bypassed().Build(),
//		testutil.NewRun().At(start).Build(),
//	)
func SetupTestDB(t *testing.T, runs ...*model.Run) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t}
	db.Seed(runs...)
	return db
}

// Seed saves runs or fails the test.
func (db *TestDB) Seed(runs ...*model.Run) {
	db.t.Helper()
	for _, run := range runs {
		if err := db.Storage.SaveRun(context.Background(), run); err != nil {
			db.t.Fatalf("failed to seed run %s: %v", run.ID, err)
		}
	}
}

// RunBuilder builds finished workflow runs for tests.
type RunBuilder struct {
	run *model.Run
}

// DefaultStart is the start time of runs built without At.
var DefaultStart = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// NewRun starts a run that cleared the ML check and was handed to
// confirmation.
func NewRun() *RunBuilder {
	run := model.NewRun(model.TransferIntent{
		SenderAccountID:       1,
		SenderAccountNumber:   "1000000001",
		SenderBalance:         decimal.NewFromInt(2_000_000),
		ReceiverAccountNumber: "2000000002",
		ReceiverBank:          model.InternalBank,
		ReceiverName:          "Test Receiver",
		Amount:                decimal.NewFromInt(100_000),
	}, DefaultStart)
	run.FinalStatus = model.StatusSafe
	run.Exit = model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSafe}
	run.Transitions = []model.Transition{
		{From: model.StatusIdle, To: model.StatusCheckingML, At: DefaultStart},
		{From: model.StatusCheckingML, To: model.StatusSafe, At: DefaultStart.Add(time.Second)},
	}
	run.FinishedAt = DefaultStart.Add(3 * time.Second)
	return &RunBuilder{run: run}
}

// At shifts the run so it starts at start.
func (b *RunBuilder) At(start time.Time) *RunBuilder {
	shift := start.Sub(b.run.StartedAt)
	b.run.StartedAt = start
	b.run.FinishedAt = b.run.FinishedAt.Add(shift)
	for i := range b.run.Transitions {
		b.run.Transitions[i].At = b.run.Transitions[i].At.Add(shift)
	}
	return b
}

// Amount sets the transfer amount.
func (b *RunBuilder) Amount(amount int64) *RunBuilder {
	b.run.Intent.Amount = decimal.NewFromInt(amount)
	return b
}

// Bypassed makes the run end with a skip from the ML warning.
func (b *RunBuilder) Bypassed() *RunBuilder {
	at := b.run.StartedAt.Add(time.Second)
	b.run.Transitions = []model.Transition{
		{From: model.StatusIdle, To: model.StatusCheckingML, At: b.run.StartedAt},
		{From: model.StatusCheckingML, To: model.StatusMLWarning, At: at},
	}
	b.run.FinalStatus = model.StatusMLWarning
	b.run.MLMessage = "Transaction may be fraudulent (confidence: 88.00%)"
	b.run.Exit = model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSkipped}
	return b
}

// Cancelled makes the run end at the transfer form after an LLM warning.
func (b *RunBuilder) Cancelled() *RunBuilder {
	b.Bypassed()
	at := b.run.StartedAt.Add(2 * time.Second)
	b.run.Transitions = append(b.run.Transitions,
		model.Transition{From: model.StatusMLWarning, To: model.StatusCheckingLLM, At: at},
		model.Transition{From: model.StatusCheckingLLM, To: model.StatusLLMWarning, At: at.Add(time.Second)},
	)
	b.run.FinalStatus = model.StatusLLMWarning
	b.run.LLMVerdict = "This is a scam"
	b.run.Exit = model.Exit{Kind: model.ExitTransferForm, Reason: model.ReasonCancelled}
	return b
}

// Build returns the run.
func (b *RunBuilder) Build() *model.Run {
	return b.run
}
