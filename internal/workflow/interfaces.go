package workflow

import (
	"context"
	"time"

	"github.com/Veraticus/vigil/internal/model"
)

// Navigator hands control to the step that follows the safety check.
// It is called exactly once per run, with the intent unchanged.
type Navigator interface {
	Navigate(exit model.Exit, intent model.TransferIntent)
}

// Notifier surfaces short user-facing messages.
type Notifier interface {
	Notify(n Notification)
}

// Observer receives run telemetry. Calls are made outside the
// controller's lock and must not block.
type Observer interface {
	CheckCompleted(check Check, outcome Outcome, elapsed time.Duration)
	Finished(run model.Run)
}

// Prompter collects the user decisions the workflow needs.
type Prompter interface {
	// ConfirmHighAmount returns true to continue past the amount warning.
	ConfirmHighAmount(ctx context.Context, snap Snapshot) (bool, error)
	// ResolveMLWarning returns the context to analyse, or a skip.
	ResolveMLWarning(ctx context.Context, snap Snapshot) (Decision, error)
	// ResolveLLMWarning returns true to continue despite the verdict.
	ResolveLLMWarning(ctx context.Context, snap Snapshot) (bool, error)
	// AcknowledgeError blocks until the user chooses to go back.
	AcknowledgeError(ctx context.Context, snap Snapshot) error
	// ShowRedirect tells the user navigation follows after delay.
	ShowRedirect(ctx context.Context, delay time.Duration)
}

// Scheduler runs a function after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled call that can be stopped.
type Timer interface {
	Stop() bool
}

// Decision is the user's answer at an ML warning.
type Decision struct {
	Context string
	Skip    bool
	Cancel  bool
}

// Check identifies a remote check.
type Check string

// Remote checks.
const (
	CheckML  Check = "ml"
	CheckLLM Check = "llm"
)

// Outcome is how a remote check resolved.
type Outcome string

// Check outcomes.
const (
	OutcomeSafe    Outcome = "safe"
	OutcomeWarning Outcome = "warning"
	OutcomeError   Outcome = "error"
)

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
