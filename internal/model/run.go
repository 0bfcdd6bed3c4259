package model

import (
	"time"

	"github.com/google/uuid"
)

// Transition is one status change of a workflow run.
type Transition struct {
	At   time.Time
	From CheckStatus
	To   CheckStatus
}

// Run is the audit record of one safety workflow.
type Run struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	Exit        Exit
	MLMessage   string
	LLMVerdict  string
	FinalStatus CheckStatus
	Intent      TransferIntent
	Transitions []Transition
	ID          uuid.UUID
}

// NewRun starts an audit record for an intent.
func NewRun(intent TransferIntent, startedAt time.Time) *Run {
	return &Run{
		ID:          uuid.New(),
		Intent:      intent,
		StartedAt:   startedAt,
		FinalStatus: StatusIdle,
	}
}

// Bypassed reports whether the run ended with a forced continuation.
func (r *Run) Bypassed() bool {
	return r.Exit.IsBypass()
}

// Duration is the wall time between start and finish.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
