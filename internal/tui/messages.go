package tui

import (
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/workflow"
)

// requestMsg asks the user for the decision the snapshot is waiting on.
type requestMsg struct {
	snap  workflow.Snapshot
	state State
}

// redirectMsg starts the countdown shown before confirmation.
type redirectMsg struct {
	delay time.Duration
}

type countdownTickMsg time.Time

type notifyMsg workflow.Notification

// doneMsg reports that the workflow has exited.
type doneMsg struct {
	err  error
	exit model.Exit
}

// promptResult carries one answer back to the waiting Prompter method.
type promptResult struct {
	decision workflow.Decision
	confirm  bool
}
