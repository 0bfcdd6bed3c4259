package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/Veraticus/vigil/internal/workflow"
)

const defaultRecordTimeout = 5 * time.Second

// Recorder persists every finished workflow run. It implements
// workflow.Observer.
type Recorder struct {
	store   service.RunStore
	logger  *slog.Logger
	lastErr error
	timeout time.Duration
	mu      sync.Mutex
}

var _ workflow.Observer = (*Recorder)(nil)

// NewRecorder creates an audit recorder backed by store.
func NewRecorder(store service.RunStore) *Recorder {
	return &Recorder{
		store:   store,
		logger:  slog.Default().With("component", "audit"),
		timeout: defaultRecordTimeout,
	}
}

// CheckCompleted implements workflow.Observer. Individual checks are
// captured through the run's transitions.
func (r *Recorder) CheckCompleted(workflow.Check, workflow.Outcome, time.Duration) {}

// Finished implements workflow.Observer.
func (r *Recorder) Finished(run model.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.store.SaveRun(ctx, &run)

	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Failed to record workflow run", "run_id", run.ID, "error", err)
		return
	}
	r.logger.Debug("Recorded workflow run", "run_id", run.ID, "exit", run.Exit.String())
}

// Err returns the result of the most recent save.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}
