// Package handoff carries a transfer out of the safety check and into the
// confirmation step.
package handoff

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/workflow"
)

// Destination records where the workflow sent the transfer.
type Destination struct {
	At    time.Time
	State model.RouteState
	Exit  model.Exit
}

// Handoff is the workflow.Navigator used by the front-ends. It keeps the
// first navigation and ignores any later one.
type Handoff struct {
	dest   *Destination
	done   chan struct{}
	now    func() time.Time
	logger *slog.Logger
	mu     sync.Mutex
}

var _ workflow.Navigator = (*Handoff)(nil)

// New creates an empty handoff.
func New() *Handoff {
	return &Handoff{
		done:   make(chan struct{}),
		now:    time.Now,
		logger: slog.Default().With("component", "handoff"),
	}
}

// Navigate implements workflow.Navigator.
func (h *Handoff) Navigate(exit model.Exit, intent model.TransferIntent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dest != nil {
		h.logger.Warn("Ignoring second navigation", "exit", exit.String(), "first", h.dest.Exit.String())
		return
	}

	state := model.NewRouteState(intent)
	state.Reason = exit.Reason
	h.dest = &Destination{
		At:    h.now(),
		State: state,
		Exit:  exit,
	}
	close(h.done)

	h.logger.Debug("Handed off transfer", "exit", exit.String())
}

// Destination returns the recorded navigation, if any.
func (h *Handoff) Destination() (Destination, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dest == nil {
		return Destination{}, false
	}
	return *h.dest, true
}

// Wait blocks until the workflow navigates or ctx ends.
func (h *Handoff) Wait(ctx context.Context) (Destination, error) {
	select {
	case <-h.done:
		dest, _ := h.Destination()
		return dest, nil
	case <-ctx.Done():
		return Destination{}, ctx.Err()
	}
}
