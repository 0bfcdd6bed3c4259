package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/google/uuid"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidRun    = errors.New("invalid run")
	ErrInvalidFilter = errors.New("invalid filter")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks a run is complete enough to audit.
func validateRun(run *model.Run) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.ID == uuid.Nil {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if run.Exit.Kind == "" || run.Exit.Reason == "" {
		return fmt.Errorf("%w: run has not exited", ErrInvalidRun)
	}
	if !run.FinalStatus.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRun, run.FinalStatus)
	}
	for i, tr := range run.Transitions {
		if !tr.From.CanTransition(tr.To) {
			return fmt.Errorf("%w: transition %d %s -> %s", ErrInvalidRun, i, tr.From, tr.To)
		}
	}
	return nil
}

func validateFilter(filter service.RunFilter) error {
	if filter.Limit < 0 || filter.Offset < 0 {
		return fmt.Errorf("%w: negative limit or offset", ErrInvalidFilter)
	}
	return nil
}
