// Package service defines the interfaces shared between the workflow's
// collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/google/uuid"
)

// RunFilter defines filtering options for audit queries.
type RunFilter struct {
	Since        *time.Time
	Limit        int
	Offset       int
	BypassedOnly bool
}

// RunStore persists workflow audit records.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	SummarizeRuns(ctx context.Context, since *time.Time) (*RunSummary, error)

	Migrate(ctx context.Context) error
	Close() error
}

// RunSummary aggregates audit records.
type RunSummary struct {
	ByExit   map[model.Exit]int
	Total    int
	Bypassed int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ReportWriter exports audit records to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, runs []model.Run, summary *RunSummary) error
}
