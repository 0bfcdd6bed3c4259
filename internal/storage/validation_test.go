package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
	"github.com/google/uuid"
)

func TestValidateContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	if err := validateContext(nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("validateContext(nil) = %v, want ErrNilContext", err)
	}
	if err := validateContext(context.Background()); err != nil {
		t.Errorf("validateContext() = %v", err)
	}
}

func TestValidateRun(t *testing.T) {
	tests := []struct {
		modify  func(*model.Run)
		wantErr error
		name    string
	}{
		{name: "valid", modify: func(*model.Run) {}},
		{name: "missing id", modify: func(r *model.Run) { r.ID = uuid.Nil }, wantErr: ErrInvalidRun},
		{name: "missing start", modify: func(r *model.Run) { r.StartedAt = time.Time{} }, wantErr: ErrInvalidRun},
		{name: "not exited", modify: func(r *model.Run) { r.Exit = model.Exit{} }, wantErr: ErrInvalidRun},
		{name: "unknown status", modify: func(r *model.Run) { r.FinalStatus = "done" }, wantErr: ErrInvalidRun},
		{name: "impossible transition", modify: func(r *model.Run) {
			r.Transitions = append(r.Transitions, model.Transition{From: model.StatusLLMWarning, To: model.StatusCheckingLLM})
		}, wantErr: ErrInvalidRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := createTestRun(0, exitSkipped)
			tt.modify(run)
			err := validateRun(run)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateRun() = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateRun() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := validateRun(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("validateRun(nil) = %v, want ErrNilParameter", err)
	}
}

func TestValidateFilter(t *testing.T) {
	if err := validateFilter(service.RunFilter{Limit: 10}); err != nil {
		t.Errorf("validateFilter() = %v", err)
	}
	if err := validateFilter(service.RunFilter{Offset: -1}); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("validateFilter() = %v, want ErrInvalidFilter", err)
	}
}
