package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/service"
)

var _ service.ReportWriter = (*MockWriter)(nil)

// MockWriter is a mock implementation of service.ReportWriter for testing.
type MockWriter struct {
	WriteFunc   func(ctx context.Context, runs []model.Run, summary *service.RunSummary) error
	LastSummary *service.RunSummary
	LastRuns    []model.Run
	WriteCalls  int
	mu          sync.Mutex
}

// Write records the call and delegates to WriteFunc when set.
func (m *MockWriter) Write(ctx context.Context, runs []model.Run, summary *service.RunSummary) error {
	m.mu.Lock()
	m.WriteCalls++
	m.LastRuns = runs
	m.LastSummary = summary
	fn := m.WriteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, runs, summary)
	}
	return nil
}

// Calls returns how many times Write was called.
func (m *MockWriter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.WriteCalls
}
