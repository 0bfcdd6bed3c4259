package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Veraticus/vigil/internal/model"
)

// ErrNoScriptedAnswer is returned by MockPrompter when it runs out of answers.
var ErrNoScriptedAnswer = errors.New("mock prompter has no scripted answer")

// MockPrompter answers prompts from scripted queues and records every call.
type MockPrompter struct {
	HighAmountAnswers []bool
	MLDecisions       []Decision
	LLMAnswers        []bool

	Calls     []model.CheckStatus
	Redirects []time.Duration
	mu        sync.Mutex
}

// NewMockPrompter creates an empty scripted prompter.
func NewMockPrompter() *MockPrompter {
	return &MockPrompter{}
}

// ConfirmHighAmount implements Prompter.
func (m *MockPrompter) ConfirmHighAmount(_ context.Context, snap Snapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, snap.Status)
	if len(m.HighAmountAnswers) == 0 {
		return false, ErrNoScriptedAnswer
	}
	answer := m.HighAmountAnswers[0]
	m.HighAmountAnswers = m.HighAmountAnswers[1:]
	return answer, nil
}

// ResolveMLWarning implements Prompter.
func (m *MockPrompter) ResolveMLWarning(_ context.Context, snap Snapshot) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, snap.Status)
	if len(m.MLDecisions) == 0 {
		return Decision{}, ErrNoScriptedAnswer
	}
	decision := m.MLDecisions[0]
	m.MLDecisions = m.MLDecisions[1:]
	return decision, nil
}

// ResolveLLMWarning implements Prompter.
func (m *MockPrompter) ResolveLLMWarning(_ context.Context, snap Snapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, snap.Status)
	if len(m.LLMAnswers) == 0 {
		return false, ErrNoScriptedAnswer
	}
	answer := m.LLMAnswers[0]
	m.LLMAnswers = m.LLMAnswers[1:]
	return answer, nil
}

// AcknowledgeError implements Prompter.
func (m *MockPrompter) AcknowledgeError(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, snap.Status)
	return nil
}

// ShowRedirect implements Prompter.
func (m *MockPrompter) ShowRedirect(_ context.Context, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redirects = append(m.Redirects, delay)
}

// RecordingNavigator records every navigation.
type RecordingNavigator struct {
	Exits   []model.Exit
	Intents []model.TransferIntent
	mu      sync.Mutex
}

// Navigate implements Navigator.
func (r *RecordingNavigator) Navigate(exit model.Exit, intent model.TransferIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Exits = append(r.Exits, exit)
	r.Intents = append(r.Intents, intent)
}

// Count returns how many navigations happened.
func (r *RecordingNavigator) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Exits)
}

// RecordingNotifier records every notification.
type RecordingNotifier struct {
	Notifications []Notification
	mu            sync.Mutex
}

// Notify implements Notifier.
func (r *RecordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = append(r.Notifications, n)
}

// Messages returns the recorded messages in order.
func (r *RecordingNotifier) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]string, len(r.Notifications))
	for i, n := range r.Notifications {
		msgs[i] = n.Message
	}
	return msgs
}

// FakeScheduler collects scheduled calls until the test fires them.
// Scheduled functions never run inside AfterFunc.
type FakeScheduler struct {
	timers []*fakeTimer
	mu     sync.Mutex
}

type fakeTimer struct {
	f       func()
	delay   time.Duration
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

// AfterFunc implements Scheduler.
func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Scheduled returns the delays of every timer ever scheduled.
func (s *FakeScheduler) Scheduled() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	delays := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		delays[i] = t.delay
	}
	return delays
}

// FireAll runs every pending, unstopped timer and returns how many ran.
func (s *FakeScheduler) FireAll() int {
	s.mu.Lock()
	var pending []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			pending = append(pending, t)
		}
	}
	s.mu.Unlock()

	for _, t := range pending {
		t.f()
	}
	return len(pending)
}

// RecordingObserver records observer callbacks.
type RecordingObserver struct {
	Checks []Outcome
	Runs   []model.Run
	mu     sync.Mutex
}

// CheckCompleted implements Observer.
func (r *RecordingObserver) CheckCompleted(_ Check, outcome Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Checks = append(r.Checks, outcome)
}

// Finished implements Observer.
func (r *RecordingObserver) Finished(run model.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Runs = append(r.Runs, run)
}

var (
	_ Prompter  = (*MockPrompter)(nil)
	_ Navigator = (*RecordingNavigator)(nil)
	_ Notifier  = (*RecordingNotifier)(nil)
	_ Scheduler = (*FakeScheduler)(nil)
	_ Observer  = (*RecordingObserver)(nil)
)
