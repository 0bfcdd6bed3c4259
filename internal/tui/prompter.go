package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/workflow"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrQuit is returned to the workflow when the user closes the TUI.
var ErrQuit = errors.New("transfer check closed")

var (
	_ workflow.Prompter = (*Prompter)(nil)
	_ workflow.Notifier = (*Prompter)(nil)
)

// Prompter implements workflow.Prompter and workflow.Notifier on top of a
// bubbletea program.
type Prompter struct {
	program    *tea.Program
	resultChan chan promptResult
	done       chan struct{}
	final      Model
}

// New creates a TUI prompter. The program runs once Start is called.
func New(ctx context.Context, opts ...Option) *Prompter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Prompter{
		resultChan: make(chan promptResult, 1),
		done:       make(chan struct{}),
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	if cfg.Input != nil {
		programOpts = append(programOpts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(cfg.Output))
	}
	p.program = tea.NewProgram(newModel(cfg, p.resultChan), programOpts...)

	return p
}

// Start runs the program until it quits.
func (p *Prompter) Start() error {
	defer close(p.done)
	final, err := p.program.Run()
	if m, ok := final.(Model); ok {
		p.final = m
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// Done is closed once the program has exited.
func (p *Prompter) Done() <-chan struct{} {
	return p.done
}

// ConfirmHighAmount implements workflow.Prompter.
func (p *Prompter) ConfirmHighAmount(ctx context.Context, snap workflow.Snapshot) (bool, error) {
	r, err := p.ask(ctx, requestMsg{snap: snap, state: StateHighAmount})
	return r.confirm, err
}

// ResolveMLWarning implements workflow.Prompter.
func (p *Prompter) ResolveMLWarning(ctx context.Context, snap workflow.Snapshot) (workflow.Decision, error) {
	r, err := p.ask(ctx, requestMsg{snap: snap, state: StateMLWarning})
	return r.decision, err
}

// ResolveLLMWarning implements workflow.Prompter.
func (p *Prompter) ResolveLLMWarning(ctx context.Context, snap workflow.Snapshot) (bool, error) {
	r, err := p.ask(ctx, requestMsg{snap: snap, state: StateLLMWarning})
	return r.confirm, err
}

// AcknowledgeError implements workflow.Prompter.
func (p *Prompter) AcknowledgeError(ctx context.Context, snap workflow.Snapshot) error {
	_, err := p.ask(ctx, requestMsg{snap: snap, state: StateError})
	return err
}

// ShowRedirect implements workflow.Prompter.
func (p *Prompter) ShowRedirect(ctx context.Context, delay time.Duration) {
	p.program.Send(redirectMsg{delay: delay})
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-p.done:
	}
}

// Notify implements workflow.Notifier.
func (p *Prompter) Notify(n workflow.Notification) {
	p.program.Send(notifyMsg(n))
}

// Finish shows the outcome and stops the program.
func (p *Prompter) Finish(exit model.Exit, err error) {
	p.program.Send(doneMsg{exit: exit, err: err})
}

// Model returns the model the program ended with.
func (p *Prompter) Model() Model {
	return p.final
}

func (p *Prompter) ask(ctx context.Context, req requestMsg) (promptResult, error) {
	p.program.Send(req)

	select {
	case r := <-p.resultChan:
		return r, nil
	case <-p.done:
		return promptResult{}, ErrQuit
	case <-ctx.Done():
		return promptResult{}, ctx.Err()
	}
}

func (p *Prompter) closedByUser() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
