package tui

import (
	"time"

	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/tui/themes"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// State is the screen the wizard shows.
type State int

// Wizard screens.
const (
	StateChecking State = iota
	StateHighAmount
	StateMLWarning
	StateContext
	StateLLMWarning
	StateError
	StateRedirect
	StateDone
)

const (
	maxNotes     = 3
	countdownFPS = 20
)

// Model holds the wizard state. It never calls the controller; answers are
// handed to the Prompter through resultChan.
type Model struct {
	redirectStart time.Time
	theme         themes.Theme
	err           error
	resultChan    chan<- promptResult
	now           func() time.Time
	exit          *model.Exit
	label         string
	notes         []workflow.Notification
	snap          workflow.Snapshot
	help          help.Model
	spinner       spinner.Model
	progress      progress.Model
	context       textarea.Model
	keymap        KeyMap
	redirectFor   time.Duration
	width         int
	height        int
	state         State
	showFullHelp  bool
	quitting      bool
}

func newModel(cfg Config, results chan<- promptResult) Model {
	ta := textarea.New()
	ta.Placeholder = "How do you know the recipient? Paste the chat here."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetWidth(cfg.Width - 8)
	ta.SetHeight(6)

	return Model{
		theme:      cfg.Theme,
		resultChan: results,
		now:        cfg.Now,
		keymap:     DefaultKeyMap(),
		help:       help.New(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(cfg.Theme.StatusInfo),
		),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		context:  ta,
		width:    cfg.Width,
		height:   cfg.Height,
		state:    StateChecking,
		label:    "Running safety check...",
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.state != StateContext && key.Matches(msg, m.keymap.Help) {
			m.showFullHelp = !m.showFullHelp
			return m, nil
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.context.SetWidth(max(msg.Width-8, 20))
		m.progress.Width = max(msg.Width-12, 10)
		return m, nil

	case requestMsg:
		m.snap = msg.snap
		m.state = msg.state
		return m, nil

	case redirectMsg:
		m.state = StateRedirect
		m.redirectStart = m.now()
		m.redirectFor = msg.delay
		return m, countdownTick()

	case countdownTickMsg:
		if m.state != StateRedirect {
			return m, nil
		}
		return m, countdownTick()

	case notifyMsg:
		m.notes = append(m.notes, workflow.Notification(msg))
		if len(m.notes) > maxNotes {
			m.notes = m.notes[len(m.notes)-maxNotes:]
		}
		return m, nil

	case doneMsg:
		m.state = StateDone
		m.err = msg.err
		if msg.err == nil {
			exit := msg.exit
			m.exit = &exit
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state == StateContext {
		var cmd tea.Cmd
		m.context, cmd = m.context.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateHighAmount:
		switch {
		case key.Matches(msg, m.keymap.Confirm):
			return m.answer(promptResult{confirm: true}, "Running safety check...")
		case key.Matches(msg, m.keymap.Cancel):
			return m.answer(promptResult{}, "Cancelling...")
		}

	case StateMLWarning:
		switch {
		case key.Matches(msg, m.keymap.Context):
			m.state = StateContext
			m.context.SetValue(m.snap.Context)
			return m, m.context.Focus()
		case key.Matches(msg, m.keymap.Skip):
			return m.answer(promptResult{decision: workflow.Decision{Skip: true}}, "Skipping the check...")
		case key.Matches(msg, m.keymap.Cancel):
			return m.answer(promptResult{decision: workflow.Decision{Cancel: true}}, "Cancelling...")
		}

	case StateContext:
		switch {
		case key.Matches(msg, m.keymap.Submit):
			text := m.context.Value()
			m.context.Blur()
			return m.answer(promptResult{decision: workflow.Decision{Context: text}}, "Analysing your context...")
		case key.Matches(msg, m.keymap.Discard):
			m.context.Blur()
			m.state = StateMLWarning
			return m, nil
		}
		var cmd tea.Cmd
		m.context, cmd = m.context.Update(msg)
		return m, cmd

	case StateLLMWarning:
		switch {
		case key.Matches(msg, m.keymap.Proceed):
			return m.answer(promptResult{confirm: true}, "Continuing to confirmation...")
		case key.Matches(msg, m.keymap.Cancel):
			return m.answer(promptResult{}, "Cancelling...")
		}

	case StateError:
		if key.Matches(msg, m.keymap.Back) {
			return m.answer(promptResult{}, "Going back...")
		}
	}
	return m, nil
}

// answer hands r to the waiting Prompter and shows label until the next
// request arrives.
func (m Model) answer(r promptResult, label string) (tea.Model, tea.Cmd) {
	m.resultChan <- r
	m.state = StateChecking
	m.label = label
	return m, m.spinner.Tick
}

// remaining is the share of the redirect countdown still to run.
func (m Model) remaining() float64 {
	if m.redirectFor <= 0 {
		return 0
	}
	left := 1 - float64(m.now().Sub(m.redirectStart))/float64(m.redirectFor)
	return min(max(left, 0), 1)
}

func countdownTick() tea.Cmd {
	return tea.Tick(time.Second/countdownFPS, func(t time.Time) tea.Msg {
		return countdownTickMsg(t)
	})
}

// Exit returns the workflow exit once the wizard is done.
func (m Model) Exit() (model.Exit, bool) {
	if m.exit == nil {
		return model.Exit{}, false
	}
	return *m.exit, true
}

// State returns the screen being shown.
func (m Model) State() State {
	return m.state
}
