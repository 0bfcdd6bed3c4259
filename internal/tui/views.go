package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/vigil/internal/display"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/Veraticus/vigil/internal/workflow"
	"github.com/charmbracelet/lipgloss"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.state {
	case StateHighAmount:
		body = m.theme.WarningBox.Render(m.section("Unusual amount",
			m.theme.StatusWarning.Render(m.snap.HighAmountMessage)))
	case StateMLWarning:
		body = m.theme.WarningBox.Render(m.section("This transfer may be fraudulent", m.renderMLWarning()))
	case StateContext:
		body = m.theme.Box.Render(m.section("Add context",
			m.theme.Subtitle.Render(workflow.MsgProvideContext)+"\n\n"+m.context.View()))
	case StateLLMWarning:
		body = m.theme.DangerBox.Render(m.section("High risk of scam",
			m.theme.StatusError.Render(m.snap.LLMVerdict)))
	case StateError:
		body = m.theme.Box.Render(m.section("Safety check unavailable", m.renderError()))
	case StateRedirect:
		body = m.theme.Box.Render(m.section("Transfer cleared",
			m.theme.StatusSuccess.Render(workflow.MsgSafeRedirect)+"\n\n"+m.progress.ViewAs(m.remaining())))
	case StateDone:
		body = m.renderDone()
	default:
		body = m.theme.Box.Render(m.spinner.View() + " " + m.label)
	}

	sections := []string{m.theme.Title.Render("🛡️  Vigil transfer check"), body}
	if notes := m.renderNotes(); notes != "" {
		sections = append(sections, notes)
	}
	m.help.ShowAll = m.showFullHelp
	sections = append(sections, m.help.View(m.keymap.forState(m.state)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// section stacks the transfer card above a state specific block.
func (m Model) section(title, content string) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Bold.Render(title),
		"",
		m.renderIntent(m.snap.Intent),
		"",
		content,
	)
}

func (m Model) renderIntent(intent model.TransferIntent) string {
	rows := [][2]string{
		{"To", display.Recipient(intent.ReceiverName, intent.ReceiverAccountNumber, intent.ReceiverBank)},
		{"Amount", m.theme.Bold.Render(display.VND(intent.Amount))},
	}
	if intent.Description != "" {
		rows = append(rows, [2]string{"Note", display.Truncate(intent.Description, 60)})
	}
	if intent.HasBalance() {
		rows = append(rows, [2]string{"Balance", display.VND(intent.SenderBalance) + " " +
			m.theme.StatusPending.Render(display.BalanceAge(intent.BalanceAsOf, m.now()))})
	}

	label := lipgloss.NewStyle().Foreground(m.theme.Muted).Width(9)
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, label.Render(r[0])+r[1])
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMLWarning() string {
	content := m.theme.StatusWarning.Render(m.snap.MLMessage) + "\n\n" + workflow.MsgProvideContext
	if m.snap.Context != "" {
		content += "\n\n" + m.theme.StatusPending.Render("Your context was kept. Press c to review and resend it.")
	}
	return content
}

func (m Model) renderError() string {
	content := workflow.MsgCheckError
	if m.snap.LastError != nil {
		content += "\n\n" + m.theme.StatusPending.Render(m.snap.LastError.Error())
	}
	return content
}

func (m Model) renderDone() string {
	if m.err != nil {
		return m.theme.StatusError.Render(fmt.Sprintf("Transfer check stopped: %v", m.err))
	}
	if m.exit == nil {
		return ""
	}
	switch {
	case m.exit.IsBypass():
		return m.theme.StatusWarning.Render("Continuing to confirmation without a clean check.")
	case m.exit.ProceedsToConfirmation():
		return m.theme.StatusSuccess.Render("Safety check passed.")
	default:
		return m.theme.StatusPending.Render("Back to the transfer form.")
	}
}

func (m Model) renderNotes() string {
	lines := make([]string, 0, len(m.notes))
	for _, n := range m.notes {
		var style lipgloss.Style
		switch n.Level {
		case workflow.LevelSuccess:
			style = m.theme.StatusSuccess
		case workflow.LevelWarning:
			style = m.theme.StatusWarning
		case workflow.LevelError:
			style = m.theme.StatusError
		default:
			style = m.theme.StatusInfo
		}
		lines = append(lines, style.Render("• "+n.Message))
	}
	return strings.Join(lines, "\n")
}
