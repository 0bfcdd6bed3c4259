// Package cli renders the transfer safety check in a plain terminal.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Verdict colors. Amber marks a flagged transfer, red a scam verdict.
var (
	accent = lipgloss.Color("#4C8BF5")
	green  = lipgloss.Color("#4ECDC4")
	amber  = lipgloss.Color("#FFE66D")
	red    = lipgloss.Color("#FF6B6B")
	teal   = lipgloss.Color("#95E1D3")
	grey   = lipgloss.Color("#666666")
	frame  = lipgloss.Color("#333333")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	successStyle = lipgloss.NewStyle().Foreground(green)
	infoStyle    = lipgloss.NewStyle().Foreground(teal)
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)

	// WarningStyle colors flagged-transfer text.
	WarningStyle = lipgloss.NewStyle().Foreground(amber)
	// ErrorStyle colors errors and scam verdicts.
	ErrorStyle = lipgloss.NewStyle().Foreground(red)
	// SubtleStyle dims secondary details such as balance age.
	SubtleStyle = lipgloss.NewStyle().Foreground(grey)
	// BoldStyle highlights amounts.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// TableHeaderStyle underlines history column titles.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(frame)
	// TableCellStyle pads history cells.
	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// Icons prefixed to status lines.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ShieldIcon  = "🛡️"
)

func badge(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess renders a cleared or completed status line.
func FormatSuccess(message string) string { return badge(successStyle, SuccessIcon, message) }

// FormatError renders a failure line.
func FormatError(message string) string { return badge(ErrorStyle, ErrorIcon, message) }

// FormatWarning renders a caution line.
func FormatWarning(message string) string { return badge(WarningStyle, WarningIcon, message) }

// FormatInfo renders a neutral line.
func FormatInfo(message string) string { return badge(infoStyle, InfoIcon, message) }

// FormatTitle renders a section heading.
func FormatTitle(title string) string { return badge(titleStyle, ShieldIcon, title) }

// FormatPrompt renders the choice line the user answers.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// RenderBox frames content under a title.
func RenderBox(title, content string) string {
	return renderBox(frame, title, content)
}

// RenderWarningBox frames a flagged transfer.
func RenderWarningBox(title, content string) string {
	return renderBox(amber, title, content)
}

// RenderDangerBox frames a scam verdict.
func RenderDangerBox(title, content string) string {
	return renderBox(red, title, content)
}

func renderBox(border lipgloss.Color, title, content string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content)
	return boxStyle.BorderForeground(border).Render(body)
}
