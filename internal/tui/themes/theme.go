// Package themes holds the color schemes of the transfer check TUI.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Italic        lipgloss.Style
	Box           lipgloss.Style
	WarningBox    lipgloss.Style
	DangerBox     lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusPending lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Warning       lipgloss.Color
	Error         lipgloss.Color
	Success       lipgloss.Color
}

type palette struct {
	primary, muted, border, foreground, subtle string
	warning, danger, success, info             string
}

func build(p palette) Theme {
	fg := lipgloss.Color(p.foreground)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.border)).
		Padding(1, 2)

	return Theme{
		Primary: lipgloss.Color(p.primary),
		Muted:   lipgloss.Color(p.muted),
		Border:  lipgloss.Color(p.border),
		Warning: lipgloss.Color(p.warning),
		Error:   lipgloss.Color(p.danger),
		Success: lipgloss.Color(p.success),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.primary)).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.subtle)),
		Normal: lipgloss.NewStyle().
			Foreground(fg),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg),
		Italic: lipgloss.NewStyle().
			Italic(true).
			Foreground(fg),

		Box:        box,
		WarningBox: box.BorderForeground(lipgloss.Color(p.warning)),
		DangerBox:  box.BorderForeground(lipgloss.Color(p.danger)),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.success)).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.warning)).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.danger)).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.info)).
			Bold(true),
		StatusPending: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.muted)).
			Italic(true),
	}
}

// Default is the default theme.
var Default = build(palette{
	primary:    "#3b82f6",
	muted:      "#737373",
	border:     "#404040",
	foreground: "#fafafa",
	subtle:     "#a3a3a3",
	warning:    "#f59e0b",
	danger:     "#ef4444",
	success:    "#10b981",
	info:       "#3b82f6",
})

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(palette{
	primary:    "#89b4fa",
	muted:      "#6c7086",
	border:     "#45475a",
	foreground: "#cdd6f4",
	subtle:     "#a6adc8",
	warning:    "#f9e2af",
	danger:     "#f38ba8",
	success:    "#a6e3a1",
	info:       "#89dceb",
})

// ByName returns the theme registered under name, or Default.
func ByName(name string) Theme {
	switch name {
	case "catppuccin", "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
