package tui

import (
	"github.com/charmbracelet/lipgloss"

	"nudge/internal/domain"
)

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5a56e0", Dark: "#7d79ff"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6b6b6b", Dark: "#8a8a8a"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#22863a", Dark: "#97e023"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#b08800", Dark: "#ffaf00"}
	colorError  = lipgloss.AdaptiveColor{Light: "#cb2431", Dark: "#ff5f5f"}

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	tabActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(colorAccent).Padding(0, 1)
	tabStyle       = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	bannerStyle    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	cursorStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	sectionStyle   = lipgloss.NewStyle().Bold(true).MarginTop(1)
	footerStyle    = lipgloss.NewStyle().Faint(true)
)

func badgeStyle(state domain.AutosaveState) lipgloss.Style {
	switch state {
	case domain.AutosaveSaved:
		return lipgloss.NewStyle().Foreground(colorOK)
	case domain.AutosaveError, domain.AutosaveInvalid:
		return lipgloss.NewStyle().Foreground(colorError)
	case domain.AutosaveSaving:
		return lipgloss.NewStyle().Foreground(colorAccent)
	default:
		return mutedStyle
	}
}

func statusStyle(status domain.ItemStatus) lipgloss.Style {
	switch status {
	case domain.StatusSucceeded:
		return lipgloss.NewStyle().Foreground(colorOK)
	case domain.StatusFailed:
		return lipgloss.NewStyle().Foreground(colorError)
	case domain.StatusNeedsUserText:
		return lipgloss.NewStyle().Foreground(colorWarn)
	default:
		return lipgloss.NewStyle().Foreground(colorAccent)
	}
}
