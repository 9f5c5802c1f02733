package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/bringup/internal/check"
)

// Panel renders a rounded-border box with title embedded in the top border.
// width is the total outer width.
func Panel(title, content string, width int) string {
	colorStyle := lipgloss.NewStyle().Foreground(Subtle)

	// ╭─ TITLE ─...─╮  total = width
	dashCount := width - lipgloss.Width(title) - 5
	if dashCount < 0 {
		dashCount = 0
	}
	topBorder := colorStyle.Render("╭─ ") + title + colorStyle.Render(" "+strings.Repeat("─", dashCount)+"╮")

	innerWidth := width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}
	body := lipgloss.NewStyle().
		Width(innerWidth).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderLeft(true).
		BorderRight(true).
		BorderBottom(true).
		BorderTop(false).
		BorderForeground(Subtle).
		PaddingLeft(1).
		PaddingRight(1).
		Render(content)
	return topBorder + "\n" + body
}

// Title renders a styled page title.
func Title(text string) string {
	return TitleStyle.Render(text)
}

// StatusKey renders a key hint for the status bar.
func StatusKey(k, desc string) string {
	return StatusBarKeyStyle.Render(k) + StatusBarStyle.Render(":"+desc)
}

// Badge renders a small colored badge.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// StatusBadge renders PASS green, FAIL orange and ERROR red.
func StatusBadge(s check.Status) string {
	switch s {
	case check.Pass:
		return Badge(s.String(), Success)
	case check.Fail:
		return Badge(s.String(), Warning)
	default:
		return Badge(s.String(), Error)
	}
}
