package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/bringup/internal/check"
)

// Row renders one result line, followed by one line per step.
func Row(r check.Result) string {
	var b strings.Builder
	b.WriteString(StatusBadge(r.Status))
	b.WriteString(" ")
	b.WriteString(NameStyle.Render(r.Name))
	b.WriteString(describe(r))
	b.WriteString(DimStyle.Render(fmt.Sprintf("  (%s)", r.Elapsed.Round(time.Millisecond))))
	for _, s := range r.Steps {
		b.WriteString("\n")
		b.WriteString(StepStyle.Render(s.Name))
		b.WriteString(StatusBadge(s.Status))
		if d := describe(s); d != "" {
			b.WriteString(" " + d)
		}
	}
	return b.String()
}

func describe(r check.Result) string {
	switch r.Status {
	case check.Pass:
		return firstLine(r.Detail)
	case check.Error:
		return ReasonStyle.Render(fmt.Sprintf("[%s] %s", r.Kind, r.Reason))
	default:
		return ReasonStyle.Render(r.Reason)
	}
}

// Summary renders the pass/fail/error totals.
func Summary(results []check.Result) string {
	pass, fail, errs := check.Tally(results)
	parts := []string{
		lipgloss.NewStyle().Foreground(Success).Render(fmt.Sprintf("%d passed", pass)),
		lipgloss.NewStyle().Foreground(Warning).Render(fmt.Sprintf("%d failed", fail)),
		lipgloss.NewStyle().Foreground(Error).Render(fmt.Sprintf("%d errors", errs)),
	}
	return BoldStyle.Render(strings.Join(parts, ", "))
}

// Report renders all results inside a titled panel.
func Report(title string, results []check.Result, width int) string {
	rows := make([]string, 0, len(results)+2)
	for _, r := range results {
		rows = append(rows, Row(r))
	}
	rows = append(rows, "", Summary(results))
	return Panel(AccentStyle.Render(title), strings.Join(rows, "\n"), width)
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
