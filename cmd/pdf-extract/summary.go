package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	labelStyle = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("#565f89"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
)

func printProgress(p entity.Progress) {
	status := string(p.Status)
	if status == "" {
		status = "SKIPPED"
	}
	fmt.Printf("[%d/%d] %-16s %s\n", p.Totals.Completed+p.Totals.Skipped, p.Totals.Dispatched, styleStatus(p.Status).Render(status), p.Path)
}

func styleStatus(s constants.DocumentStatus) lipgloss.Style {
	switch s {
	case constants.DocumentComplete:
		return okStyle
	case constants.DocumentPartialComplete:
		return warnStyle
	case constants.DocumentFailed:
		return errStyle
	default:
		return lipgloss.NewStyle()
	}
}

func renderSummary(r entity.BatchReport, outDir string) string {
	t := r.Totals
	row := func(label string, v any, style lipgloss.Style) string {
		return labelStyle.Render(label) + style.Render(fmt.Sprint(v))
	}
	plain := lipgloss.NewStyle()

	title := "Batch complete"
	if r.Cancelled {
		title = "Batch cancelled"
	}
	lines := []string{
		titleStyle.Render(title),
		row("Run", r.RunID, plain),
		row("Root", r.Root, plain),
		row("Discovered", t.Discovered, plain),
		row("Complete", t.Succeeded, okStyle),
		row("Partial", t.Partial, warnStyle),
		row("Failed", t.Failed, errStyle),
		row("Skipped", t.Skipped, plain),
		row("Unprocessed", t.Unprocessed, plain),
	}
	if t.Cancelled > 0 {
		lines = append(lines, row("Cancelled", t.Cancelled, warnStyle))
	}
	lines = append(lines,
		row("Duration", r.Duration.Round(time.Millisecond), plain),
		row("Output", outDir, plain),
	)
	return boxStyle.Render(strings.Join(lines, "\n"))
}
